package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/cache/sqlite"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "SECRETTOKEN"

const psuForm = `<html><body><form><table>
<tr><td><input type="checkbox" name="interfacenumber__check" value="1.3.6.1.2.1.131.1.1.1.3.100601000|PowerSupply1 ent state oper|Power supply 1"></td></tr>
<tr><td><input type="checkbox" name="interfacenumber__check" value="1.3.6.1.2.1.131.1.1.1.3.100602000|PowerSupply2 ent state oper|Power supply 2"></td></tr>
</table></form></body></html>`

// prtgServer serves a single Arista device and counts the requests made
// against it.
type prtgServer struct {
	mu       sync.Mutex
	requests map[string]int
}

func newPRTGServer(t *testing.T) (*prtgServer, string) {
	t.Helper()
	s := &prtgServer{requests: map[string]int{}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.requests[r.URL.Path]++
			s.mu.Unlock()
			if r.URL.Query().Get("apitoken") != testToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/api/getstatus.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Version":"24.1"}`)
	})
	r.Get("/api/table.json", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := map[string]any{"prtg-version": "24.1"}
		switch q.Get("content") {
		case "devices":
			devices := []prtg.Device{}
			if strings.Contains(q.Get("filter_device"), "Arista") {
				devices = append(devices, prtg.Device{ID: 2001, Name: "Arista 7050-48 core01", Group: "Network"})
			}
			res["devices"] = devices
		case "sensors":
			res["sensors"] = []prtg.Sensor{{ID: 3001, Name: "Ping"}}
		}
		_ = json.NewEncoder(w).Encode(res)
	})
	r.Get("/addsensor2.htm", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		q.Set("tmpid", "42")
		http.Redirect(w, r, "/addsensor4.htm?"+q.Encode(), http.StatusFound)
	})
	r.Get("/api/getaddsensorprogress.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"progress":"100%","targeturl":"/addsensor4.htm"}`)
	})
	r.Get("/addsensor4.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, psuForm)
	})
	r.Post("/addsensor5.htm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func (s *prtgServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *prtgServer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// resetFlags puts the flags touched by a previous execution back to their
// defaults since rootCmd is shared between tests.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if strings.HasSuffix(f.Value.Type(), "Slice") {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	deployCmd.Flags().VisitAll(reset)
	t.Cleanup(func() {
		rootCmd.PersistentFlags().VisitAll(reset)
		deployCmd.Flags().VisitAll(reset)
	})
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PRTG_API_TOKEN", "")
	t.Setenv("API_TOKEN", "")
	rootCmd.SetArgs(append(args, "--no-color", "--no-cache"))
	return rootCmd.ExecuteContext(context.Background())
}

func TestDeployWhatIfWritesNoReport(t *testing.T) {
	server, uri := newPRTGServer(t)
	dir := t.TempDir()

	err := runCommand(t, "deploy",
		"--server", uri,
		"--api-token", testToken,
		"--whatIf",
		"--pacing", "0s",
		"--reportPath", filepath.Join(dir, "report.csv"),
	)
	require.NoError(t, err)

	assert.Positive(t, server.count("/addsensor2.htm"), "targets should still be discovered")
	assert.Zero(t, server.count("/addsensor5.htm"), "no sensor should be created")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no report should be written")
}

func TestDeployMissingCredentials(t *testing.T) {
	server, uri := newPRTGServer(t)
	dir := t.TempDir()
	t.Setenv("MASTER_KEY", "")

	err := runCommand(t, "deploy",
		"--server", uri,
		"--secrets-file", filepath.Join(dir, "secrets.json"),
		"--reportPath", filepath.Join(dir, "report.csv"),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, prtg.ErrMissingCredentials)
	assert.Zero(t, server.total(), "no request should reach the server")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryRemove(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "history.db")
	history := sqlite.OutcomeCache{Path: cachePath}
	keep, drop := uuid.New(), uuid.New()
	require.NoError(t, history.Insert(keep, report.Outcome{DeviceID: 2001, DeviceName: "Arista 7050-48 core01", Status: report.StatusSuccess}))
	require.NoError(t, history.Insert(drop, report.Outcome{DeviceID: 2002, DeviceName: "Palo Alto PA-3220 fw01", Status: report.StatusError}))

	require.NoError(t, runCommand(t, "history", "remove", drop.String(), "--cache", cachePath))

	outcomes, err := history.Get()
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 2001, outcomes[0].DeviceID)
}
