package prtg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "prtgadmin"
	testPassword = "prtgadmin"
	testPasshash = "1234567890"
	testToken    = "SECRETTOKEN"
)

const targetsForm = `<html><body><form>
<table>
<tr><td><input type="checkbox" class="checkbox" name="interfacenumber__check" value="1.3.6.1.2.1.131.1.1.1.3.100601000|PowerSupply1 ent state oper|Power supply 1"></td><td>PowerSupply1</td></tr>
<tr><td><input type="checkbox" class="checkbox" name="interfacenumber__check" value="1.3.6.1.2.1.131.1.1.1.3.100602000|PowerSupply2 ent state oper|Power supply 2"></td><td>PowerSupply2</td></tr>
<tr><td><input type="checkbox" name="interfacenumber__check" value=""></td></tr>
<tr><td><input type="hidden" name="tmpid" value="42"></td></tr>
</table>
</form></body></html>`

// fakeServer mimics the parts of the PRTG API used by the client.
type fakeServer struct {
	mu        sync.Mutex
	devices   []Device
	sensors   map[int][]Sensor
	forms     []url.Values
	polls     int
	nextID    int
	failAdd   bool
	failProbe bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		devices: []Device{
			{ID: 2001, Name: "Arista 7050-48 core01", Group: "Network", Host: "10.0.0.1"},
			{ID: 2002, Name: "Palo Alto PA-3220 fw01", Group: "Firewalls", Host: "10.0.0.2"},
		},
		sensors: map[int][]Sensor{
			2001: {{ID: 3001, Name: "Ping"}},
			2002: {{ID: 3002, Name: "Ping"}},
		},
		nextID: 4000,
	}
}

func (f *fakeServer) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/getpasshash.htm", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("username") != testUser || q.Get("password") != testPassword {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, testPasshash)
	})
	r.Group(func(r chi.Router) {
		r.Use(f.authenticate)
		r.Get("/api/getstatus.htm", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Version":"24.1"}`)
		})
		r.Get("/api/table.json", f.table)
		r.Get("/addsensor2.htm", func(w http.ResponseWriter, r *http.Request) {
			if f.failProbe {
				http.Error(w, "probe failed", http.StatusBadRequest)
				return
			}
			q := r.URL.Query()
			q.Set("tmpid", "42")
			http.Redirect(w, r, "/addsensor4.htm?"+q.Encode(), http.StatusFound)
		})
		r.Get("/api/getaddsensorprogress.htm", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.polls++
			progress := "50%"
			if f.polls > 1 {
				progress = "100%"
			}
			f.mu.Unlock()
			fmt.Fprintf(w, `{"progress":%q,"targeturl":"/addsensor4.htm"}`, progress)
		})
		r.Get("/addsensor4.htm", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, targetsForm)
		})
		r.Post("/addsensor5.htm", f.addSensor)
	})
	return r
}

func (f *fakeServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ok := q.Get("apitoken") == testToken ||
			(q.Get("username") == testUser && (q.Get("passhash") == testPasshash || q.Get("password") == testPassword))
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeServer) table(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	res := tableResponse{Version: "24.1"}
	switch q.Get("content") {
	case "devices":
		filter := strings.TrimSuffix(strings.TrimPrefix(q.Get("filter_device"), "@sub("), ")")
		for _, d := range f.devices {
			if id := q.Get("filter_objid"); id != "" && id != strconv.Itoa(d.ID) {
				continue
			}
			if filter != "" && !strings.Contains(d.Name, filter) {
				continue
			}
			res.Devices = append(res.Devices, d)
		}
	case "sensors":
		id, _ := strconv.Atoi(q.Get("id"))
		res.Sensors = f.sensors[id]
	}
	res.TreeSize = len(res.Devices) + len(res.Sensors)
	_ = json.NewEncoder(w).Encode(res)
}

func (f *fakeServer) addSensor(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.failAdd {
		http.Error(w, "library not found", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, r.PostForm)
	id, _ := strconv.Atoi(r.PostForm.Get("id"))
	f.nextID++
	f.sensors[id] = append(f.sensors[id], Sensor{ID: f.nextID, Name: r.PostForm.Get("name_")})
	w.WriteHeader(http.StatusOK)
}

func newTestClient(t *testing.T, f *fakeServer, creds Credentials) *Client {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, creds, WithHTTPClient(srv.Client()), WithPollInterval(time.Millisecond), WithTimeout(5*time.Second))
}

func TestConnect(t *testing.T) {
	t.Run("passhash", func(t *testing.T) {
		c := newTestClient(t, newFakeServer(), Credentials{Username: testUser, Password: testPassword})
		require.NoError(t, c.Connect(context.Background()))
		assert.Equal(t, testPasshash, c.passhash)
	})
	t.Run("api token", func(t *testing.T) {
		c := newTestClient(t, newFakeServer(), Credentials{APIToken: testToken})
		require.NoError(t, c.Connect(context.Background()))
	})
	t.Run("wrong password", func(t *testing.T) {
		c := newTestClient(t, newFakeServer(), Credentials{Username: testUser, Password: "nope"})
		err := c.Connect(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
	t.Run("missing credentials", func(t *testing.T) {
		c := newTestClient(t, newFakeServer(), Credentials{Username: testUser})
		assert.ErrorIs(t, c.Connect(context.Background()), ErrMissingCredentials)
	})
}

func TestDevices(t *testing.T) {
	c := newTestClient(t, newFakeServer(), Credentials{APIToken: testToken})

	devices, err := c.Devices(context.Background(), "Arista")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, 2001, devices[0].ID)
	assert.Equal(t, "Network", devices[0].Group)

	devices, err = c.Devices(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestDeviceByID(t *testing.T) {
	c := newTestClient(t, newFakeServer(), Credentials{APIToken: testToken})

	d, err := c.DeviceByID(context.Background(), 2002)
	require.NoError(t, err)
	assert.Equal(t, "Palo Alto PA-3220 fw01", d.Name)

	_, err = c.DeviceByID(context.Background(), 9999)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestDiscoverTargets(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f, Credentials{Username: testUser, Password: testPassword})
	require.NoError(t, c.Connect(context.Background()))

	targets, err := c.DiscoverTargets(context.Background(), 2001, "ENTITY-STATE-MIB.oidlib")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "1.3.6.1.2.1.131.1.1.1.3.100601000", targets[0].Value)
	assert.Equal(t, []string{"1.3.6.1.2.1.131.1.1.1.3.100602000", "PowerSupply2 ent state oper", "Power supply 2"}, targets[1].Properties)
	assert.GreaterOrEqual(t, f.polls, 2)
}

func TestDiscoverTargetsFailure(t *testing.T) {
	f := newFakeServer()
	f.failProbe = true
	c := newTestClient(t, f, Credentials{APIToken: testToken})

	_, err := c.DiscoverTargets(context.Background(), 2001, "ENTITY-STATE-MIB.oidlib")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe failed")
}

func TestCreateSensor(t *testing.T) {
	f := newFakeServer()
	c := newTestClient(t, f, Credentials{APIToken: testToken})

	target := ParseSensorTarget("1.3.6.1.2.1.131.1.1.1.3.100601000|PowerSupply1 ent state oper|Power supply 1")
	id, err := c.CreateSensor(context.Background(), 2001, SensorSpec{
		Name:            "ent state: PowerSupply1 - ent state oper",
		Library:         "ENTITY-STATE-MIB.oidlib",
		InterfaceNumber: 1,
		Target:          target,
		Tags:            DefaultTags,
		Priority:        DefaultPriority,
	})
	require.NoError(t, err)
	assert.Equal(t, 4001, id)

	require.Len(t, f.forms, 1)
	form := f.forms[0]
	assert.Equal(t, "snmplibrary", form.Get("sensortype"))
	assert.Equal(t, "1", form.Get("interfacenumber_"))
	assert.Equal(t, target.Parameter(), form.Get("interfacenumber__check"))
	assert.Equal(t, "psu powersupply snmplibrary", form.Get("tags_"))
	assert.Equal(t, "3", form.Get("priority_"))
}

func TestCreateSensorFailure(t *testing.T) {
	f := newFakeServer()
	f.failAdd = true
	c := newTestClient(t, f, Credentials{APIToken: testToken})

	_, err := c.CreateSensor(context.Background(), 2001, SensorSpec{Name: "x", Target: ParseSensorTarget("1.2.3")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library not found")
}

func TestParseSensorTargets(t *testing.T) {
	targets, err := ParseSensorTargets(strings.NewReader(targetsForm))
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "PowerSupply1 ent state oper", targets[0].Properties[1])
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int
		wantErr  bool
	}{
		{name: "number", input: float64(75), expected: 75},
		{name: "percent string", input: "100%", expected: 100},
		{name: "plain string", input: " 20 ", expected: 20},
		{name: "failure marker", input: "-1", expected: -1},
		{name: "garbage", input: "done", wantErr: true},
		{name: "nil", input: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProgress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewestSensorID(t *testing.T) {
	before := []Sensor{{ID: 10}, {ID: 11}}
	after := []Sensor{{ID: 10}, {ID: 11}, {ID: 15}, {ID: 12}}
	assert.Equal(t, 15, newestSensorID(before, after))
	assert.Equal(t, 0, newestSensorID(before, before))
}
