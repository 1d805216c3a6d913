package prtg

// See ref for API docs:
//	https://www.paessler.com/manuals/prtg/http_api
//	https://www.paessler.com/manuals/prtg/live_data
import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultPollAttempts = 120
	maxErrorBody        = 256
)

var (
	ErrDeviceNotFound   = errors.New("device not found")
	errDiscoveryPending = errors.New("sensor target discovery still in progress")
	tmpIDPattern        = regexp.MustCompile(`tmpid=(\d+)`)
)

// Client talks to the PRTG HTTP API. It wraps the default http.Client the
// same way for every call: credentials are added as query parameters and
// non-2xx responses are turned into errors.
type Client struct {
	*http.Client
	URI          string
	Credentials  Credentials
	PollInterval time.Duration

	passhash string
}

type Option func(*Client)

func WithInsecure(insecure bool) Option {
	return func(c *Client) {
		if !insecure {
			return
		}
		c.Client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.Client.Timeout = timeout
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.PollInterval = interval
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.Client = client
		}
	}
}

// NewClient creates a client for the PRTG server at uri.
func NewClient(uri string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		Client:       &http.Client{Timeout: defaultTimeout},
		URI:          strings.TrimSuffix(uri, "/"),
		Credentials:  creds,
		PollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect verifies that the server is reachable with the configured
// credentials. When a password is given instead of an API token, it is
// exchanged for the account's passhash which is then used for every
// following request.
func (c *Client) Connect(ctx context.Context) error {
	if !c.Credentials.Complete() {
		return ErrMissingCredentials
	}
	if c.Credentials.APIToken != "" {
		q := url.Values{}
		q.Set("id", "0")
		if _, _, err := c.request(ctx, http.MethodGet, "/api/getstatus.htm", q, nil); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", c.URI, err)
		}
		return nil
	}

	q := url.Values{}
	q.Set("username", c.Credentials.Username)
	q.Set("password", c.Credentials.Password)
	_, body, err := c.send(ctx, http.MethodGet, "/api/getpasshash.htm", q, nil)
	if err != nil {
		return fmt.Errorf("failed to retrieve passhash from %s: %w", c.URI, err)
	}
	c.passhash = strings.TrimSpace(string(body))
	if c.passhash == "" {
		return fmt.Errorf("failed to retrieve passhash from %s: empty response", c.URI)
	}
	log.Debug().Str("server", c.URI).Str("username", c.Credentials.Username).Msg("retrieved passhash")
	return nil
}

// Devices lists the devices whose name contains filter. An empty filter
// returns every device visible to the account.
func (c *Client) Devices(ctx context.Context, filter string) ([]Device, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter_device", fmt.Sprintf("@sub(%s)", filter))
	}
	table, err := c.table(ctx, "devices", "objid,device,group,host", q)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return table.Devices, nil
}

// DeviceByID returns the device with the given object id, or an error
// wrapping ErrDeviceNotFound.
func (c *Client) DeviceByID(ctx context.Context, id int) (Device, error) {
	q := url.Values{}
	q.Set("filter_objid", strconv.Itoa(id))
	table, err := c.table(ctx, "devices", "objid,device,group,host", q)
	if err != nil {
		return Device{}, fmt.Errorf("failed to get device %d: %w", id, err)
	}
	for _, d := range table.Devices {
		if d.ID == id {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
}

// Sensors lists the sensors currently attached to a device.
func (c *Client) Sensors(ctx context.Context, deviceID int) ([]Sensor, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(deviceID))
	table, err := c.table(ctx, "sensors", "objid,name", q)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors of device %d: %w", deviceID, err)
	}
	return table.Sensors, nil
}

// DiscoverTargets asks PRTG to probe a device against an SNMP library file
// and returns the targets it found. Probing can take minutes on large
// chassis, so ctx should carry a generous deadline.
func (c *Client) DiscoverTargets(ctx context.Context, deviceID int, library string) ([]SensorTarget, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(deviceID))
	q.Set("sensortype", SensorTypeSNMPLibrary)
	q.Set("library_", library)
	res, body, err := c.request(ctx, http.MethodGet, "/addsensor2.htm", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start sensor target discovery: %w", err)
	}
	tmpID, err := parseTmpID(res, body)
	if err != nil {
		return nil, err
	}

	if err := c.waitForDiscovery(ctx, deviceID, tmpID); err != nil {
		return nil, err
	}

	q = url.Values{}
	q.Set("id", strconv.Itoa(deviceID))
	q.Set("tmpid", tmpID)
	_, body, err = c.request(ctx, http.MethodGet, "/addsensor4.htm", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sensor targets: %w", err)
	}
	targets, err := ParseSensorTargets(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	log.Debug().Int("device", deviceID).Int("targets", len(targets)).Str("library", library).Msg("discovered sensor targets")
	return targets, nil
}

// CreateSensor adds an SNMP library sensor for a single target and returns
// the id PRTG assigned to it. addsensor5 does not return the new object,
// so the id is resolved by comparing the device's sensors before and after
// the request.
func (c *Client) CreateSensor(ctx context.Context, deviceID int, spec SensorSpec) (int, error) {
	before, err := c.Sensors(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	form := url.Values{}
	form.Set("id", strconv.Itoa(deviceID))
	form.Set("name_", spec.Name)
	form.Set("sensortype", SensorTypeSNMPLibrary)
	form.Set("library_", spec.Library)
	form.Set("interfacenumber_", strconv.Itoa(spec.InterfaceNumber))
	form.Set("interfacenumber__check", spec.Target.Parameter())
	form.Set("tags_", strings.Join(spec.Tags, " "))
	form.Set("priority_", strconv.Itoa(spec.Priority))
	if _, _, err := c.request(ctx, http.MethodPost, "/addsensor5.htm", nil, form); err != nil {
		return 0, fmt.Errorf("failed to add sensor '%s': %w", spec.Name, err)
	}

	after, err := c.Sensors(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	id := newestSensorID(before, after)
	if id == 0 {
		return 0, fmt.Errorf("sensor '%s' not found on device %d after creation", spec.Name, deviceID)
	}
	return id, nil
}

func (c *Client) waitForDiscovery(ctx context.Context, deviceID int, tmpID string) error {
	attempts := uint(defaultPollAttempts)
	if deadline, ok := ctx.Deadline(); ok && c.PollInterval > 0 {
		attempts = uint(time.Until(deadline)/c.PollInterval) + 1
	}

	_, err := retry.DoWithData(func() (int, error) {
		progress, err := c.discoveryProgress(ctx, deviceID, tmpID)
		if err != nil {
			return 0, err
		}
		if progress < 100 {
			log.Debug().Int("device", deviceID).Int("progress", progress).Msg("waiting for sensor target discovery")
			return progress, errDiscoveryPending
		}
		return progress, nil
	},
		retry.Attempts(attempts),
		retry.Delay(c.PollInterval),
		retry.MaxDelay(c.PollInterval),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errDiscoveryPending)
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("sensor target discovery for device %d timed out: %w", deviceID, ctxErr)
	}
	if errors.Is(err, errDiscoveryPending) {
		return fmt.Errorf("sensor target discovery for device %d did not complete", deviceID)
	}
	return fmt.Errorf("failed to wait for sensor target discovery: %w", err)
}

func (c *Client) discoveryProgress(ctx context.Context, deviceID int, tmpID string) (int, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(deviceID))
	q.Set("tmpid", tmpID)
	_, body, err := c.request(ctx, http.MethodGet, "/api/getaddsensorprogress.htm", q, nil)
	if err != nil {
		return 0, err
	}
	var res progressResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("failed to unmarshal discovery progress: %w", err)
	}
	progress, err := parseProgress(res.Progress)
	if err != nil {
		return 0, err
	}
	if progress < 0 {
		return 0, fmt.Errorf("sensor target discovery failed on device %d", deviceID)
	}
	return progress, nil
}

func (c *Client) table(ctx context.Context, content string, columns string, q url.Values) (tableResponse, error) {
	var table tableResponse
	q.Set("content", content)
	q.Set("columns", columns)
	q.Set("count", "*")
	_, body, err := c.request(ctx, http.MethodGet, "/api/table.json", q, nil)
	if err != nil {
		return table, err
	}
	if err := json.Unmarshal(body, &table); err != nil {
		return table, fmt.Errorf("failed to unmarshal %s table: %w", content, err)
	}
	return table, nil
}

// request performs an authenticated call.
func (c *Client) request(ctx context.Context, method string, endpoint string, q url.Values, form url.Values) (*http.Response, []byte, error) {
	if q == nil {
		q = url.Values{}
	}
	switch {
	case c.Credentials.APIToken != "":
		q.Set("apitoken", c.Credentials.APIToken)
	case c.passhash != "":
		q.Set("username", c.Credentials.Username)
		q.Set("passhash", c.passhash)
	default:
		// PRTG accepts the plain password in place of the passhash
		q.Set("username", c.Credentials.Username)
		q.Set("password", c.Credentials.Password)
	}
	return c.send(ctx, method, endpoint, q, form)
}

func (c *Client) send(ctx context.Context, method string, endpoint string, q url.Values, form url.Values) (*http.Response, []byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URI+endpoint+"?"+q.Encode(), body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create new HTTP request: %w", err)
	}
	req.Header.Add("User-Agent", "prtg-psu-sensor-deployer")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	b, err := io.ReadAll(res.Body)
	if cerr := res.Body.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("could not close response body")
	}
	if err != nil {
		return res, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if len(b) > 0 {
			return res, b, fmt.Errorf("%d: %s", res.StatusCode, truncate(string(b), maxErrorBody))
		}
		return res, b, fmt.Errorf("returned status code %d from %s", res.StatusCode, endpoint)
	}
	return res, b, nil
}

func parseTmpID(res *http.Response, body []byte) (string, error) {
	if res != nil && res.Request != nil && res.Request.URL != nil {
		if id := res.Request.URL.Query().Get("tmpid"); id != "" {
			return id, nil
		}
	}
	if m := tmpIDPattern.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}
	return "", fmt.Errorf("no tmpid returned when starting sensor target discovery")
}

func parseProgress(v any) (int, error) {
	switch p := v.(type) {
	case float64:
		return int(p), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(p), "%"))
		if err != nil {
			return 0, fmt.Errorf("invalid discovery progress '%s': %w", p, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid discovery progress: %v", v)
	}
}

func newestSensorID(before []Sensor, after []Sensor) int {
	seen := make(map[int]struct{}, len(before))
	for _, s := range before {
		seen[s.ID] = struct{}{}
	}
	newest := 0
	for _, s := range after {
		if _, ok := seen[s.ID]; !ok && s.ID > newest {
			newest = s.ID
		}
	}
	return newest
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
