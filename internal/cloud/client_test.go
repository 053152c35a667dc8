package cloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/goveectl/internal/metrics"
	"github.com/muurk/goveectl/internal/protocol"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testKey = "test-api-key"

const devicesBody = `{
  "code": 200,
  "message": "success",
  "data": [
    {
      "sku": "H6199",
      "device": "AB:CD:EF:01:23:45:67:89",
      "deviceName": "TV backlight",
      "type": "devices.types.light",
      "capabilities": [
        {"type": "devices.capabilities.on_off", "instance": "powerSwitch", "parameters": {"dataType": "ENUM"}},
        {"type": "devices.capabilities.range", "instance": "brightness", "parameters": {"dataType": "INTEGER"}},
        {"type": "devices.capabilities.color_setting", "instance": "colorRgb"}
      ]
    },
    {
      "sku": "H5179",
      "device": "11:22:33:44:55:66:77:88",
      "deviceName": "Thermometer",
      "type": "devices.types.thermometer",
      "capabilities": []
    }
  ]
}`

const scenesBody = `{
  "requestId": "x",
  "msg": "success",
  "code": 200,
  "payload": {
    "sku": "H6199",
    "device": "AB:CD:EF:01:23:45:67:89",
    "capabilities": [
      {
        "type": "devices.capabilities.dynamic_scene",
        "instance": "lightScene",
        "parameters": {
          "dataType": "ENUM",
          "options": [
            {"name": "Sunrise", "value": {"paramId": 4280, "id": 3853}},
            {"name": "Aurora", "value": {"paramId": 4281, "id": 3854}}
          ]
        }
      }
    ]
  }
}`

const stateBody = `{
  "requestId": "x",
  "msg": "success",
  "code": 200,
  "payload": {
    "sku": "H6199",
    "device": "AB:CD:EF:01:23:45:67:89",
    "capabilities": [
      {"type": "devices.capabilities.online", "instance": "online", "state": {"value": true}},
      {"type": "devices.capabilities.on_off", "instance": "powerSwitch", "state": {"value": 1}},
      {"type": "devices.capabilities.range", "instance": "brightness", "state": {"value": 42}}
    ]
  }
}`

const controlOK = `{"requestId":"x","msg":"success","code":200,"capability":{}}`

var requestIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// recordedRequest is one request seen by the fake API
type recordedRequest struct {
	Method string
	Path   string
	Key    string
	Body   map[string]interface{}
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request, n int)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Key: r.Header.Get(APIKeyHeader)}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	n := len(f.requests)
	f.mu.Unlock()

	f.handler(w, r, n)
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int)) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := NewClientWithURL(srv.URL+"/router/api/v1/", testKey)
	client.RetryDelay = time.Millisecond
	client.MaxRetryDelay = 5 * time.Millisecond
	client.SetRateLimit(rate.Inf, 0)
	return client, api
}

// routes answers each endpoint with a fixed body
func routes(bodies map[string]string) func(w http.ResponseWriter, r *http.Request, n int) {
	return func(w http.ResponseWriter, r *http.Request, n int) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("key")

	assert.Equal(t, DefaultBaseURL, client.BaseURL)
	assert.Equal(t, "key", client.APIKey)
	assert.Equal(t, DefaultTimeout, client.HTTPClient.Timeout)
	assert.Equal(t, DefaultMaxRetries, client.MaxRetries)
	assert.NotNil(t, client.limiter)
}

func TestClient_ListDevices(t *testing.T) {
	client, api := newTestClient(t, routes(map[string]string{
		"/router/api/v1/user/devices": devicesBody,
	}))

	devices, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	d := devices[0]
	assert.Equal(t, "H6199", d.SKU)
	assert.Equal(t, "TV backlight", d.DeviceName)
	assert.True(t, d.IsLight())
	assert.True(t, d.Supports(InstanceBrightness))
	assert.False(t, d.Supports(InstanceLightScene))
	assert.Equal(t, []string{"powerSwitch", "brightness", "colorRgb"}, d.Instances())
	assert.False(t, devices[1].IsLight())

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, testKey, reqs[0].Key)
	assert.Nil(t, reqs[0].Body)
}

func TestClient_FindDevice(t *testing.T) {
	client, _ := newTestClient(t, routes(map[string]string{
		"/router/api/v1/user/devices": devicesBody,
	}))

	d, err := client.FindDevice(context.Background(), "ab:cd:ef:01:23:45:67:89")
	require.NoError(t, err)
	assert.Equal(t, "H6199", d.SKU)

	_, err = client.FindDevice(context.Background(), "00:00")
	assert.True(t, IsValidationError(err))
}

func TestClient_Control(t *testing.T) {
	client, api := newTestClient(t, routes(map[string]string{
		"/router/api/v1/device/control": controlOK,
	}))

	err := client.SetColor(context.Background(), "H6199", "AB:CD", 0x12, 0x34, 0x56)
	require.NoError(t, err)

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, testKey, req.Key)

	id, _ := req.Body["requestId"].(string)
	assert.Regexp(t, requestIDPattern, id)

	payload := req.Body["payload"].(map[string]interface{})
	assert.Equal(t, "H6199", payload["sku"])
	assert.Equal(t, "AB:CD", payload["device"])

	capability := payload["capability"].(map[string]interface{})
	assert.Equal(t, CapColorSetting, capability["type"])
	assert.Equal(t, InstanceColorRGB, capability["instance"])
	assert.Equal(t, float64(0x123456), capability["value"])
}

func TestClient_RequestIDsAreUnique(t *testing.T) {
	client, api := newTestClient(t, routes(map[string]string{
		"/router/api/v1/device/control": controlOK,
	}))

	ctx := context.Background()
	require.NoError(t, client.SetPower(ctx, "H6199", "AB:CD", true))
	require.NoError(t, client.SetPower(ctx, "H6199", "AB:CD", false))

	reqs := api.recorded()
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].Body["requestId"], reqs[1].Body["requestId"])

	on := reqs[0].Body["payload"].(map[string]interface{})["capability"].(map[string]interface{})
	off := reqs[1].Body["payload"].(map[string]interface{})["capability"].(map[string]interface{})
	assert.Equal(t, float64(1), on["value"])
	assert.Equal(t, float64(0), off["value"])
}

func TestClient_Execute(t *testing.T) {
	tests := []struct {
		name         string
		cmd          protocol.Command
		wantInstance string
		wantValue    interface{}
	}{
		{"power", protocol.Power{On: true}, InstancePowerSwitch, float64(1)},
		{"brightness", protocol.Brightness{Level: 255}, InstanceBrightness, float64(100)},
		{"color", protocol.Color{Red: 255}, InstanceColorRGB, float64(0xFF0000)},
		{"temperature", protocol.ColorTemperature{Kelvin: 4000}, InstanceColorTemperature, float64(4000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api := newTestClient(t, routes(map[string]string{
				"/router/api/v1/device/control": controlOK,
			}))

			require.NoError(t, client.Execute(context.Background(), "H6199", "AB:CD", tt.cmd))

			reqs := api.recorded()
			require.Len(t, reqs, 1)
			capability := reqs[0].Body["payload"].(map[string]interface{})["capability"].(map[string]interface{})
			assert.Equal(t, tt.wantInstance, capability["instance"])
			assert.Equal(t, tt.wantValue, capability["value"])
		})
	}
}

func TestClient_ExecuteScene(t *testing.T) {
	client, api := newTestClient(t, routes(map[string]string{
		"/router/api/v1/device/scenes":  scenesBody,
		"/router/api/v1/device/control": controlOK,
	}))

	ctx := context.Background()
	require.NoError(t, client.Execute(ctx, "H6199", "AB:CD", protocol.Scene{Name: "Aurora"}))

	reqs := api.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/router/api/v1/device/scenes", reqs[0].Path)

	capability := reqs[1].Body["payload"].(map[string]interface{})["capability"].(map[string]interface{})
	assert.Equal(t, CapDynamicScene, capability["type"])
	assert.Equal(t, InstanceLightScene, capability["instance"])
	assert.Equal(t, map[string]interface{}{"paramId": float64(4281), "id": float64(3854)}, capability["value"])

	// The scene list is cached
	require.NoError(t, client.Execute(ctx, "H6199", "AB:CD", protocol.Scene{Name: "Sunrise"}))
	assert.Len(t, api.recorded(), 3)

	client.InvalidateCache()
	require.NoError(t, client.SetScene(ctx, "H6199", "AB:CD", "Sunrise"))
	assert.Len(t, api.recorded(), 5)
}

func TestClient_ExecuteScene_Errors(t *testing.T) {
	client, api := newTestClient(t, routes(map[string]string{
		"/router/api/v1/device/scenes":  scenesBody,
		"/router/api/v1/device/control": controlOK,
	}))
	ctx := context.Background()

	err := client.Execute(ctx, "H6199", "AB:CD", protocol.Scene{Name: "Nope"})
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, protocol.ErrUnknownEffect)

	err = client.Execute(ctx, "H6199", "AB:CD", protocol.Scene{Params: []byte{1, 2}})
	assert.ErrorIs(t, err, protocol.ErrUnsupported)

	// Only the scene list was fetched, nothing was sent to control
	for _, req := range api.recorded() {
		assert.NotEqual(t, "/router/api/v1/device/control", req.Path)
	}
}

func TestClient_DeviceState(t *testing.T) {
	client, api := newTestClient(t, routes(map[string]string{
		"/router/api/v1/device/state": stateBody,
	}))

	state, err := client.DeviceState(context.Background(), "H6199", "AB:CD")
	require.NoError(t, err)

	v, ok := state.Value(InstanceBrightness)
	require.True(t, ok)
	assert.Equal(t, float64(42), v)

	_, ok = state.Value(InstanceColorRGB)
	assert.False(t, ok)

	payload := api.recorded()[0].Body["payload"].(map[string]interface{})
	assert.NotContains(t, payload, "capability")
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		header       map[string]string
		check        func(error) bool
		wantRequests int
	}{
		{
			name:         "unauthorized",
			status:       http.StatusUnauthorized,
			body:         `{"message":"invalid key"}`,
			check:        IsAuthError,
			wantRequests: 1,
		},
		{
			name:         "server error is retried",
			status:       http.StatusInternalServerError,
			body:         `oops`,
			check:        IsHTTPError,
			wantRequests: DefaultMaxRetries + 1,
		},
		{
			name:         "not found",
			status:       http.StatusNotFound,
			body:         `{}`,
			check:        IsHTTPError,
			wantRequests: 1,
		},
		{
			name:         "rate limited",
			status:       http.StatusTooManyRequests,
			header:       map[string]string{"Retry-After": "0"},
			check:        IsRateLimitError,
			wantRequests: DefaultMaxRetries + 1,
		},
		{
			name:         "body code",
			status:       http.StatusOK,
			body:         `{"code":400,"msg":"Parameter value cannot be empty"}`,
			check:        func(err error) bool { return IsAPIErrorCode(err, 400) },
			wantRequests: 1,
		},
		{
			name:         "malformed json",
			status:       http.StatusOK,
			body:         `{"code":`,
			check:        IsParseError,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request, n int) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.SetPower(context.Background(), "H6199", "AB:CD", true)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Len(t, api.recorded(), tt.wantRequests)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, endpointControl, apiErr.Endpoint)
		})
	}
}

func TestClient_RetryRecovers(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, n int) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, controlOK)
	})

	reg := metrics.NewRegistry()
	m := metrics.NewCloudMetrics(reg)
	client.SetMetrics(m)

	require.NoError(t, client.SetBrightness(context.Background(), "H6199", "AB:CD", 128))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues(endpointControl)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(endpointControl, metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(endpointControl, metrics.ResultError)))
}

func TestClient_MissingAPIKey(t *testing.T) {
	client, api := newTestClient(t, routes(nil))
	client.APIKey = ""

	err := client.SetPower(context.Background(), "H6199", "AB:CD", true)
	assert.True(t, IsAuthError(err))
	assert.Empty(t, api.recorded())
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client.RetryDelay = time.Hour
	client.MaxRetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.SetPower(ctx, "H6199", "AB:CD", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, api.recorded(), 1)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
}
