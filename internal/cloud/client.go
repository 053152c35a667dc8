package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/goveectl/internal/logging"
	"github.com/muurk/goveectl/internal/metrics"
	"github.com/muurk/goveectl/internal/protocol"
	"github.com/muurk/goveectl/internal/urls"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Govee developer API root
	DefaultBaseURL = urls.CloudAPI + "/router/api/v1"

	// APIKeyEnvVar holds the API key. The key is never written to disk.
	APIKeyEnvVar = "GOVEE_API_KEY"

	// APIKeyHeader carries the API key on every request
	APIKeyHeader = "Govee-API-Key"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is how long scene lists are cached
	DefaultCacheDuration = 5 * time.Minute

	// codeSuccess is the body code of a successful response
	codeSuccess = 200
)

// DefaultRateLimit keeps a client within the API's per-minute quota
var DefaultRateLimit = rate.Every(6 * time.Second)

// DefaultRateBurst allows a short burst such as power, brightness and color
// sent together
const DefaultRateBurst = 10

// API endpoints, relative to the base URL
const (
	endpointDevices = "user/devices"
	endpointScenes  = "device/scenes"
	endpointControl = "device/control"
	endpointState   = "device/state"
)

// Client talks to the Govee cloud API
type Client struct {
	// BaseURL is the API root without a trailing slash
	BaseURL string

	// APIKey authenticates every request
	APIKey string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// CacheDuration is how long to cache scene lists (0 = no cache)
	CacheDuration time.Duration

	limiter *rate.Limiter
	metrics *metrics.CloudMetrics

	sceneCache map[string]cachedScenes
	cacheMutex sync.RWMutex
}

type cachedScenes struct {
	scenes  []Scene
	fetched time.Time
}

// NewClient creates a client for the public API
func NewClient(apiKey string) *Client {
	return NewClientWithURL(DefaultBaseURL, apiKey)
}

// NewClientWithURL creates a client for an arbitrary API root
func NewClientWithURL(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		CacheDuration: DefaultCacheDuration,
		limiter:       rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
		sceneCache:    make(map[string]cachedScenes),
	}
}

// SetRateLimit replaces the client-side rate limit
func (c *Client) SetRateLimit(limit rate.Limit, burst int) {
	c.limiter = rate.NewLimiter(limit, burst)
}

// SetMetrics records request metrics into m
func (c *Client) SetMetrics(m *metrics.CloudMetrics) {
	c.metrics = m
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// ListDevices returns every device on the account
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var resp devicesResponse
	if err := c.do(ctx, http.MethodGet, endpointDevices, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// FindDevice returns the device with the given id from the device list
func (c *Client) FindDevice(ctx context.Context, deviceID string) (*Device, error) {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Device, deviceID) {
			return &devices[i], nil
		}
	}
	return nil, NewValidationError(fmt.Sprintf("device %s not on this account", deviceID), nil)
}

// ListScenes returns the dynamic scenes a device supports. Results are
// cached for CacheDuration.
func (c *Client) ListScenes(ctx context.Context, sku, device string) ([]Scene, error) {
	key := sku + "/" + device

	if c.CacheDuration > 0 {
		c.cacheMutex.RLock()
		cached, ok := c.sceneCache[key]
		c.cacheMutex.RUnlock()
		if ok && time.Since(cached.fetched) < c.CacheDuration {
			return cached.scenes, nil
		}
	}

	var resp scenesResponse
	if err := c.do(ctx, http.MethodPost, endpointScenes, newRequest(sku, device, nil), &resp); err != nil {
		return nil, err
	}
	if len(resp.Payload.Capabilities) == 0 {
		return nil, &APIError{Type: ErrTypeParse, Message: "scene list has no capabilities", Endpoint: endpointScenes}
	}
	scenes := resp.Payload.Capabilities[0].Parameters.Options

	if c.CacheDuration > 0 {
		c.cacheMutex.Lock()
		c.sceneCache[key] = cachedScenes{scenes: scenes, fetched: time.Now()}
		c.cacheMutex.Unlock()
	}

	return scenes, nil
}

// InvalidateCache drops all cached scene lists
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	c.sceneCache = make(map[string]cachedScenes)
	c.cacheMutex.Unlock()
}

// DeviceState returns the current state of a device
func (c *Client) DeviceState(ctx context.Context, sku, device string) (*DeviceState, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, endpointState, newRequest(sku, device, nil), &resp); err != nil {
		return nil, err
	}
	return &resp.Payload, nil
}

// Control sends one capability to a device
func (c *Client) Control(ctx context.Context, sku, device string, capability ControlCapability) error {
	logging.Info("Sending cloud command",
		zap.String("sku", sku),
		zap.String("device", device),
		zap.String("capability", capability.String()),
	)

	var resp controlResponse
	return c.do(ctx, http.MethodPost, endpointControl, newRequest(sku, device, &capability), &resp)
}

// SetPower switches a device on or off
func (c *Client) SetPower(ctx context.Context, sku, device string, on bool) error {
	return c.Control(ctx, sku, device, PowerCapability(on))
}

// SetBrightness sets brightness from a 0-255 level
func (c *Client) SetBrightness(ctx context.Context, sku, device string, level uint8) error {
	return c.Control(ctx, sku, device, BrightnessCapability(level))
}

// SetColor sets an RGB color
func (c *Client) SetColor(ctx context.Context, sku, device string, r, g, b uint8) error {
	return c.Control(ctx, sku, device, ColorCapability(r, g, b))
}

// SetColorTemperature sets a white color temperature in kelvin
func (c *Client) SetColorTemperature(ctx context.Context, sku, device string, kelvin int) error {
	capability, err := ColorTemperatureCapability(kelvin)
	if err != nil {
		return err
	}
	return c.Control(ctx, sku, device, capability)
}

// SetScene activates a scene by name
func (c *Client) SetScene(ctx context.Context, sku, device, name string) error {
	scenes, err := c.ListScenes(ctx, sku, device)
	if err != nil {
		return err
	}
	scene, err := FindScene(scenes, name)
	if err != nil {
		return err
	}

	logging.Debug("Resolved scene",
		zap.String("name", scene.Name),
		zap.String("value", sceneValue(scene)),
	)
	return c.Control(ctx, sku, device, SceneCapability(scene))
}

// Execute sends a light command through the cloud. Scene commands are
// resolved by name.
func (c *Client) Execute(ctx context.Context, sku, device string, cmd protocol.Command) error {
	if scene, ok := cmd.(protocol.Scene); ok {
		if scene.Name == "" {
			return NewValidationError("cloud scenes are selected by name", protocol.ErrUnsupported)
		}
		return c.SetScene(ctx, sku, device, scene.Name)
	}

	capability, err := CapabilityFor(cmd)
	if err != nil {
		return err
	}
	return c.Control(ctx, sku, device, capability)
}

func newRequest(sku, device string, capability *ControlCapability) *requestEnvelope {
	return &requestEnvelope{
		RequestID: requestID(),
		Payload: devicePayload{
			SKU:        sku,
			Device:     device,
			Capability: capability,
		},
	}
}

// requestID returns a random id as 32 hex digits
func requestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// statusCarrier is implemented by every response type
type statusCarrier interface {
	status() responseStatus
}

func (s responseStatus) status() responseStatus { return s }

// do performs a request with retries and decodes the response into out
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, out statusCarrier) error {
	if c.APIKey == "" {
		return NewAuthError(0, fmt.Sprintf("no API key (set %s)", APIKeyEnvVar))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return NewValidationError("failed to encode request", err)
		}
	}

	var lastErr error
	currentDelay := c.RetryDelay

	// Retry loop with exponential backoff
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := currentDelay
			if apiErr, ok := asAPIError(lastErr); ok && apiErr.RetryAfter > delay {
				delay = apiErr.RetryAfter
			}
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}

			logging.Debug("Retrying cloud request",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			c.metrics.ObserveRetry(endpoint)

			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(delay):
			}

			currentDelay *= 2
			if currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		start := time.Now()
		err := c.attempt(ctx, method, endpoint, payload, out)
		c.metrics.ObserveRequest(endpoint, time.Since(start).Seconds(), err)
		if err == nil {
			return nil
		}

		if apiErr, ok := asAPIError(err); ok && apiErr.Endpoint == "" {
			apiErr.Endpoint = endpoint
		}
		lastErr = err

		// Don't retry non-retryable errors
		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// attempt performs a single request
func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte, out statusCarrier) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return NewNetworkError("rate limiter wait cancelled", err)
		}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/"+endpoint, reqBody)
	if err != nil {
		return NewValidationError("failed to create request", err)
	}
	req.Header.Set(APIKeyHeader, c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("%s request failed", method), err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}

	logging.Debug("Cloud response",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("length", len(respBody)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewAuthError(resp.StatusCode, "API key rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewRateLimitError(parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode != http.StatusOK:
		return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 200)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}

	status := out.status()
	if status.Code != codeSuccess {
		return NewAPIError(status.Code, status.text())
	}

	return nil
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
