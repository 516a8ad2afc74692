package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/metrics"
)

const (
	// maxBodyBytes caps how much of a response is read into memory
	maxBodyBytes = 4 << 20

	// maxRedirects matches net/http's default policy
	maxRedirects = 10

	csrfCookieName = "csrftoken"
)

// Logger is the subset of the Mattermost plugin log service used here.
// *pluginapi.LogService satisfies it.
type Logger interface {
	Debug(message string, keyValuePairs ...interface{})
	Info(message string, keyValuePairs ...interface{})
	Warn(message string, keyValuePairs ...interface{})
	Error(message string, keyValuePairs ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Client is the single choke point for requests to the crime backend.
// It keeps a cookie jar so a login session carries over to later calls.
type Client struct {
	config     Config
	origin     *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	limiter    *rate.Limiter
	logger     Logger
	metrics    *metrics.Metrics
}

// NewClient creates a gateway client. logger and m may be nil.
func NewClient(config Config, logger Logger, m *metrics.Metrics) (*Client, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	origin, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if logger == nil {
		logger = nopLogger{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}

	c := &Client{
		config:  config,
		origin:  origin,
		jar:     jar,
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
	c.httpClient = &http.Client{
		Timeout:       config.Timeout,
		Jar:           jar,
		CheckRedirect: c.checkRedirect,
	}

	return c, nil
}

// BaseURL returns the configured backend origin
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// checkRedirect refuses to follow the backend to another origin
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, maxRedirects)
	}
	if !sameOrigin(req.URL, c.origin) {
		return fmt.Errorf("%w: %s", ErrCrossOrigin, req.URL.Host)
	}
	return nil
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// csrfToken returns the Django CSRF cookie for the backend origin, if any
func (c *Client) csrfToken() string {
	for _, cookie := range c.jar.Cookies(c.origin) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// operation names a backend call for logs and metrics
type operation struct {
	name string

	// failure is the fallback message for a non-2xx response; %d is the status
	failure string
}

var (
	opLogin             = operation{name: "login", failure: "Login failed with status: %d"}
	opRegister          = operation{name: "register", failure: "Registration failed with status: %d"}
	opPredict           = operation{name: "predict", failure: "Prediction failed with status: %d"}
	opCrimeTypes        = operation{name: "crime_types", failure: "Failed to fetch crime types: %d"}
	opRecentPredictions = operation{name: "recent_predictions", failure: "Failed to fetch recent predictions: %d"}
	opDetectSMS         = operation{name: "detect_sms", failure: "SMS detection failed with status: %d"}
	opHealthCheck       = operation{name: "health_check", failure: "Server responded with status: %d"}
	opAnalytics         = operation{name: "analytics", failure: "Failed to fetch analytics: %d"}
	opCameraAlerts      = operation{name: "camera_alerts", failure: "Failed to fetch camera alerts: %d"}
	opAcknowledgeAlert  = operation{name: "acknowledge_alert", failure: "Failed to acknowledge alert: %d"}
)

// send performs one round trip and reads the whole body. A returned error
// means no usable response arrived.
func (c *Client) send(ctx context.Context, ep Endpoint, payload any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		// Wait fails early when the deadline cannot be met
		return 0, nil, fmt.Errorf("%w: %s", context.DeadlineExceeded, err.Error())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, c.config.BaseURL+ep.Path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if ep.RequiresAuth && ep.Method != http.MethodGet {
		if token := c.csrfToken(); token != "" {
			req.Header.Set("X-CSRFToken", token)
			req.Header.Set("Referer", c.config.BaseURL+"/")
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

// call runs one operation end to end. It never returns a Go error: transport
// failures, non-2xx statuses and decode failures all become Result.Err.
func call[T any](ctx context.Context, c *Client, op operation, ep Endpoint, payload any, decode func(body []byte) (T, *Error)) (result Result[T]) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if result.Err != nil {
			outcome = string(result.Err.Kind)
		}
		c.metrics.ObserveGatewayRequest(op.name, outcome, time.Since(start))
	}()

	status, body, err := c.send(ctx, ep, payload)
	if err != nil {
		gwErr := Classify(err, c.config.BaseURL)
		c.logger.Warn("Backend request failed",
			"operation", op.name,
			"path", ep.Path,
			"kind", string(gwErr.Kind),
			"error", err.Error())
		return fail[T](gwErr)
	}

	c.logger.Debug("Backend response", "operation", op.name, "path", ep.Path, "status", status)

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		gwErr := ServerError(status, body, fmt.Sprintf(op.failure, status))
		c.logger.Warn("Backend returned an error status",
			"operation", op.name,
			"path", ep.Path,
			"status", status,
			"error", gwErr.Message)
		return fail[T](gwErr)
	}

	value, gwErr := decode(body)
	if gwErr != nil {
		c.logger.Warn("Backend response failed validation",
			"operation", op.name,
			"path", ep.Path,
			"error", gwErr.Message)
		return fail[T](gwErr)
	}

	return ok(value)
}

// badBody wraps a decode failure as BAD_RESPONSE
func (c *Client) badBody(err error) *Error {
	return &Error{
		Kind:    KindBadResponse,
		Message: fmt.Sprintf("Invalid response from the server at %s: %s", c.config.BaseURL, err.Error()),
		cause:   err,
	}
}

// decodeInto returns a decoder that unmarshals the whole body into T
func decodeInto[T any](c *Client) func([]byte) (T, *Error) {
	return func(body []byte) (T, *Error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return v, c.badBody(err)
		}
		return v, nil
	}
}

// ignoreBody accepts any 2xx body
func ignoreBody([]byte) (struct{}, *Error) {
	return struct{}{}, nil
}
