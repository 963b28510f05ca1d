package unity

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// healthCheckPath is a fixed, low-cost endpoint every Unity system exposes.
const healthCheckPath = "/api/types/basicSystemInfo/instances"

// Credentials identify one Unity system for a single call. They are supplied
// by the caller per tool invocation and never persisted.
type Credentials struct {
	Host     string
	Username string
	Password string
}

// Options control transport behavior for a Client.
type Options struct {
	TLSVerify  bool
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the Unity REST API using Basic Authentication on every
// request; no login session is maintained. One Client is constructed per tool
// invocation and closed when the call completes.
type Client struct {
	host       string
	username   string
	password   string
	baseURL    string
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Unity API client for one call.
func NewClient(creds Credentials, opts Options, logger *slog.Logger) (*Client, error) {
	if creds.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if creds.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if creds.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	baseURL := creds.Host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.TLSVerify},
	}

	return &Client{
		host:       creds.Host,
		username:   creds.Username,
		password:   creds.Password,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With("component", "unity_client", slog.String("host", creds.Host)),
	}, nil
}

// Execute performs one API operation. On success it returns the decoded
// response body, with the Unity "entries" collection envelope unwrapped to
// the bare array when present, or an empty object for an empty body.
//
// Error statuses map to the typed errors in this package. Connection-level
// dial failures surface immediately; timeouts and other transient request
// errors are retried with exponential backoff up to the configured budget.
func (c *Client) Execute(ctx context.Context, path, method string, params map[string]interface{}, body interface{}) (interface{}, error) {
	reqURL := c.baseURL + path

	query := url.Values{}
	for k, v := range params {
		query.Set(k, fmt.Sprintf("%v", v))
	}

	var bodyBytes []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyBytes = data
	}

	log := c.logger.With(slog.String("method", method), slog.String("path", path))
	log.Debug("Executing Unity API operation.", slog.Int("param_count", len(params)))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, err := c.doRequest(ctx, method, reqURL, query, bodyBytes)
		if err == nil {
			return result, nil
		}

		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		if attempt < c.maxRetries {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			log.Warn("Transient request failure, retrying.",
				slog.Int("attempt", attempt),
				slog.Int("max_retries", c.maxRetries),
				slog.Duration("wait", wait),
				slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, &ConnectionError{Host: c.host, Err: ctx.Err()}
			}
		}
	}

	return nil, &ConnectionError{Host: c.host, Err: fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)}
}

func (c *Client) doRequest(ctx context.Context, method, reqURL string, query url.Values, bodyBytes []byte) (interface{}, error) {
	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Required by the Unity REST API on every request.
	req.Header.Set("X-EMC-REST-CLIENT", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isDialFailure(err) {
			return nil, &ConnectionError{Host: c.host, Err: err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthenticationError{Host: c.host}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode >= 400:
		return nil, &APIResponseError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if len(respBody) == 0 {
		return map[string]interface{}{}, nil
	}

	var data interface{}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	// Unity wraps collection responses in an "entries" array.
	if obj, ok := data.(map[string]interface{}); ok {
		if entries, ok := obj["entries"]; ok {
			return entries, nil
		}
	}
	return data, nil
}

// HealthCheck reports whether the Unity system is reachable and the
// credentials work. All errors collapse to false.
func (c *Client) HealthCheck(ctx context.Context) bool {
	_, err := c.Execute(ctx, healthCheckPath, http.MethodGet, map[string]interface{}{"fields": "id"}, nil)
	if err != nil {
		c.logger.Warn("Health check failed.", slog.Any("error", err))
		return false
	}
	return true
}

// Close releases the client's idle connections. Safe to call on every exit
// path of a tool invocation.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// isDialFailure reports whether err is a connection-establishment failure,
// which is not retried.
func isDialFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isTransient reports whether err is worth retrying: timeouts and other
// request-level failures that are not typed API errors.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
