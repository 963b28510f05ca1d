package unity_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unity-tools/unity-mcp/internal/adapter/outbound/unity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, host string) *unity.Client {
	t.Helper()
	client, err := unity.NewClient(
		unity.Credentials{Host: host, Username: "admin", Password: "secret"},
		unity.Options{Timeout: 2 * time.Second, MaxRetries: 1},
		testLogger(),
	)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds unity.Credentials
	}{
		{"missing host", unity.Credentials{Username: "u", Password: "p"}},
		{"missing username", unity.Credentials{Host: "h", Password: "p"}},
		{"missing password", unity.Credentials{Host: "h", Username: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unity.NewClient(tt.creds, unity.Options{}, testLogger())
			assert.Error(t, err)
		})
	}
}

func TestClient_Execute_SendsAuthAndHeaders(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(ok, "expected basic auth")
		assert.Equal("admin", user)
		assert.Equal("secret", pass)
		assert.Equal("true", r.Header.Get("X-EMC-REST-CLIENT"))
		assert.Equal("application/json", r.Header.Get("Accept"))
		assert.Equal("id,name", r.URL.Query().Get("fields"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sys_1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	defer client.Close()

	result, err := client.Execute(context.Background(), "/api/instances/system/0", http.MethodGet,
		map[string]interface{}{"fields": "id,name"}, nil)
	require.NoError(t, err)
	assert.Equal(map[string]interface{}{"id": "sys_1"}, result)
}

func TestClient_Execute_UnwrapsEntriesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"@base":"...","entries":[{"content":{"id":"alert_1"}},{"content":{"id":"alert_2"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	defer client.Close()

	result, err := client.Execute(context.Background(), "/api/types/alert/instances", http.MethodGet, nil, nil)
	require.NoError(t, err)

	entries, ok := result.([]interface{})
	require.True(t, ok, "expected entries array, got %T", result)
	assert.Len(t, entries, 2)
}

func TestClient_Execute_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	defer client.Close()

	result, err := client.Execute(context.Background(), "/api/instances/job/N-1", http.MethodGet, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, result)
}

func TestClient_Execute_TypedErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "401 maps to AuthenticationError",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *unity.AuthenticationError
				require.ErrorAs(t, err, &authErr)
				assert.Contains(t, err.Error(), "authentication failed")
			},
		},
		{
			name:    "429 maps to RateLimitError with Retry-After",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "30"},
			check: func(t *testing.T, err error) {
				var rateErr *unity.RateLimitError
				require.ErrorAs(t, err, &rateErr)
				assert.Equal(t, 30, rateErr.RetryAfter)
			},
		},
		{
			name:   "500 maps to APIResponseError with body",
			status: http.StatusInternalServerError,
			body:   `{"error":{"messages":["boom"]}}`,
			check: func(t *testing.T, err error) {
				var apiErr *unity.APIResponseError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			defer client.Close()

			_, err := client.Execute(context.Background(), "/api/types/alert/instances", http.MethodGet, nil, nil)
			require.Error(t, err)
			tt.check(t, err)
			// Typed API errors are final, never retried.
			assert.Equal(t, 1, requests)
		})
	}
}

func TestClient_Execute_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	client := newTestClient(t, srv.URL)
	defer client.Close()

	_, err := client.Execute(context.Background(), "/api/types/alert/instances", http.MethodGet, nil, nil)
	require.Error(t, err)

	var connErr *unity.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestClient_Execute_RetriesTimeoutsUntilBudgetExhausted(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(500 * time.Millisecond) // longer than the client timeout
	}))
	defer srv.Close()

	client, err := unity.NewClient(
		unity.Credentials{Host: srv.URL, Username: "admin", Password: "secret"},
		unity.Options{Timeout: 100 * time.Millisecond, MaxRetries: 2},
		testLogger(),
	)
	require.NoError(err)
	defer client.Close()

	_, err = client.Execute(context.Background(), "/api/types/alert/instances", http.MethodGet, nil, nil)
	require.Error(err)

	var connErr *unity.ConnectionError
	require.ErrorAs(err, &connErr)
	assert.Contains(err.Error(), "after 2 attempts")
	assert.Equal(int32(2), hits.Load(), "timeouts are retried up to the configured budget")
}

func TestClient_HealthCheck(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/types/basicSystemInfo/instances", r.URL.Path)
		assert.Equal(t, "id", r.URL.Query().Get("fields"))
		w.WriteHeader(status)
		w.Write([]byte(`{"entries":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	defer client.Close()

	assert.True(t, client.HealthCheck(context.Background()))

	status = http.StatusUnauthorized
	assert.False(t, client.HealthCheck(context.Background()))
}
