package unity

import "fmt"

// AuthenticationError indicates the Unity system rejected the supplied
// credentials (HTTP 401).
type AuthenticationError struct {
	Host string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for host: %s", e.Host)
}

// RateLimitError indicates the Unity system is rate limiting requests
// (HTTP 429). RetryAfter is the parsed Retry-After header in seconds, or 0
// when the header was absent or unreadable.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfter)
	}
	return "rate limit exceeded"
}

// APIResponseError is any other error status (>= 400) from the Unity API.
type APIResponseError struct {
	StatusCode int
	Body       string
}

func (e *APIResponseError) Error() string {
	return fmt.Sprintf("API request failed: %d", e.StatusCode)
}

// ConnectionError indicates the host could not be reached, either because
// the connection failed outright or because the retry budget was exhausted
// on transient errors.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to connect to Unity host %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("failed to connect to Unity host %s", e.Host)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
