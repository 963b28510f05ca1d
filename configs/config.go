package configs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MethodList is a list of HTTP methods configurable either as a JSON array
// (`["GET","POST"]`) or a comma-separated string (`GET,POST`).
type MethodList []string

// Decode implements envconfig.Decoder.
func (m *MethodList) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			return fmt.Errorf("invalid JSON method list %q: %w", value, err)
		}
		*m = parsed
		return nil
	}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*m = append(*m, part)
		}
	}
	return nil
}

// Config holds the application configuration, loaded from environment
// variables with the prefix "UNITY_".
type Config struct {
	// SpecPath is the local OpenAPI document the tool catalog is generated
	// from. Required; the file must exist at startup.
	SpecPath string `envconfig:"SPEC_PATH" required:"true"`

	// ListenAddr is the SSE transport address. Ignored in stdio mode.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// AdminAddr serves health probes, the tool listing and metrics.
	AdminAddr string `envconfig:"ADMIN_ADDR" default:":8081"`

	// PublicURL is the externally visible base URL advertised to SSE
	// clients. Defaults to http://<ListenAddr> when empty.
	PublicURL string `envconfig:"PUBLIC_URL"`

	// DefaultHost, when set, is suggested in tool descriptions. Credentials
	// themselves always arrive per call.
	DefaultHost string `envconfig:"DEFAULT_HOST"`

	// AllowedHTTPMethods restricts which spec operations become tools.
	AllowedHTTPMethods MethodList `envconfig:"ALLOWED_HTTP_METHODS" default:"GET"`

	TLSVerify      bool          `envconfig:"TLS_VERIFY" default:"false"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from the environment and validates it. Invalid
// configuration is a startup failure, not something to limp along with.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("unity", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints that envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.SpecPath == "" {
		return fmt.Errorf("UNITY_SPEC_PATH must be set")
	}
	if _, err := os.Stat(c.SpecPath); err != nil {
		return fmt.Errorf("spec file %q is not readable: %w", c.SpecPath, err)
	}
	if len(c.AllowedHTTPMethods) == 0 {
		return fmt.Errorf("UNITY_ALLOWED_HTTP_METHODS must list at least one method")
	}
	for _, m := range c.AllowedHTTPMethods {
		switch strings.ToUpper(m) {
		case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS":
		default:
			return fmt.Errorf("unsupported HTTP method %q in UNITY_ALLOWED_HTTP_METHODS", m)
		}
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("UNITY_MAX_RETRIES must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("UNITY_REQUEST_TIMEOUT must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid UNITY_LOG_LEVEL %q (use debug, info, warn or error)", c.LogLevel)
	}
	return nil
}
