package usecase

import (
	"context"
	"time"

	"github.com/unity-tools/unity-mcp/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// ToolGenerator derives tool descriptors from a parsed OpenAPI document for
// the allowed HTTP methods.
type ToolGenerator interface {
	Generate(doc domain.Document, allowedMethods []string) ([]domain.Tool, error)
}

// ToolRepository stores and retrieves generated tool descriptors. The
// catalog is written once at startup and read-only afterward.
type ToolRepository interface {
	Save(ctx context.Context, tools []domain.Tool) error
	List(ctx context.Context) ([]domain.Tool, error)
	FindByName(ctx context.Context, name string) (*domain.Tool, error)
}

// APIClient is the per-call Unity client contract. Exactly one instance is
// constructed per tool invocation and closed when the call completes.
type APIClient interface {
	Execute(ctx context.Context, path, method string, params map[string]interface{}, body interface{}) (interface{}, error)
	Close()
}

// ClientConfig carries the caller's credential bundle plus the configured
// transport policy for one invocation.
type ClientConfig struct {
	Host       string
	Username   string
	Password   string
	TLSVerify  bool
	Timeout    time.Duration
	MaxRetries int
}

// ClientFactory constructs a transient APIClient for one call.
type ClientFactory func(cfg ClientConfig) (APIClient, error)

// MCPServerAdapter is the slice of the mcp-go server the registrar needs,
// kept as an interface so use cases stay testable without a live server.
type MCPServerAdapter interface {
	AddTool(tool mcp.Tool, handler mcpGoServer.ToolHandlerFunc)
}
