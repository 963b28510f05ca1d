package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unity-tools/unity-mcp/internal/domain"
	"github.com/unity-tools/unity-mcp/internal/metrics"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolExecutor dispatches one tool invocation. Satisfied by
// *ExecuteToolUseCase; an interface so registration tests can stub it.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// RegisterToolsUseCase generates the tool catalog from a loaded document,
// persists it, and exposes each tool on the MCP server with a handler bound
// to the dispatcher. Registration happens once at startup; no credentials
// are needed (or accepted) at this stage.
type RegisterToolsUseCase struct {
	generator  ToolGenerator
	repository ToolRepository
	server     MCPServerAdapter
	executor   ToolExecutor
	collector  *metrics.Collector
	logger     *slog.Logger
}

func NewRegisterToolsUseCase(
	generator ToolGenerator,
	repository ToolRepository,
	server MCPServerAdapter,
	executor ToolExecutor,
	collector *metrics.Collector,
	logger *slog.Logger,
) *RegisterToolsUseCase {
	return &RegisterToolsUseCase{
		generator:  generator,
		repository: repository,
		server:     server,
		executor:   executor,
		collector:  collector,
		logger:     logger.With("usecase", "RegisterTools"),
	}
}

// Execute builds and registers the full catalog for the given document.
// Returns the number of tools registered.
func (uc *RegisterToolsUseCase) Execute(ctx context.Context, doc domain.Document, allowedMethods []string) (int, error) {
	tools, err := uc.generator.Generate(doc, allowedMethods)
	if err != nil {
		return 0, fmt.Errorf("failed to generate tools: %w", err)
	}
	if len(tools) == 0 {
		return 0, fmt.Errorf("no tools could be generated from the API specification")
	}

	if err := uc.repository.Save(ctx, tools); err != nil {
		return 0, fmt.Errorf("failed to save tools: %w", err)
	}

	for _, tool := range tools {
		uc.register(tool)
	}

	uc.collector.SetToolCount(len(tools))
	uc.logger.Info("Registered tools.", slog.Int("count", len(tools)))
	return len(tools), nil
}

func (uc *RegisterToolsUseCase) register(tool domain.Tool) {
	schema, err := tool.InputSchema.MarshalJSONSchema()
	if err != nil {
		uc.logger.Warn("Skipping tool with unencodable schema.",
			slog.String("tool_name", tool.Name),
			slog.Any("error", err))
		return
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name, tool.Description, schema)
	name := tool.Name

	uc.server.AddTool(mcpTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return uc.executor.Execute(ctx, name, req.GetArguments())
	})

	uc.logger.Debug("Registered tool.", slog.String("tool_name", name))
}
