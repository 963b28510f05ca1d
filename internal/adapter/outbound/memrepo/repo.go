package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/unity-tools/unity-mcp/internal/domain"
	"github.com/unity-tools/unity-mcp/internal/usecase"
)

// ToolRepository is an in-memory implementation of usecase.ToolRepository.
// The catalog is written once at startup and read-only afterward, so it is
// safe to share across concurrent tool calls.
type ToolRepository struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	order  []string
	logger *slog.Logger
}

// NewToolRepository creates an empty in-memory repository.
func NewToolRepository(logger *slog.Logger) *ToolRepository {
	return &ToolRepository{
		tools:  make(map[string]domain.Tool),
		logger: logger.With("component", "mem_repo"),
	}
}

// Save stores the given tools, replacing any previous catalog. Generation
// order is preserved for listing.
func (r *ToolRepository) Save(ctx context.Context, tools []domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools = make(map[string]domain.Tool, len(tools))
	r.order = r.order[:0]
	for i, tool := range tools {
		if tool.Name == "" {
			r.logger.Warn("Skipping tool with empty name during save.", slog.Int("index", i))
			continue
		}
		if _, exists := r.tools[tool.Name]; exists {
			return fmt.Errorf("save failed: duplicate tool name %q", tool.Name)
		}
		r.tools[tool.Name] = tool
		r.order = append(r.order, tool.Name)
	}

	r.logger.Info("Saved tool catalog.", slog.Int("count", len(r.order)))
	return nil
}

// List returns all stored tools in generation order.
func (r *ToolRepository) List(ctx context.Context) ([]domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list, nil
}

// FindByName retrieves a tool descriptor by its unique name.
func (r *ToolRepository) FindByName(ctx context.Context, name string) (*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, usecase.ErrToolNotFound
	}
	return &tool, nil
}
