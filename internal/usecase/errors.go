package usecase

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolNotFound is the sentinel for catalog lookups of unknown names.
var ErrToolNotFound = errors.New("tool not found")

// Protocol-level errors: failures in the shape of the request itself. These
// are returned as Go errors from the dispatcher (the MCP layer surfaces them
// as JSON-RPC errors), never as tool results, because they are caller
// mistakes the caller must fix, not runtime conditions.

// InvalidArgumentsError reports missing required arguments, naming every
// missing field so the caller can correct its request in one round trip.
type InvalidArgumentsError struct {
	Tool    string
	Missing []string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: missing %s",
		e.Tool, strings.Join(e.Missing, ", "))
}

// ToolNotFoundError reports an unknown tool name, or a known tool whose API
// path could not be resolved against the spec.
type ToolNotFoundError struct {
	Tool   string
	Reason string
}

func (e *ToolNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tool not found: %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("tool not found: %s", e.Tool)
}

func (e *ToolNotFoundError) Is(target error) bool { return target == ErrToolNotFound }
