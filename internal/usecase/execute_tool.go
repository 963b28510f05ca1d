package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/unity-tools/unity-mcp/internal/adapter/outbound/unity"
	"github.com/unity-tools/unity-mcp/internal/domain"
	"github.com/unity-tools/unity-mcp/internal/metrics"

	"github.com/mark3labs/mcp-go/mcp"
)

// credentialKeys are handled separately from API parameters and never
// forwarded to the Unity system.
var credentialKeys = []string{"host", "username", "password"}

// ExecutePolicy is the transport policy applied to every per-call client.
type ExecutePolicy struct {
	TLSVerify      bool
	Timeout        time.Duration
	MaxRetries     int
	AllowedMethods []string
}

// ExecuteToolUseCase is the request dispatcher: it resolves a tool name to an
// API path, separates credentials from API parameters using the tool's own
// schema as an allowlist, and performs the call through a transient client.
//
// It holds no mutable state across calls; the document and catalog are
// read-only after startup, so it is safe for concurrent use.
type ExecuteToolUseCase struct {
	doc        domain.Document
	repository ToolRepository
	factory    ClientFactory
	policy     ExecutePolicy
	methods    []string
	collector  *metrics.Collector
	logger     *slog.Logger
}

// NewExecuteToolUseCase creates the dispatcher over a loaded document and a
// populated tool repository.
func NewExecuteToolUseCase(
	doc domain.Document,
	repo ToolRepository,
	factory ClientFactory,
	policy ExecutePolicy,
	collector *metrics.Collector,
	logger *slog.Logger,
) *ExecuteToolUseCase {
	methods := policy.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"get"}
	}
	lowered := make([]string, len(methods))
	for i, m := range methods {
		lowered[i] = strings.ToLower(m)
	}
	return &ExecuteToolUseCase{
		doc:        doc,
		repository: repo,
		factory:    factory,
		policy:     policy,
		methods:    lowered,
		collector:  collector,
		logger:     logger.With("usecase", "ExecuteTool"),
	}
}

// Execute runs one tool invocation. Protocol-level failures (missing
// credentials, unknown tool) are returned as errors; execution-level
// failures (the remote system said no) are returned as a result with
// IsError set, so the calling agent can read the failure and self-correct.
func (uc *ExecuteToolUseCase) Execute(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	log := uc.logger.With(slog.String("tool_name", name))

	if len(args) == 0 {
		return nil, &InvalidArgumentsError{Tool: name, Missing: append([]string(nil), credentialKeys...)}
	}

	creds, missing := extractCredentials(args)
	if len(missing) > 0 {
		return nil, &InvalidArgumentsError{Tool: name, Missing: missing}
	}

	tool, err := uc.repository.FindByName(ctx, name)
	if err != nil {
		return nil, &ToolNotFoundError{Tool: name}
	}

	path, method, ok := uc.resolvePath(name)
	if !ok {
		return nil, &ToolNotFoundError{Tool: name, Reason: "could not determine API path"}
	}

	params := buildAPIParams(tool.InputSchema, args)

	log.Info("Executing tool.",
		slog.String("host", creds.Host),
		slog.String("path", path),
		slog.Int("param_count", len(params)))
	uc.collector.RecordToolCall(name)

	client, err := uc.factory(ClientConfig{
		Host:       creds.Host,
		Username:   creds.Username,
		Password:   creds.Password,
		TLSVerify:  uc.policy.TLSVerify,
		Timeout:    uc.policy.Timeout,
		MaxRetries: uc.policy.MaxRetries,
	})
	if err != nil {
		log.Error("Failed to construct API client.", slog.Any("error", err))
		return uc.failureResult(name, err), nil
	}
	defer client.Close()

	result, err := client.Execute(ctx, path, strings.ToUpper(method), params, nil)
	if err != nil {
		log.Error("Tool execution failed.",
			slog.String("error_category", errorCategory(err)),
			slog.Any("error", err))
		return uc.failureResult(name, err), nil
	}

	log.Info("Tool executed successfully.")
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return uc.failureResult(name, fmt.Errorf("failed to encode response: %w", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// extractCredentials pulls the credential bundle out of the arguments,
// reporting every missing field rather than just the first. Non-string
// scalars from sloppy clients (a numeric host, say) are coerced to their
// string form rather than treated as missing.
func extractCredentials(args map[string]interface{}) (unity.Credentials, []string) {
	creds := unity.Credentials{}
	var missing []string
	for _, key := range credentialKeys {
		raw, present := args[key]
		if !present || raw == nil {
			missing = append(missing, key)
			continue
		}
		value, isString := raw.(string)
		if !isString {
			value = fmt.Sprintf("%v", raw)
		}
		if value == "" {
			missing = append(missing, key)
			continue
		}
		switch key {
		case "host":
			creds.Host = value
		case "username":
			creds.Username = value
		case "password":
			creds.Password = value
		}
	}
	return creds, missing
}

// buildAPIParams filters caller arguments down to the tool's own declared
// schema properties (the allowlist), then merges the nested queryParams
// object, last writer wins. Credentials and unknown metadata keys from
// calling agents are dropped here.
func buildAPIParams(schema *domain.Schema, args map[string]interface{}) map[string]interface{} {
	params := make(map[string]interface{})

	for key, value := range args {
		if value == nil {
			continue
		}
		if key == "queryParams" || isCredentialKey(key) {
			continue
		}
		if !schema.HasProperty(key) {
			continue
		}
		params[key] = value
	}

	if queryParams, ok := args["queryParams"].(map[string]interface{}); ok {
		for key, value := range queryParams {
			params[key] = value
		}
	}

	return params
}

func isCredentialKey(key string) bool {
	for _, c := range credentialKeys {
		if key == c {
			return true
		}
	}
	return false
}

// resolvePath maps a tool name back to its (path, method) in the original
// spec. Pass one matches exact operationIds; pass two accounts for
// uniqueness-suffixed names by prefix, and for synthesized names by
// recomputing them.
func (uc *ExecuteToolUseCase) resolvePath(toolName string) (string, string, bool) {
	paths := uc.doc.Paths()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		for _, method := range uc.methods {
			op := uc.doc.Operation(path, method)
			if op == nil {
				continue
			}
			if id, _ := op["operationId"].(string); id != "" && id == toolName {
				return path, method, true
			}
		}
	}

	for _, path := range keys {
		for _, method := range uc.methods {
			op := uc.doc.Operation(path, method)
			if op == nil {
				continue
			}
			id, _ := op["operationId"].(string)
			if id != "" {
				if strings.HasPrefix(toolName, id+"_") {
					return path, method, true
				}
				continue
			}
			generated := domain.ToolNameFromPath(path, method)
			if toolName == generated || strings.HasPrefix(toolName, generated+"_") {
				return path, method, true
			}
		}
	}

	return "", "", false
}

// failureResult wraps an execution-level error as a tagged failure result
// carrying the error category, message, status code when applicable, and a
// structured detail map.
func (uc *ExecuteToolUseCase) failureResult(name string, err error) *mcp.CallToolResult {
	category := errorCategory(err)
	uc.collector.RecordToolError(name, category)

	details := map[string]interface{}{
		"error":   category,
		"message": err.Error(),
		"tool":    name,
	}

	var authErr *unity.AuthenticationError
	var rateErr *unity.RateLimitError
	var apiErr *unity.APIResponseError
	var connErr *unity.ConnectionError
	switch {
	case errors.As(err, &authErr):
		details["status_code"] = 401
		details["details"] = map[string]interface{}{"host": authErr.Host}
	case errors.As(err, &rateErr):
		details["status_code"] = 429
		if rateErr.RetryAfter > 0 {
			details["details"] = map[string]interface{}{"retry_after": rateErr.RetryAfter}
		}
	case errors.As(err, &apiErr):
		details["status_code"] = apiErr.StatusCode
		if apiErr.Body != "" {
			details["details"] = map[string]interface{}{"response_body": apiErr.Body}
		}
	case errors.As(err, &connErr):
		details["details"] = map[string]interface{}{"host": connErr.Host}
	}

	payload, marshalErr := json.MarshalIndent(details, "", "  ")
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(payload))
}

// errorCategory derives the failure category from the error's type name,
// e.g. "AuthenticationError" for *unity.AuthenticationError.
func errorCategory(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "errorString" || name == "wrapError" {
		return "Error"
	}
	return name
}
