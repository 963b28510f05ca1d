package openapi

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/unity-tools/unity-mcp/internal/domain"
)

// Caps applied when enriching tool descriptions from resource schemas.
const (
	maxFieldsDisplay = 20
	maxKeyFields     = 10
	maxEnumValues    = 5
	maxFieldDescLen  = 80
)

// DefaultAllowedMethods restricts generation to read-only operations unless
// mutating verbs are explicitly opted in through configuration.
var DefaultAllowedMethods = []string{"GET"}

// priorityFields are commonly useful Unity resource fields, surfaced first in
// tool descriptions.
var priorityFields = []string{
	"id",
	"name",
	"health",
	"state",
	"status",
	"severity",
	"type",
	"description",
	"message",
	"isAcknowledged",
	"resource",
	"timestamp",
	"sizeTotal",
	"sizeUsed",
	"sizeFree",
	"pool",
	"storageResource",
}

// Generator derives MCP tool descriptors from a Unity OpenAPI document,
// one per allowed (path, method) operation.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a new tool Generator.
func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{logger: logger.With("component", "tool_generator")}
}

// Generate produces tool descriptors for every operation in doc whose method
// is in allowedMethods (case-insensitive, defaults to GET only). Malformed
// operations are skipped with a warning; only a structurally unusable
// document fails the whole run. Output order is deterministic: paths are
// visited in sorted order, methods in allowedMethods order.
func (g *Generator) Generate(doc domain.Document, allowedMethods []string) ([]domain.Tool, error) {
	if !doc.Valid() {
		return nil, fmt.Errorf("spec is not a mapping with a 'paths' key")
	}
	methods := NormalizeMethods(allowedMethods)

	paths := doc.Paths()
	pathKeys := sortedKeys(paths)

	seen := make(map[string]int)
	var tools []domain.Tool
	skipped := 0

	for _, path := range pathKeys {
		pathItem, ok := paths[path].(map[string]interface{})
		if !ok {
			g.logger.Warn("Skipping non-mapping path item.", slog.String("path", path))
			skipped++
			continue
		}
		for _, method := range methods {
			raw, present := pathItem[method]
			if !present {
				continue
			}
			op, ok := raw.(map[string]interface{})
			if !ok {
				g.logger.Warn("Skipping non-mapping operation.",
					slog.String("path", path), slog.String("method", method))
				skipped++
				continue
			}
			tool, err := g.generateTool(doc, path, method, op, seen)
			if err != nil {
				g.logger.Warn("Failed to generate tool for operation, skipping.",
					slog.String("path", path), slog.String("method", method), slog.Any("error", err))
				skipped++
				continue
			}
			tools = append(tools, tool)
		}
	}

	g.logger.Info("Generated MCP tools from OpenAPI spec.",
		slog.Int("tool_count", len(tools)),
		slog.Int("skipped_count", skipped),
		slog.Any("methods", methods))
	return tools, nil
}

// NormalizeMethods lowercases the allowed method set, falling back to the
// read-only default when empty.
func NormalizeMethods(methods []string) []string {
	if len(methods) == 0 {
		methods = DefaultAllowedMethods
	}
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (g *Generator) generateTool(doc domain.Document, path, method string, op map[string]interface{}, seen map[string]int) (domain.Tool, error) {
	name, _ := op["operationId"].(string)
	if name == "" {
		name = domain.ToolNameFromPath(path, method)
	}
	name = uniqueName(name, path, seen)

	base := stringField(op, "summary")
	if base == "" {
		base = stringField(op, "description")
	}
	if base == "" {
		base = fmt.Sprintf("%s %s", strings.ToUpper(method), path)
	}

	isCollection := strings.HasSuffix(path, "/instances")
	resource := resourceFromPath(path)

	description := g.buildDescription(doc, base, resource, isCollection)

	schema, err := buildInputSchema(doc, op, isCollection, resource)
	if err != nil {
		return domain.Tool{}, err
	}

	return domain.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, nil
}

// uniqueName guarantees no two descriptors in one run share a name. The
// first duplicate gets a suffix built from the last two non-parameter path
// segments, or the duplicate counter when the path is too short.
func uniqueName(name, path string, seen map[string]int) string {
	count, dup := seen[name]
	if !dup {
		seen[name] = 0
		return name
	}
	count++
	seen[name] = count

	segs := nonParamSegments(path)
	candidate := fmt.Sprintf("%s_%d", name, count)
	if len(segs) >= 2 {
		candidate = name + "_" + segs[len(segs)-2] + "_" + segs[len(segs)-1]
	}
	if _, taken := seen[candidate]; taken {
		candidate = fmt.Sprintf("%s_%d", name, count)
	}
	seen[candidate] = 0
	return candidate
}

// resourceFromPath extracts the resource name a path addresses.
//
// Unity paths follow two conventions:
//
//	/api/types/{resource}/instances      collection queries
//	/api/instances/{resource}/{id}       instance queries
func resourceFromPath(path string) string {
	parts := strings.Split(path, "/")

	for i, p := range parts {
		if p == "types" && i+1 < len(parts) {
			return parts[i+1]
		}
	}

	for i, p := range parts {
		if p == "instances" && i+1 < len(parts) {
			if !strings.HasPrefix(parts[i+1], "{") {
				return parts[i+1]
			}
			break
		}
	}

	for _, p := range parts {
		if p == "" || strings.HasPrefix(p, "{") {
			continue
		}
		switch p {
		case "api", "types", "instances", "action":
			continue
		}
		return p
	}
	return ""
}

// buildDescription appends available-field, key-field and filter-example
// sections to the base description when the resource schema is resolvable
// and the operation is a collection query.
func (g *Generator) buildDescription(doc domain.Document, base, resource string, isCollection bool) string {
	description := base

	props := resourceProperties(doc, resource)
	if len(props) == 0 || !isCollection {
		return description
	}

	fieldNames := sortedKeys(props)
	shown := fieldNames
	if len(shown) > maxFieldsDisplay {
		shown = shown[:maxFieldsDisplay]
	}
	summary := strings.Join(shown, ", ")
	if len(fieldNames) > maxFieldsDisplay {
		summary += fmt.Sprintf(", ... (%d total fields)", len(fieldNames))
	}
	description += "\n\nAvailable fields for 'fields' parameter: " + summary

	if keyFields := buildKeyFields(doc, props); keyFields != "" {
		description += "\n\nKey fields:\n" + keyFields
	}

	if examples := filterExamples(resource, props); examples != "" {
		description += "\n\nFilter examples (queryParams):\n" + examples
	}

	return description
}

// resourceProperties looks up the schema definition for a resource, trying
// the bare name and two decorated variants, and returns its properties.
func resourceProperties(doc domain.Document, resource string) map[string]interface{} {
	if resource == "" {
		return nil
	}
	schemas := doc.Schemas()
	for _, key := range []string{resource, resource + "_instance", resource + "Instance"} {
		def, ok := schemas[key].(map[string]interface{})
		if !ok || len(def) == 0 {
			continue
		}
		if props, ok := def["properties"].(map[string]interface{}); ok && len(props) > 0 {
			return props
		}
	}
	return nil
}

// buildKeyFields formats the subset of priorityFields present in props, each
// with its truncated description and enum values. Enums may be inline or one
// $ref away in another schema definition.
func buildKeyFields(doc domain.Document, props map[string]interface{}) string {
	var lines []string
	for _, field := range priorityFields {
		raw, ok := props[field]
		if !ok {
			continue
		}
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		line := "- " + field
		if desc := truncate(stringField(prop, "description"), maxFieldDescLen); desc != "" {
			line += ": " + desc
		}
		if values := enumValues(doc, prop); values != "" {
			line += " (values: " + values + ")"
		}
		lines = append(lines, line)

		if len(lines) == maxKeyFields {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// enumValues renders a property's enum, following one level of $ref
// indirection into a named enum definition when the ref name says Enum.
func enumValues(doc domain.Document, prop map[string]interface{}) string {
	if enum, ok := prop["enum"].([]interface{}); ok && len(enum) > 0 {
		return joinEnum(enum)
	}
	ref, _ := prop["$ref"].(string)
	if !strings.Contains(ref, "Enum") {
		return ""
	}
	refParts := strings.Split(ref, "/")
	enumName := refParts[len(refParts)-1]
	def, ok := doc.Schemas()[enumName].(map[string]interface{})
	if !ok {
		return ""
	}
	if enum, ok := def["enum"].([]interface{}); ok && len(enum) > 0 {
		return joinEnum(enum)
	}
	return ""
}

func joinEnum(enum []interface{}) string {
	if len(enum) > maxEnumValues {
		enum = enum[:maxEnumValues]
	}
	values := make([]string, len(enum))
	for i, v := range enum {
		values[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(values, ", ")
}

// filterExamples returns resource-specific Unity filter syntax examples,
// falling back to a generic health filter when the schema exposes a
// health/state-like field.
func filterExamples(resource string, props map[string]interface{}) string {
	var examples []string

	switch resource {
	case "alert":
		examples = []string{
			`{"filter": "isAcknowledged eq false"} - Unacknowledged alerts only`,
			`{"filter": "severity eq 4"} - Critical severity only`,
			`{"filter": "state eq 0"} - Active alerts only`,
		}
	case "lun":
		examples = []string{
			`{"filter": "name lk \"*prod*\""} - LUNs with prod in name`,
			`{"filter": "pool.id eq \"pool_1\""} - LUNs in specific pool`,
		}
	case "storagePool", "pool":
		examples = []string{
			`{"filter": "health.value eq 5"} - Healthy pools only`,
		}
	case "filesystem":
		examples = []string{
			`{"filter": "name lk \"*share*\""} - Filesystems with share in name`,
		}
	case "nasServer":
		examples = []string{
			`{"filter": "health.value eq 5"} - Healthy NAS servers`,
		}
	default:
		_, hasHealth := props["health"]
		_, hasState := props["state"]
		if hasHealth || hasState {
			examples = []string{`{"filter": "health.value eq 5"} - Filter by health status`}
		}
	}

	if len(examples) == 0 {
		return ""
	}
	for i, ex := range examples {
		examples[i] = "- " + ex
	}
	return strings.Join(examples, "\n")
}

// buildInputSchema constructs the tool's input schema: the three mandatory
// credential properties, the operation's own query/path parameters, and the
// four conventional pagination/filter properties for collection queries.
func buildInputSchema(doc domain.Document, op map[string]interface{}, isCollection bool, resource string) (*domain.Schema, error) {
	props := map[string]*domain.Schema{
		"host": {
			Type:        "string",
			Description: "Unity host (e.g., unity.example.com)",
		},
		"username": {
			Type:        "string",
			Description: "Unity username",
		},
		"password": {
			Type:        "string",
			Description: "Unity password",
		},
	}
	required := []string{"host", "username", "password"}

	if raw, present := op["parameters"]; present {
		list, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("operation parameters is not a list")
		}
		for i, entry := range list {
			param, ok := entry.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("parameter %d is not a mapping", i)
			}
			name, _ := param["name"].(string)
			if name == "" {
				continue
			}
			in, _ := param["in"].(string)
			if in != "query" && in != "path" {
				continue
			}

			schema := &domain.Schema{
				Type:        schemaType(stringField(param, "type")),
				Description: stringField(param, "description"),
			}
			if enum, ok := param["enum"].([]interface{}); ok {
				schema.Enum = enum
			}
			props[name] = schema

			if req, _ := param["required"].(bool); req {
				required = append(required, name)
			}
		}
	}

	if isCollection {
		props["fields"] = &domain.Schema{
			Type:        "string",
			Description: fieldsDescription(doc, resource),
		}
		props["per_page"] = &domain.Schema{
			Type:        "integer",
			Description: "Maximum number of results per page (default: 2000)",
		}
		props["page"] = &domain.Schema{
			Type:        "integer",
			Description: "Page number for pagination (starts at 1)",
		}
		props["queryParams"] = &domain.Schema{
			Type: "object",
			Description: "Additional query filters using Unity filter syntax " +
				`(e.g., {'filter': 'severity eq 4', 'compact': 'true'})`,
			AdditionalProperties: &domain.Schema{Type: "string"},
		}
	}

	return &domain.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
		// Clients like n8n attach metadata keys; the dispatcher drops them.
		AdditionalProperties: true,
	}, nil
}

// fieldsDescription enriches the 'fields' property description with the
// resource's actual field names when the schema definition is resolvable.
func fieldsDescription(doc domain.Document, resource string) string {
	props := resourceProperties(doc, resource)
	if len(props) == 0 {
		return "Comma-separated list of field names to return (e.g., 'id,name,health')"
	}
	fieldNames := sortedKeys(props)
	shown := fieldNames
	if len(shown) > maxFieldsDisplay {
		shown = shown[:maxFieldsDisplay]
	}
	list := strings.Join(shown, ", ")
	if len(fieldNames) > maxFieldsDisplay {
		list += fmt.Sprintf(", ... (%d total)", len(fieldNames))
	}
	return "Comma-separated list of field names to return. Available fields: " + list
}

// schemaType maps an OpenAPI parameter type to a JSON Schema type. Unknown
// types default to string.
func schemaType(openapiType string) string {
	switch openapiType {
	case "integer", "number":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		return "array"
	case "object":
		return "object"
	default:
		return "string"
	}
}

// --- helpers ---

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonParamSegments(path string) []string {
	var segs []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && !strings.HasPrefix(p, "{") {
			segs = append(segs, p)
		}
	}
	return segs
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
