package domain

import "encoding/json"

// Tool represents a callable capability derived from one (path, method) pair
// of the Unity OpenAPI document, compliant with the Model Context Protocol.
type Tool struct {
	// Name is unique within one generation run.
	Name string `json:"name"`

	// Description is the operation summary enriched with schema information
	// (available fields, key fields, filter examples) for LLM context.
	Description string `json:"description"`

	// InputSchema defines the arguments the tool accepts. It is always an
	// object schema requiring at least host, username and password.
	InputSchema *Schema `json:"inputSchema"`
}

// Schema is a JSON-Schema-like object represented as plain data so tool
// inputs can be validated generically at dispatch time.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []interface{}      `json:"enum,omitempty"`

	// AdditionalProperties is either a bool or a *Schema. Tool input schemas
	// set it to true: callers may send unknown keys, which the dispatcher
	// discards via allowlist filtering.
	AdditionalProperties interface{} `json:"additionalProperties,omitempty"`
}

// MarshalJSONSchema serializes the schema for MCP tool registration.
func (s *Schema) MarshalJSONSchema() (json.RawMessage, error) {
	return json.Marshal(s)
}

// HasProperty reports whether the schema declares the given property.
func (s *Schema) HasProperty(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Properties[name]
	return ok
}
