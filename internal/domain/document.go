package domain

// Document is a parsed OpenAPI document kept in its raw map form. The Unity
// spec ships as Swagger 2.0 converted to a 3.0 shape, so schema definitions
// may live under either "definitions" or "components.schemas"; keeping the
// tree untyped lets the generator handle both without conversion.
type Document map[string]interface{}

// Valid reports whether the document is structurally usable for generation:
// a mapping with a "paths" key holding a mapping.
func (d Document) Valid() bool {
	if d == nil {
		return false
	}
	_, ok := d["paths"].(map[string]interface{})
	return ok
}

// Paths returns the path → path-item mapping, or nil if absent.
func (d Document) Paths() map[string]interface{} {
	paths, _ := d["paths"].(map[string]interface{})
	return paths
}

// Schemas returns the schema dictionary, preferring OpenAPI 3.0
// components.schemas and falling back to Swagger 2.0 definitions.
func (d Document) Schemas() map[string]interface{} {
	if components, ok := d["components"].(map[string]interface{}); ok {
		if schemas, ok := components["schemas"].(map[string]interface{}); ok && len(schemas) > 0 {
			return schemas
		}
	}
	defs, _ := d["definitions"].(map[string]interface{})
	return defs
}

// Operation returns the operation object for a path and lowercase method,
// or nil if either is absent or not a mapping.
func (d Document) Operation(path, method string) map[string]interface{} {
	item, ok := d.Paths()[path].(map[string]interface{})
	if !ok {
		return nil
	}
	op, _ := item[method].(map[string]interface{})
	return op
}
