// Package swaggerconv converts Swagger 2.0 documents, as shipped by Unisphere,
// into OpenAPI 3.0 JSON suitable for tool generation.
package swaggerconv

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"gopkg.in/yaml.v3"
)

// Options controls the conversion output.
type Options struct {
	// StripHTML removes HTML markup from description fields. Unity's spec
	// embeds <br>, <b> and <li> tags that only add noise for LLM consumers.
	StripHTML bool

	// Indent pretty-prints the output JSON.
	Indent bool
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Convert takes raw Swagger 2.0 content (JSON or YAML) and returns an
// OpenAPI 3.0 JSON document. $ref targets are rewritten from
// #/definitions/... to #/components/schemas/... by the conversion.
func Convert(input []byte, opts Options) ([]byte, error) {
	jsonInput, err := toJSON(input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input document: %w", err)
	}

	var doc2 openapi2.T
	if err := json.Unmarshal(jsonInput, &doc2); err != nil {
		return nil, fmt.Errorf("failed to decode Swagger 2.0 document: %w", err)
	}
	if doc2.Swagger == "" {
		return nil, fmt.Errorf("input is not a Swagger 2.0 document (missing swagger field)")
	}

	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to OpenAPI 3.0: %w", err)
	}

	raw, err := json.Marshal(doc3)
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAPI 3.0 document: %w", err)
	}

	if opts.StripHTML {
		var tree interface{}
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("failed to reparse converted document: %w", err)
		}
		stripDescriptions(tree)
		raw, err = json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode converted document: %w", err)
		}
	}

	if opts.Indent {
		var buf interface{}
		if err := json.Unmarshal(raw, &buf); err != nil {
			return nil, err
		}
		return json.MarshalIndent(buf, "", "  ")
	}
	return raw, nil
}

// toJSON normalizes the input to JSON. YAML input is decoded with yaml.v3
// and re-encoded; JSON input passes through untouched.
func toJSON(input []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(input))
	if strings.HasPrefix(trimmed, "{") {
		return input, nil
	}
	var tree interface{}
	if err := yaml.Unmarshal(input, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// stripDescriptions walks the document and removes HTML tags from every
// description string, collapsing the whitespace the tags leave behind.
func stripDescriptions(node interface{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if key == "description" {
				if s, ok := value.(string); ok {
					v[key] = StripHTML(s)
					continue
				}
			}
			stripDescriptions(value)
		}
	case []interface{}:
		for _, item := range v {
			stripDescriptions(item)
		}
	}
}

// StripHTML removes HTML markup from a string and collapses runs of
// whitespace into single spaces.
func StripHTML(s string) string {
	cleaned := htmlTagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
