package openapi_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unity-tools/unity-mcp/internal/adapter/outbound/openapi"
	"github.com/unity-tools/unity-mcp/internal/domain"
)

func newTestGenerator(t *testing.T) *openapi.Generator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return openapi.NewGenerator(logger)
}

func alertDoc() domain.Document {
	return domain.Document{
		"paths": map[string]interface{}{
			"/api/types/alert/instances": map[string]interface{}{
				"get": map[string]interface{}{
					"operationId": "alertCollectionQuery",
					"summary":     "Query all alerts",
					"parameters": []interface{}{
						map[string]interface{}{
							"name":        "compact",
							"in":          "query",
							"type":        "boolean",
							"description": "Omit metadata from response",
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"alert": map[string]interface{}{
					"properties": map[string]interface{}{
						"id":             map[string]interface{}{"type": "string"},
						"severity":       map[string]interface{}{"type": "integer", "description": "Severity level", "enum": []interface{}{0, 1, 2, 3, 4, 5, 6}},
						"isAcknowledged": map[string]interface{}{"type": "boolean"},
						"message":        map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
}

func TestGenerator_Generate_CollectionTool(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	gen := newTestGenerator(t)
	tools, err := gen.Generate(alertDoc(), nil)
	require.NoError(err)
	require.Len(tools, 1)

	tool := tools[0]
	assert.Equal("alertCollectionQuery", tool.Name)
	assert.Contains(tool.Description, "Query all alerts")

	schema := tool.InputSchema
	require.NotNil(schema)
	assert.Equal("object", schema.Type)
	assert.Equal([]string{"host", "username", "password"}, schema.Required)
	assert.Equal(true, schema.AdditionalProperties)

	for _, prop := range []string{"host", "username", "password", "compact", "fields", "per_page", "page", "queryParams"} {
		assert.True(schema.HasProperty(prop), "expected property %s", prop)
	}

	assert.Equal("boolean", schema.Properties["compact"].Type)
	assert.Equal("integer", schema.Properties["per_page"].Type)
	assert.Equal("object", schema.Properties["queryParams"].Type)
}

func TestGenerator_Generate_DescriptionEnrichment(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	gen := newTestGenerator(t)
	tools, err := gen.Generate(alertDoc(), nil)
	require.NoError(err)
	require.Len(tools, 1)

	desc := tools[0].Description
	assert.Contains(desc, "Available fields for 'fields' parameter:")
	assert.Contains(desc, "id, isAcknowledged, message, severity")
	assert.Contains(desc, "Key fields:")
	assert.Contains(desc, "- severity: Severity level (values: 0, 1, 2, 3, 4)")
	assert.Contains(desc, "Filter examples (queryParams):")
	assert.Contains(desc, `severity eq 4`)
}

func TestGenerator_Generate_NameSynthesis(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	doc := domain.Document{
		"paths": map[string]interface{}{
			"/api/types/lun/instances": map[string]interface{}{
				"get": map[string]interface{}{},
			},
			"/api/instances/storageResource/{id}": map[string]interface{}{
				"get": map[string]interface{}{},
			},
		},
	}

	gen := newTestGenerator(t)
	tools, err := gen.Generate(doc, nil)
	require.NoError(err)
	require.Len(tools, 2)

	// Paths are visited in sorted order.
	assert.Equal("getInstancesStorageResource", tools[0].Name)
	assert.Equal("getTypesLunInstances", tools[1].Name)
}

func TestGenerator_Generate_UniqueNames(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	doc := domain.Document{
		"paths": map[string]interface{}{
			"/api/types/lun/instances": map[string]interface{}{
				"get": map[string]interface{}{"operationId": "query"},
			},
			"/api/types/pool/instances": map[string]interface{}{
				"get": map[string]interface{}{"operationId": "query"},
			},
		},
	}

	gen := newTestGenerator(t)
	tools, err := gen.Generate(doc, nil)
	require.NoError(err)
	require.Len(tools, 2)

	assert.Equal("query", tools[0].Name)
	assert.Equal("query_pool_instances", tools[1].Name)
}

func TestGenerator_Generate_UniqueNamesShortPaths(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Paths with fewer than two non-parameter segments cannot carry a
	// segment-based suffix; duplicates fall back to the bare counter.
	doc := domain.Document{
		"paths": map[string]interface{}{
			"/lun": map[string]interface{}{
				"get": map[string]interface{}{"operationId": "query"},
			},
			"/pool": map[string]interface{}{
				"get": map[string]interface{}{"operationId": "query"},
			},
		},
	}

	gen := newTestGenerator(t)
	tools, err := gen.Generate(doc, nil)
	require.NoError(err)
	require.Len(tools, 2)

	assert.Equal("query", tools[0].Name)
	assert.Equal("query_1", tools[1].Name)
}

func TestGenerator_Generate_AllowedMethods(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	doc := domain.Document{
		"paths": map[string]interface{}{
			"/api/types/lun/instances": map[string]interface{}{
				"get":  map[string]interface{}{"operationId": "getLuns"},
				"post": map[string]interface{}{"operationId": "createLun"},
			},
		},
	}

	gen := newTestGenerator(t)

	tools, err := gen.Generate(doc, nil)
	require.NoError(err)
	require.Len(tools, 1)
	assert.Equal("getLuns", tools[0].Name)

	tools, err = gen.Generate(doc, []string{"GET", "POST"})
	require.NoError(err)
	require.Len(tools, 2)
	assert.Equal("getLuns", tools[0].Name)
	assert.Equal("createLun", tools[1].Name)
}

func TestGenerator_Generate_SkipsMalformedOperations(t *testing.T) {
	require := require.New(t)

	doc := domain.Document{
		"paths": map[string]interface{}{
			"/api/types/broken/instances": map[string]interface{}{
				"get": map[string]interface{}{
					"operationId": "broken",
					"parameters":  "not-a-list",
				},
			},
			"/api/types/lun/instances": map[string]interface{}{
				"get": map[string]interface{}{"operationId": "getLuns"},
			},
			"/api/types/odd/instances": "not-a-mapping",
		},
	}

	gen := newTestGenerator(t)
	tools, err := gen.Generate(doc, nil)
	require.NoError(err)
	require.Len(tools, 1)
	require.Equal("getLuns", tools[0].Name)
}

func TestGenerator_Generate_InvalidDocument(t *testing.T) {
	gen := newTestGenerator(t)

	_, err := gen.Generate(domain.Document{"info": map[string]interface{}{}}, nil)
	assert.Error(t, err)

	_, err = gen.Generate(nil, nil)
	assert.Error(t, err)
}

func TestGenerator_Generate_Deterministic(t *testing.T) {
	require := require.New(t)

	doc := alertDoc()
	doc.Paths()["/api/types/lun/instances"] = map[string]interface{}{
		"get": map[string]interface{}{},
	}

	gen := newTestGenerator(t)
	first, err := gen.Generate(doc, nil)
	require.NoError(err)
	second, err := gen.Generate(doc, nil)
	require.NoError(err)

	require.Equal(first, second)
}

func TestGenerator_Generate_RequiredParameters(t *testing.T) {
	require := require.New(t)

	doc := domain.Document{
		"paths": map[string]interface{}{
			"/api/instances/lun/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"operationId": "getLun",
					"parameters": []interface{}{
						map[string]interface{}{
							"name":     "id",
							"in":       "path",
							"type":     "string",
							"required": true,
						},
						map[string]interface{}{
							"name": "fields",
							"in":   "query",
							"type": "string",
						},
						map[string]interface{}{
							"name": "Authorization",
							"in":   "header",
							"type": "string",
						},
					},
				},
			},
		},
	}

	gen := newTestGenerator(t)
	tools, err := gen.Generate(doc, nil)
	require.NoError(err)
	require.Len(tools, 1)

	schema := tools[0].InputSchema
	require.Equal([]string{"host", "username", "password", "id"}, schema.Required)
	require.True(schema.HasProperty("id"))
	require.True(schema.HasProperty("fields"))
	require.False(schema.HasProperty("Authorization"), "header parameters are not exposed")
	// Not a collection path, so no pagination properties.
	require.False(schema.HasProperty("per_page"))
	require.False(schema.HasProperty("queryParams"))
}
