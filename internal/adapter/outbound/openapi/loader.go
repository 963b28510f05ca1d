package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/unity-tools/unity-mcp/internal/domain"
)

// Loader reads an OpenAPI document from the local filesystem. The Unity spec
// is loaded once at startup; both JSON and YAML encodings are accepted.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new spec Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger.With("component", "openapi_loader")}
}

// Load reads and parses the spec file at path. The document is kept in raw
// map form (see domain.Document); a structured kin-openapi validation pass
// runs as well, but only to surface warnings: the Unity spec mixes Swagger
// 2.0 and 3.0 conventions and partial validity is expected.
func (l *Loader) Load(ctx context.Context, path string) (domain.Document, error) {
	log := l.logger.With(slog.String("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("openapi spec file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read openapi spec %s: %w", path, err)
	}

	doc, err := parseSpec(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi spec %s: %w", path, err)
	}
	if !doc.Valid() {
		return nil, fmt.Errorf("openapi spec %s is not a mapping with a 'paths' key", path)
	}

	l.validateAdvisory(ctx, log, raw)

	log.Info("Loaded OpenAPI spec.", slog.Int("path_count", len(doc.Paths())))
	return doc, nil
}

// parseSpec decodes raw bytes by extension, falling back to trying JSON then
// YAML when the extension is unknown.
func parseSpec(raw []byte, ext string) (domain.Document, error) {
	var doc domain.Document
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	default:
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr != nil {
			if yamlErr := yaml.Unmarshal(raw, &doc); yamlErr != nil {
				return nil, fmt.Errorf("not valid JSON (%v) or YAML (%v)", jsonErr, yamlErr)
			}
		}
	}
	return doc, nil
}

// validateAdvisory runs the document through kin-openapi and logs (but never
// returns) validation problems.
func (l *Loader) validateAdvisory(ctx context.Context, log *slog.Logger, raw []byte) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	parsed, err := loader.LoadFromData(raw)
	if err != nil {
		log.Warn("Spec did not load as OpenAPI 3.0, continuing with raw document.", slog.Any("error", err))
		return
	}
	if err := parsed.Validate(ctx); err != nil {
		log.Warn("OpenAPI schema validation failed.", slog.Any("validation_error", err))
	}
}
