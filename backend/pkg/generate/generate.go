// Package generate writes the service's API documentation to disk: the
// OpenAPI document of the HTTP routes, TypeScript declarations of the wire
// types and a JSON catalogue of routes, MQTT operations, types and tables.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/oasdiff/yaml"

	"redalert/backend/pkg/dialect"
	"redalert/backend/pkg/mqtt"
	"redalert/backend/pkg/router"
	"redalert/backend/pkg/utils"
)

const (
	OpenAPIFileName = "openapi.yaml"
	DocsFileName    = "api_docs.json"
)

// HTTPOperation is the catalogue entry of one route.
type HTTPOperation struct {
	OperationID string   `json:"operationId"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Summary     string   `json:"summary"`
	Group       string   `json:"group"`
	Security    []string `json:"security,omitempty"`
	Deprecated  string   `json:"deprecated,omitempty"`
}

// APIDocumentation is the content of api_docs.json.
type APIDocumentation struct {
	Info           router.Info      `json:"info"`
	HTTPOperations []HTTPOperation  `json:"httpOperations"`
	MQTTOperations []mqtt.Operation `json:"mqttOperations"`
	Types          []TypeEntry      `json:"types,omitempty"`
	Database       *DatabaseStats   `json:"database,omitempty"`
}

// Sources are the registries the documentation is read from. DB and
// TypePackages are optional.
type Sources struct {
	Routes  *router.RouteBuilder
	MQTT    *mqtt.MQTTBuilder
	DB      *sqlx.DB
	Dialect dialect.Dialect
	// TypePackages are Go import paths rendered into types.ts.
	TypePackages []string
}

// Generate writes openapi.yaml, api_docs.json and, with TypePackages set,
// types.ts into dir.
func Generate(ctx context.Context, l *slog.Logger, info router.Info, src Sources, dir string) error {
	l = l.With(slog.String("component", "docs-generator"))

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}

	spec, err := src.Routes.OpenAPI(info)
	if err != nil {
		return fmt.Errorf("failed to render OpenAPI spec: %w", err)
	}

	yamlData, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode OpenAPI spec: %w", err)
	}

	specPath := filepath.Join(dir, OpenAPIFileName)
	if err := os.WriteFile(specPath, yamlData, 0o600); err != nil {
		return fmt.Errorf("failed to write OpenAPI spec: %w", err)
	}

	l.Info("OpenAPI spec written", slog.String("file", specPath))

	doc := APIDocumentation{
		Info:           info,
		HTTPOperations: httpOperations(src.Routes.Routes()),
		MQTTOperations: []mqtt.Operation{},
	}

	if src.MQTT != nil {
		doc.MQTTOperations = src.MQTT.Operations()
	}

	if len(src.TypePackages) > 0 {
		doc.Types, err = loadTypes(src.TypePackages)
		if err != nil {
			return err
		}

		if err := writeTypeScript(l, src.TypePackages, filepath.Join(dir, TypeScriptFileName)); err != nil {
			return err
		}
	}

	if src.DB != nil {
		stats, err := GetDatabaseStats(ctx, src.DB, src.Dialect)
		if err != nil {
			return err
		}

		doc.Database = &stats
	}

	docsJSON, err := utils.ToJSONIndent(doc)
	if err != nil {
		return fmt.Errorf("failed to encode docs JSON: %w", err)
	}

	docsPath := filepath.Join(dir, DocsFileName)
	if err := os.WriteFile(docsPath, docsJSON, 0o600); err != nil {
		return fmt.Errorf("failed to write docs JSON: %w", err)
	}

	l.Info("API documentation written", slog.String("file", docsPath),
		slog.Int("httpOperations", len(doc.HTTPOperations)), slog.Int("mqttOperations", len(doc.MQTTOperations)))

	return nil
}

func httpOperations(routes []router.RouteSpec) []HTTPOperation {
	ops := make([]HTTPOperation, 0, len(routes))

	for _, r := range routes {
		ops = append(ops, HTTPOperation{
			OperationID: r.OperationID,
			Method:      r.Method(),
			Path:        r.Path(),
			Summary:     r.Summary,
			Group:       r.Group,
			Security:    r.Security,
			Deprecated:  r.Deprecated,
		})
	}

	return ops
}
