package router

import (
	"fmt"
	"net/http"
	"sort"

	"redalert/backend/pkg/utils"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/oasdiff/yaml"
)

// Info is the document-level metadata of the rendered OpenAPI spec.
type Info struct {
	Title       string
	Version     string
	Description string
}

// OpenAPI renders every registered route as an OpenAPI 3 document.
func (rb *RouteBuilder) OpenAPI(info Info) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				SecurityBearer: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
				SecurityAPIKey: &openapi3.SecuritySchemeRef{Value: openapi3.NewSecurityScheme().
					WithType("apiKey").WithIn("header").WithName("X-API-Key")},
			},
		},
	}

	for _, route := range rb.reg.routes {
		op, err := buildOperation(route)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", route.OperationID, err)
		}

		doc.AddOperation(route.fullPath, route.method, op)
	}

	return doc, nil
}

func buildOperation(route RouteSpec) (*openapi3.Operation, error) {
	op := &openapi3.Operation{
		OperationID: route.OperationID,
		Summary:     route.Summary,
		Description: route.Description,
		Tags:        []string{route.Group},
		Deprecated:  route.Deprecated != "",
	}

	if len(route.Security) > 0 {
		req := openapi3.NewSecurityRequirement()
		for _, s := range route.Security {
			req = req.Authenticate(s)
		}
		op.Security = openapi3.NewSecurityRequirements().With(req)
	}

	names := make([]string, 0, len(route.Parameters))
	for name := range route.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := route.Parameters[name]

		schema, err := openapi3gen.NewSchemaRefForValue(p.Type, nil)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}

		param := &openapi3.Parameter{
			Name:        name,
			In:          string(p.In),
			Description: p.Description,
			Required:    p.Required,
			Schema:      schema,
		}
		op.AddParameter(param)
	}

	if route.RequestType != nil {
		schema, err := openapi3gen.NewSchemaRefForValue(route.RequestType.Type, nil)
		if err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}

		content := openapi3.NewContentWithJSONSchemaRef(schema)
		content["application/json"].Examples = examples(route.RequestType.Examples)
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithContent(content)}
	}

	codes := make([]int, 0, len(route.Responses))
	for code := range route.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	responses := make([]openapi3.NewResponsesOption, 0, len(codes))

	for _, code := range codes {
		spec := route.Responses[code]
		resp := openapi3.NewResponse().WithDescription(spec.Description)

		if spec.Type != nil {
			schema, err := openapi3gen.NewSchemaRefForValue(spec.Type, nil)
			if err != nil {
				return nil, fmt.Errorf("response %d: %w", code, err)
			}

			content := openapi3.NewContentWithJSONSchemaRef(schema)
			content["application/json"].Examples = examples(spec.Examples)
			resp.Content = content
		}

		responses = append(responses, openapi3.WithStatus(code, &openapi3.ResponseRef{Value: resp}))
	}

	op.Responses = openapi3.NewResponses(responses...)

	return op, nil
}

func examples(in map[string]any) openapi3.Examples {
	if len(in) == 0 {
		return nil
	}

	out := openapi3.Examples{}
	for name, v := range in {
		out[name] = &openapi3.ExampleRef{Value: openapi3.NewExample(v)}
	}

	return out
}

// DocsHandler serves the rendered document as JSON or, when yamlOutput is set, YAML.
func (rb *RouteBuilder) DocsHandler(info Info, yamlOutput bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		doc, err := rb.OpenAPI(info)
		if err != nil {
			http.Error(w, "failed to render OpenAPI document", http.StatusInternalServerError)
			return
		}

		var (
			body        []byte
			contentType string
		)

		if yamlOutput {
			body, err = yaml.Marshal(doc)
			contentType = "application/yaml"
		} else {
			body, err = utils.ToJSONIndent(doc)
			contentType = "application/json"
		}

		if err != nil {
			http.Error(w, "failed to encode OpenAPI document", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
