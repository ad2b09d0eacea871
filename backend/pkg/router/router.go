package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"redalert/backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type ParameterIn string

const (
	ParameterInPath   ParameterIn = "path"
	ParameterInQuery  ParameterIn = "query"
	ParameterInHeader ParameterIn = "header"
)

// Security scheme names understood by the OpenAPI renderer.
const (
	SecurityBearer = "bearerAuth"
	SecurityAPIKey = "apiKey"
)

// ParameterSpec documents a path, query or header parameter.
type ParameterSpec struct {
	In          ParameterIn
	Description string
	Required    bool
	Type        any
}

// RequestBodySpec documents a JSON request body.
type RequestBodySpec struct {
	Type     any
	Examples map[string]any
}

// ResponseSpec documents one response status. Type may be nil for empty bodies.
type ResponseSpec struct {
	Description string
	Type        any
	Examples    map[string]any
}

// RouteSpec describes a single HTTP operation.
type RouteSpec struct {
	OperationID string
	Summary     string
	Description string
	Group       string
	Deprecated  string
	Security    []string
	RequestType *RequestBodySpec
	Handler     http.HandlerFunc
	Parameters  map[string]ParameterSpec
	Responses   map[int]ResponseSpec

	method   string
	fullPath string
}

// Method returns the HTTP method the spec was registered under.
func (s RouteSpec) Method() string { return s.method }

// Path returns the full chi pattern the spec was registered under.
func (s RouteSpec) Path() string { return s.fullPath }

type registry struct {
	operationIDs map[string]struct{}
	routes       []RouteSpec
}

// RouteBuilder wraps a chi router and records the spec of every route it mounts.
type RouteBuilder struct {
	r      chi.Router
	prefix string
	reg    *registry
	l      *slog.Logger
}

// NewRouteBuilder returns a builder mounting routes on r.
func NewRouteBuilder(l *slog.Logger, r chi.Router) *RouteBuilder {
	return &RouteBuilder{
		r:   r,
		reg: &registry{operationIDs: map[string]struct{}{}},
		l:   l.With(slog.String("component", "route-builder")),
	}
}

// Router returns the underlying chi router.
func (rb *RouteBuilder) Router() chi.Router {
	return rb.r
}

// Use appends middleware to the current scope.
func (rb *RouteBuilder) Use(middlewares ...func(http.Handler) http.Handler) {
	rb.r.Use(middlewares...)
}

// Route mounts a sub-router under pattern.
func (rb *RouteBuilder) Route(pattern string, fn func(rb *RouteBuilder)) {
	rb.r.Route(pattern, func(r chi.Router) {
		fn(&RouteBuilder{r: r, prefix: joinPath(rb.prefix, pattern), reg: rb.reg, l: rb.l})
	})
}

// Group creates an inline scope sharing the path prefix, for scoped middleware.
func (rb *RouteBuilder) Group(fn func(rb *RouteBuilder)) {
	rb.r.Group(func(r chi.Router) {
		fn(&RouteBuilder{r: r, prefix: rb.prefix, reg: rb.reg, l: rb.l})
	})
}

// Routes returns every registered spec in registration order.
func (rb *RouteBuilder) Routes() []RouteSpec {
	return rb.reg.routes
}

// Register validates spec and mounts its handler.
func (rb *RouteBuilder) Register(method, path string, spec RouteSpec) error {
	spec.method = method
	spec.fullPath = joinPath(rb.prefix, path)

	if err := validateRouteSpec(spec); err != nil {
		return fmt.Errorf("invalid route %s %s: %w", method, spec.fullPath, err)
	}

	if err := validateParameters(spec); err != nil {
		return err
	}

	if _, exists := rb.reg.operationIDs[spec.OperationID]; exists {
		return fmt.Errorf("duplicate operationID: %s", spec.OperationID)
	}

	rb.reg.operationIDs[spec.OperationID] = struct{}{}
	rb.reg.routes = append(rb.reg.routes, spec)
	rb.r.Method(method, path, spec.Handler)

	rb.l.Debug("Registered route", slog.String("method", method), slog.String("path", spec.fullPath), slog.String("operationID", spec.OperationID))

	return nil
}

func (rb *RouteBuilder) mustRegister(method, path string, spec RouteSpec) {
	if err := rb.Register(method, path, spec); err != nil {
		rb.l.Error("Failed to register route", slog.String("method", method), slog.String("path", path), utils.ErrAttr(err))
		os.Exit(1)
	}
}

func (rb *RouteBuilder) MustGet(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodGet, path, spec)
}

func (rb *RouteBuilder) MustPost(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodPost, path, spec)
}

func (rb *RouteBuilder) MustPut(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodPut, path, spec)
}

func (rb *RouteBuilder) MustDelete(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodDelete, path, spec)
}

func joinPath(prefix, path string) string {
	full := strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	for strings.Contains(full, "//") {
		full = strings.ReplaceAll(full, "//", "/")
	}

	if len(full) > 1 {
		full = strings.TrimSuffix(full, "/")
	}

	return full
}
