package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type pingResponse struct {
	Message string `json:"message"`
}

func newBuilder() *RouteBuilder {
	return NewRouteBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)), chi.NewRouter())
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func baseSpec(id string) RouteSpec {
	return RouteSpec{
		OperationID: id,
		Summary:     "summary",
		Description: "description",
		Group:       "Core",
		Handler:     okHandler,
		Responses:   map[int]ResponseSpec{200: {Description: "ok", Type: pingResponse{}}},
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct{ prefix, path, want string }{
		{"", "/ping", "/ping"},
		{"/api", "/ping", "/api/ping"},
		{"/api/", "ping/", "/api/ping"},
		{"/api", "/", "/api"},
		{"", "/", "/"},
	}

	for _, tt := range tests {
		if got := joinPath(tt.prefix, tt.path); got != tt.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		mutate  func(*RouteSpec)
		wantErr string
	}{
		{name: "valid", path: "/ping"},
		{name: "missing summary", path: "/ping", mutate: func(s *RouteSpec) { s.Summary = "" }, wantErr: "Summary"},
		{name: "missing handler", path: "/ping", mutate: func(s *RouteSpec) { s.Handler = nil }, wantErr: "Handler"},
		{name: "no responses", path: "/ping", mutate: func(s *RouteSpec) { s.Responses = nil }, wantErr: "response"},
		{name: "undocumented path param", path: "/contacts/{town}", wantErr: "not documented"},
		{
			name: "documented path param",
			path: "/contacts/{town}",
			mutate: func(s *RouteSpec) {
				s.Parameters = map[string]ParameterSpec{"town": {In: ParameterInPath, Description: "Town", Required: true, Type: new(string)}}
			},
		},
		{
			name: "optional path param",
			path: "/contacts/{town}",
			mutate: func(s *RouteSpec) {
				s.Parameters = map[string]ParameterSpec{"town": {In: ParameterInPath, Description: "Town", Type: new(string)}}
			},
			wantErr: "must be required",
		},
		{name: "bad security", path: "/ping", mutate: func(s *RouteSpec) { s.Security = []string{"oauth"} }, wantErr: "unknown security"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec := baseSpec("op")
			if tt.mutate != nil {
				tt.mutate(&spec)
			}

			err := newBuilder().Register(http.MethodGet, tt.path, spec)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDuplicateOperationID(t *testing.T) {
	t.Parallel()

	rb := newBuilder()
	if err := rb.Register(http.MethodGet, "/a", baseSpec("same")); err != nil {
		t.Fatal(err)
	}

	var err error
	rb.Route("/api", func(rb *RouteBuilder) {
		err = rb.Register(http.MethodGet, "/b", baseSpec("same"))
	})

	if err == nil || !strings.Contains(err.Error(), "duplicate operationID") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRouteAndOpenAPI(t *testing.T) {
	t.Parallel()

	rb := newBuilder()
	rb.Route("/api", func(rb *RouteBuilder) {
		rb.MustGet("/ping", baseSpec("ping"))
		rb.Group(func(rb *RouteBuilder) {
			spec := baseSpec("getContact")
			spec.Security = []string{SecurityBearer}
			spec.Parameters = map[string]ParameterSpec{"town": {In: ParameterInPath, Description: "Town", Required: true, Type: new(string)}}
			rb.MustGet("/contacts/{town}", spec)
		})
	})

	rec := httptest.NewRecorder()
	rb.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/naic", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("route not mounted, status %d", rec.Code)
	}

	routes := rb.Routes()
	if len(routes) != 2 || routes[1].Path() != "/api/contacts/{town}" || routes[1].Method() != http.MethodGet {
		t.Fatalf("unexpected routes %+v", routes)
	}

	doc, err := rb.OpenAPI(Info{Title: "Test", Version: "1"})
	if err != nil {
		t.Fatal(err)
	}

	item := doc.Paths.Find("/api/contacts/{town}")
	if item == nil || item.Get == nil {
		t.Fatal("contacts operation missing from document")
	}
	if item.Get.OperationID != "getContact" || len(item.Get.Parameters) != 1 {
		t.Errorf("unexpected operation %+v", item.Get)
	}
	if item.Get.Security == nil || len(*item.Get.Security) != 1 {
		t.Error("expected bearer security requirement")
	}
	if item.Get.Responses.Status(200) == nil {
		t.Error("expected 200 response")
	}
}

func TestDocsHandler(t *testing.T) {
	t.Parallel()

	rb := newBuilder()
	rb.MustGet("/ping", baseSpec("ping"))

	for _, tt := range []struct {
		yaml        bool
		contentType string
		contains    string
	}{
		{yaml: false, contentType: "application/json", contains: `"operationId": "ping"`},
		{yaml: true, contentType: "application/yaml", contains: "operationId: ping"},
	} {
		rec := httptest.NewRecorder()
		rb.DocsHandler(Info{Title: "Test", Version: "1"}, tt.yaml)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != tt.contentType {
			t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
		}
		if !strings.Contains(rec.Body.String(), tt.contains) {
			t.Errorf("body missing %q:\n%s", tt.contains, rec.Body.String())
		}
	}
}
