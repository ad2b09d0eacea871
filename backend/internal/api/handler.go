package api

import (
	"log/slog"
	"net/http"

	"redalert/backend/internal/account"
	"redalert/backend/internal/services"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/pkg/router"
	"redalert/backend/pkg/utils"
)

const (
	CoreGroup      = "Core"
	AuthGroup      = "Auth"
	ProfileGroup   = "Profile"
	MonitorGroup   = "Monitor"
	ContactsGroup  = "Contacts"
	ResponderGroup = "Responders"
)

// Handler serves the Red Alert HTTP API.
type Handler struct {
	l      *slog.Logger
	svc    *services.Services
	apiKey string
}

func NewHandler(l *slog.Logger, svc *services.Services, responderAPIKey string) *Handler {
	return &Handler{
		l:      l.With(slog.String("component", "api")),
		svc:    svc,
		apiKey: responderAPIKey,
	}
}

// RegisterRoutes mounts every operation under rb, which is expected to be
// scoped at /api.
func (s *Handler) RegisterRoutes(rb *router.RouteBuilder) {
	s.RegisterPing("/ping", rb)
	s.RegisterHealth("/health", rb)

	rb.Route("/auth", func(rb *router.RouteBuilder) {
		s.RegisterRegister("/register", rb)
		s.RegisterLogin("/login", rb)
		s.RegisterResendVerification("/verification", rb)
		s.RegisterVerifyEmail("/verify", rb)
		s.RegisterForgotPassword("/password-reset", rb)
		s.RegisterConfirmPasswordReset("/password-reset/confirm", rb)

		rb.Group(func(rb *router.RouteBuilder) {
			rb.Use(s.SessionMiddleware)
			s.RegisterLogout("/logout", rb)
		})
	})

	rb.Group(func(rb *router.RouteBuilder) {
		rb.Use(s.SessionMiddleware)
		s.RegisterGetProfile("/profile", rb)
		s.RegisterUpdateProfile("/profile", rb)
		s.RegisterMonitor("/monitor", rb)
	})

	s.RegisterListContacts("/contacts", rb)
	s.RegisterGetContact("/contacts/{town}", rb)

	rb.Group(func(rb *router.RouteBuilder) {
		rb.Use(apicommon.APIKeyMiddleware(s.apiKey))
		s.RegisterDispatch("/responders/owners/{ownerKey}", rb)
	})
}

// DocsInfo describes the API in generated documents.
func DocsInfo() router.Info {
	return router.Info{
		Title:       "Red Alert API",
		Version:     utils.GetVersionShort(),
		Description: "Owner side of the Red Alert fire and smoke monitoring service",
	}
}

// RegisterDocs serves the OpenAPI document of every route registered so far.
// The documents themselves are not part of it.
func (s *Handler) RegisterDocs(rb *router.RouteBuilder) {
	info := DocsInfo()

	rb.Router().Get("/openapi.json", rb.DocsHandler(info, false))
	rb.Router().Get("/openapi.yaml", rb.DocsHandler(info, true))
}

// fromAccount translates an account error into its HTTP form. Other errors
// pass through and end up as a 500.
func fromAccount(err error) error {
	e, ok := account.AsError(err)
	if !ok {
		return err
	}

	status := http.StatusBadRequest

	switch e.Kind {
	case account.KindValidation:
	case account.KindUnauthorized:
		status = http.StatusUnauthorized
	case account.KindForbidden:
		status = http.StatusForbidden
	case account.KindNotFound:
		status = http.StatusNotFound
	case account.KindConflict:
		status = http.StatusConflict
	}

	resp := apicommon.NewError(status, e.Message).WithAction(e.Action)
	for field, msg := range e.Fields {
		resp.AddError(field, msg)
	}

	return resp
}
