package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"redalert/backend/internal/account"
	"redalert/backend/internal/auth"
	"redalert/backend/internal/monitor"
	"redalert/backend/internal/realtime"
	"redalert/backend/internal/services"
	"redalert/backend/internal/session"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
)

const testAPIKey = "responder-key"

type inbox struct {
	mu   sync.Mutex
	msgs []auth.Message
}

func (i *inbox) Send(_ context.Context, m auth.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.msgs = append(i.msgs, m)

	return nil
}

func (i *inbox) verifyToken(t *testing.T) string {
	t.Helper()

	i.mu.Lock()
	defer i.mu.Unlock()

	for j := len(i.msgs) - 1; j >= 0; j-- {
		if _, token, ok := strings.Cut(strings.TrimSpace(i.msgs[j].Body), "verify?token="); ok {
			return token
		}
	}

	t.Fatal("no verification mail sent")

	return ""
}

type noAlerts struct{}

func (noAlerts) Alert(context.Context, string, string, string) {}

type connected bool

func (c connected) IsConnected() bool { return bool(c) }

type stack struct {
	h     http.Handler
	inbox *inbox
	gw    *realtime.Gateway
}

func newStack(t *testing.T, brokerUp bool) *stack {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	mail := &inbox{}
	gw := realtime.NewGateway(l, realtime.NewMemoryStore(), realtime.NewMemoryBus())
	sessions := session.NewMemoryStore(time.Hour)
	monitors := monitor.NewManager(l, gw, noAlerts{}, time.Minute)
	t.Cleanup(monitors.Close)

	acc := account.NewService(l, account.Deps{
		Identity:   auth.NewService(l, auth.NewMemoryStore(), mail, "http://localhost:8080"),
		Database:   gw,
		Sessions:   sessions,
		Issuer:     session.NewIssuer([]byte("test-secret"), time.Hour),
		Monitors:   monitors,
		SessionTTL: time.Hour,
	})

	svc := services.NewServices(l,
		services.NewCoreService(l, connected(brokerUp), gw, sessions),
		acc, monitors,
		services.NewResponderService(l, gw),
	)

	h := NewHandler(l, svc, testAPIKey)
	mw := apicommon.NewMiddlewareHandler(l)
	rb := router.NewRouteBuilder(l, chi.NewRouter())

	rb.Route("/api", func(rb *router.RouteBuilder) {
		rb.Use(mw.RequestIDMiddleware, mw.LoggerMiddleware, mw.RecoveryMiddleware)
		h.RegisterRoutes(rb)
		h.RegisterDocs(rb)
	})

	return &stack{h: rb.Router(), inbox: mail, gw: gw}
}

func (st *stack) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		r.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	st.h.ServeHTTP(rec, r)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}

	return v
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func registration() account.RegisterRequest {
	return account.RegisterRequest{
		PhoneNumber:     "0917-123-4567",
		Email:           "Juan.DelaCruz@gmail.com",
		ModelNumber:     "RA.01",
		Password:        "s3cretpass",
		ConfirmPassword: "s3cretpass",
		Latitude:        "14.1953",
		Longitude:       "120.877",
		AgreeTerms:      true,
	}
}

// login registers, verifies and logs in the default owner.
func (st *stack) login(t *testing.T) account.LoginResult {
	t.Helper()

	if rec := st.do(t, http.MethodPost, "/api/auth/register", registration(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
	}

	if rec := st.do(t, http.MethodGet, "/api/auth/verify?token="+st.inbox.verifyToken(t), nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body)
	}

	rec := st.do(t, http.MethodPost, "/api/auth/login", account.LoginRequest{Email: "juan.delacruz@gmail.com", Password: "s3cretpass"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}

	return decode[account.LoginResult](t, rec)
}

// waitView polls the monitor until ok accepts the view.
func (st *stack) waitView(t *testing.T, token string, ok func(monitor.View) bool) monitor.View {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for {
		rec := st.do(t, http.MethodGet, "/api/monitor", nil, bearer(token))
		if rec.Code != http.StatusOK {
			t.Fatalf("monitor status = %d: %s", rec.Code, rec.Body)
		}

		view := decode[monitor.View](t, rec)
		if ok(view) {
			return view
		}

		if time.Now().After(deadline) {
			t.Fatalf("monitor view never matched: %+v", view)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func TestPingAndHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		brokerUp   bool
		wantStatus int
	}{
		{name: "ping", path: "/api/ping", wantStatus: http.StatusOK},
		{name: "healthy", path: "/api/health", brokerUp: true, wantStatus: http.StatusOK},
		{name: "broker down", path: "/api/health", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := newStack(t, tt.brokerUp).do(t, http.MethodGet, tt.path, nil, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get(apicommon.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}

			body := decode[struct {
				Status types.PingStatus `json:"status"`
			}](t, rec)
			want := types.PingStatusOK
			if rec.Code != http.StatusOK {
				want = types.PingStatusError
			}
			if body.Status != want {
				t.Errorf("status field = %s, want %s", body.Status, want)
			}
		})
	}
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()

	st := newStack(t, true)

	if rec := st.do(t, http.MethodPost, "/api/auth/register", registration(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
	}

	short := registration()
	short.Email = "other@gmail.com"
	short.PhoneNumber = "0917"

	samePhone := registration()
	samePhone.Email = "other@gmail.com"
	samePhone.ModelNumber = "RA-02"

	tests := []struct {
		name       string
		req        account.RegisterRequest
		wantStatus int
		wantMsg    string
		wantField  string
	}{
		{name: "phone digits", req: short, wantStatus: 400, wantMsg: account.MsgPhoneDigits, wantField: "phoneNumber"},
		{name: "email taken", req: registration(), wantStatus: 409, wantMsg: account.MsgEmailRegistered, wantField: "email"},
		{name: "phone taken", req: samePhone, wantStatus: 409, wantMsg: account.MsgPhoneRegistered, wantField: "phoneNumber"},
	}

	for _, tt := range tests {
		rec := st.do(t, http.MethodPost, "/api/auth/register", tt.req, nil)
		if rec.Code != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d: %s", tt.name, rec.Code, tt.wantStatus, rec.Body)
		}

		body := decode[types.ErrorResponse](t, rec)
		if body.Message != tt.wantMsg || body.Errors[tt.wantField] == "" {
			t.Errorf("%s: unexpected body %+v", tt.name, body)
		}
	}

	if rec := st.do(t, http.MethodPost, "/api/auth/register", []string{"not", "an", "object"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("array body status = %d, want 400", rec.Code)
	}
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	t.Parallel()

	st := newStack(t, true)

	if rec := st.do(t, http.MethodPost, "/api/auth/register", registration(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	creds := account.LoginRequest{Email: "juan.delacruz@gmail.com", Password: "s3cretpass"}

	rec := st.do(t, http.MethodPost, "/api/auth/login", creds, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decode[types.ErrorResponse](t, rec); body.Action != account.ActionResendVerification {
		t.Errorf("action = %q", body.Action)
	}

	if rec := st.do(t, http.MethodPost, "/api/auth/verification", creds, nil); rec.Code != http.StatusAccepted {
		t.Errorf("resend status = %d: %s", rec.Code, rec.Body)
	}

	rec = st.do(t, http.MethodPost, "/api/auth/login", account.LoginRequest{Email: creds.Email, Password: "wrongpass"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}
	if body := decode[types.ErrorResponse](t, rec); body.Action != account.ActionResetPassword {
		t.Errorf("action = %q", body.Action)
	}

	if rec := st.do(t, http.MethodGet, "/api/auth/verify?token=nope", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad token status = %d, want 400", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	st := newStack(t, true)
	res := st.login(t)

	if res.OwnerKey != "RA_01" {
		t.Fatalf("owner key = %q", res.OwnerKey)
	}

	view := st.waitView(t, res.Token, func(v monitor.View) bool { return v.Device != nil })
	if !view.GatheringData || view.PinColor != monitor.PinRed || view.MarkerVisible {
		t.Errorf("unexpected fresh view %+v", view)
	}

	rec := st.do(t, http.MethodGet, "/api/profile", nil, bearer(res.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	if p := decode[account.Profile](t, rec); p.PhoneNumber != "09171234567" || p.Email != "juan.delacruz@gmail.com" {
		t.Errorf("unexpected profile %+v", p)
	}

	rec = st.do(t, http.MethodPut, "/api/profile", account.ProfileUpdate{PhoneNumber: "0918 765 4321"}, bearer(res.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}
	if p := decode[account.Profile](t, rec); p.PhoneNumber != "09187654321" {
		t.Errorf("phone = %q", p.PhoneNumber)
	}

	if rec := st.do(t, http.MethodPost, "/api/auth/logout", nil, bearer(res.Token)); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	for _, path := range []string{"/api/profile", "/api/monitor"} {
		if rec := st.do(t, http.MethodGet, path, nil, bearer(res.Token)); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s after logout status = %d, want 401", path, rec.Code)
		}
	}
}

func TestResponderDispatch(t *testing.T) {
	t.Parallel()

	st := newStack(t, true)
	res := st.login(t)

	key := map[string]string{apicommon.APIKeyHeader: testAPIKey}

	tests := []struct {
		name       string
		path       string
		body       any
		header     map[string]string
		wantStatus int
	}{
		{name: "no key", path: "/api/responders/owners/RA_01", body: map[string]bool{"allowed": false}, wantStatus: 401},
		{name: "unknown owner", path: "/api/responders/owners/RA_99", body: map[string]bool{"allowed": false}, header: key, wantStatus: 404},
		{name: "empty", path: "/api/responders/owners/RA_01", body: map[string]bool{}, header: key, wantStatus: 400},
		{name: "responding", path: "/api/responders/owners/RA_01", body: map[string]bool{"allowed": false}, header: key, wantStatus: 204},
	}

	for _, tt := range tests {
		if rec := st.do(t, http.MethodPut, tt.path, tt.body, tt.header); rec.Code != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d: %s", tt.name, rec.Code, tt.wantStatus, rec.Body)
		}
	}

	view := st.waitView(t, res.Token, func(v monitor.View) bool { return !v.Allowed })
	if view.PinColor != monitor.PinGreen {
		t.Errorf("pin = %q, want green", view.PinColor)
	}
}

func TestContacts(t *testing.T) {
	t.Parallel()

	st := newStack(t, true)

	rec := st.do(t, http.MethodGet, "/api/contacts", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if all := decode[[]StationResponse](t, rec); len(all) != 7 {
		t.Errorf("got %d stations, want 7", len(all))
	}

	tests := []struct {
		path       string
		wantStatus int
		wantTitle  string
	}{
		{path: "/api/contacts/MENDEZ", wantStatus: 200, wantTitle: "Mendez Fire Station Hot Lines:"},
		{path: "/api/contacts/trece%20martires%20city", wantStatus: 200, wantTitle: "Trece Martires City Fire Station Hot Lines:"},
		{path: "/api/contacts/Manila", wantStatus: 404},
	}

	for _, tt := range tests {
		rec := st.do(t, http.MethodGet, tt.path, nil, nil)
		if rec.Code != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
		}

		if tt.wantTitle != "" {
			if got := decode[StationResponse](t, rec); got.Title != tt.wantTitle {
				t.Errorf("%s: title = %q", tt.path, got.Title)
			}
		}
	}
}

func TestOpenAPIDocument(t *testing.T) {
	t.Parallel()

	st := newStack(t, true)

	tests := []struct {
		path        string
		contentType string
		want        string
	}{
		{path: "/api/openapi.json", contentType: "application/json", want: `"/api/auth/register"`},
		{path: "/api/openapi.yaml", contentType: "application/yaml", want: "/api/responders/owners/{ownerKey}:"},
	}

	for _, tt := range tests {
		rec := st.do(t, http.MethodGet, tt.path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d: %s", tt.path, rec.Code, rec.Body)
		}
		if ct := rec.Header().Get("Content-Type"); ct != tt.contentType {
			t.Errorf("%s: content type = %q", tt.path, ct)
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: document lacks %s", tt.path, tt.want)
		}
	}
}
