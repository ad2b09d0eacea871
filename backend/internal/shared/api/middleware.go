package apicommon

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/utils"
)

// MiddlewareHandler holds the base logger of the HTTP middleware chain.
type MiddlewareHandler struct {
	l *slog.Logger
}

func NewMiddlewareHandler(l *slog.Logger) *MiddlewareHandler {
	return &MiddlewareHandler{l: l}
}

// RequestIDMiddleware keeps a caller supplied X-Request-ID when it is a UUID
// and mints a UUIDv7 otherwise. The id is echoed back and stored in the context.
func (m *MiddlewareHandler) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = utils.NewUUID()
		}

		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter

	status  int
	written int64
	sent    bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.sent {
		return
	}

	rec.status = code
	rec.sent = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.sent = true

	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)

	return n, err
}

// probe reports whether the path is polled by load balancers and uptime checks.
func probe(path string) bool {
	return strings.HasSuffix(path, "/ping") || strings.HasSuffix(path, "/health")
}

// LoggerMiddleware injects a request-scoped logger and logs each request's
// outcome. Probes log at debug, client errors at warn and server errors at error.
func (m *MiddlewareHandler) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := m.l.With(
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(WithLogger(r.Context(), reqLogger)))

		level := slog.LevelInfo

		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		case probe(r.URL.Path):
			level = slog.LevelDebug
		}

		reqLogger.Log(r.Context(), level, "request completed",
			slog.Int("status", rec.status),
			slog.Int64("response_bytes", rec.written),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// RecoveryMiddleware turns handler panics into the generic 500 body.
func (m *MiddlewareHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}

			l := GetLoggerOrNil(r.Context())
			if l == nil {
				l = m.l
			}

			l.Error("panic recovered", slog.Any("panic", v), slog.String("stack", string(debug.Stack())))

			RespondJSON(w, r, http.StatusInternalServerError, &types.ErrorResponse{
				RequestID: GetRequestID(r.Context()),
				Message:   internalErrorText,
			})
		}()

		next.ServeHTTP(w, r)
	})
}
