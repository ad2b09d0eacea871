package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"redalert/backend/internal/account"
	"redalert/backend/internal/session"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
)

type sessionKey struct{}

func withSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFrom returns the session put in place by SessionMiddleware.
func sessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(session.Session)
	return s, ok
}

// SessionMiddleware resolves the bearer token to a live session and adds it,
// and a logger carrying the session identity, to the request context.
func (s *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return apicommon.ErrorHandler(func(w http.ResponseWriter, r *http.Request) error {
		header := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return apicommon.NewError(http.StatusUnauthorized, account.MsgSessionExpired)
		}

		sess, err := s.svc.Account.Authenticate(r.Context(), token)
		if err != nil {
			return fromAccount(err)
		}

		l := apicommon.GetLogger(r.Context()).With(
			slog.String("uid", sess.UserID),
			slog.String("ownerKey", sess.OwnerKey),
		)

		ctx := withSession(apicommon.WithLogger(r.Context(), l), sess)
		next.ServeHTTP(w, r.WithContext(ctx))

		return nil
	})
}

// bearerOnly marks a route as requiring a session token.
var bearerOnly = []string{router.SecurityBearer}

// apiKeyOnly marks a route as requiring the responder API key.
var apiKeyOnly = []string{router.SecurityAPIKey}

// unauthorizedResponse documents the 401 every session route can return.
func unauthorizedResponse() router.ResponseSpec {
	return router.ResponseSpec{
		Description: "Missing, invalid or revoked session token",
		Type:        types.ErrorResponse{},
		Examples: map[string]any{
			"Session Expired": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgSessionExpired},
		},
	}
}

const exampleRequestID = "0195b0c4-5e21-7a8e-9f3c-2d4b6a8c0e1f"
