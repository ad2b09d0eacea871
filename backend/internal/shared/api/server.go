package apicommon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"redalert/backend/pkg/utils"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 30 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 30 * time.Second
)

// HTTPServer runs the API listener in the background.
type HTTPServer struct {
	l      *slog.Logger
	server *http.Server
}

func NewHTTPServer(l *slog.Logger, addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		l: l.With(slog.String("component", "http-server")),
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: ReadHeaderTimeout,
			ReadTimeout:       ReadTimeout,
			WriteTimeout:      WriteTimeout,
			IdleTimeout:       IdleTimeout,
		},
	}
}

// StartOnBackground serves until shutdown. A listen failure cancels the app context.
func (s *HTTPServer) StartOnBackground(cancel context.CancelFunc) {
	go func() {
		s.l.Info("starting", slog.String("addr", s.server.Addr))

		err := s.server.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}

		s.l.Error("failed", utils.ErrAttr(err))
		cancel()
	}()
}

// ShutdownWithDefaultTimeout drains open requests for up to ShutdownTimeout.
func (s *HTTPServer) ShutdownWithDefaultTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
