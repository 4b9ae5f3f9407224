package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/channel"
	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

const shutdownTimeout = 10 * time.Second

// Options holds the collaborators of a [Server]. All fields are required except Logger.
type Options struct {
	Config    *shared.Config
	Accessor  *session.Accessor
	Identity  services.IdentityProvider
	Channels  services.ChannelProvider
	Completer services.Completer
	Links     channel.Links
	Logger    *log.Logger
}

// Server is the dashboard HTTP service.
type Server struct {
	router *BasicRouter
	http   *http.Server
	logger *log.Logger
}

// New wires every route onto a [BasicRouter].
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Accessor == nil || opts.Identity == nil || opts.Channels == nil ||
		opts.Completer == nil || opts.Links == nil {
		return nil, fmt.Errorf("%w: server options are incomplete", shared.ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	c := cookies{session: cfg.Session.CookieName, secure: cfg.Session.SecureCookie}
	guard := gate.NewGuard(opts.Accessor, c.session, shared.WithLogger(logger, "component", "gate"))
	limiter := NewRateLimiter(cfg.Limits.GeneratePerMinute, cfg.Limits.GenerateBurst)

	auth := NewAuthHandler(opts.Accessor, opts.Identity, c, shared.WithLogger(logger, "component", "auth"))
	generate := NewGenerateHandler(opts.Completer, shared.WithLogger(logger, "component", "generate"))
	youtube := NewYouTubeHandler(opts.Accessor, opts.Channels, c, shared.WithLogger(logger, "component", "youtube"))
	dash := NewDashboardHandler(opts.Accessor, opts.Links, renderer, c.session, shared.WithLogger(logger, "component", "dashboard"))

	r := NewBasicRouter()
	r.Use(RequestID(), Logging(logger), Recover(logger))

	r.Handler(auth)
	r.Handle(http.MethodGet, shared.DashboardPath, http.HandlerFunc(dash.Page), guard.RequireSession)
	r.Handle(http.MethodGet, "/api/session", http.HandlerFunc(dash.Snapshot), guard.RequireSessionAPI)
	r.Handle(http.MethodGet, "/api/session/events", http.HandlerFunc(dash.Events), guard.RequireSessionAPI)
	r.Handle(http.MethodPost, "/api/ai/suggestions/generate", generate, guard.RequireSessionAPI, limiter.Middleware)
	r.Handle(http.MethodGet, "/api/youtube/connect", http.HandlerFunc(youtube.Connect), guard.RequireSessionAPI)
	r.Handle(http.MethodGet, "/api/youtube/callback", http.HandlerFunc(youtube.Callback), guard.RequireSession)
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(health))

	read, write := cfg.Server.Timeouts()
	return &Server{
		router: r,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           r,
			ReadHeaderTimeout: read,
			ReadTimeout:       read,
			WriteTimeout:      write,
		},
	}, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
