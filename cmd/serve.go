package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/ytdash/internal/repositories"
	"github.com/desertthunder/ytdash/internal/server"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/urfave/cli/v3"
)

const pruneInterval = time.Hour

// Serve runs the dashboard HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	store, err := r.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	google := r.config.Credentials.Google
	identity, err := services.NewGoogleService(services.GoogleOptions{
		ClientID:           google.ClientID,
		ClientSecret:       google.ClientSecret,
		RedirectURL:        google.RedirectURI,
		YouTubeRedirectURL: google.YouTubeRedirectURI,
		HTTPClient:         r.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to create identity service: %w", err)
	}

	tokens, err := r.tokens()
	if err != nil {
		return err
	}

	accessor := session.NewAccessor(session.Options{
		Sessions: store,
		Channels: store,
		Identity: identity,
		Tokens:   tokens,
		TTL:      r.config.Session.SessionTTL(),
		Logger:   shared.WithLogger(r.logger, "component", "session"),
	})

	srv, err := server.New(server.Options{
		Config:    r.config,
		Accessor:  accessor,
		Identity:  identity,
		Channels:  identity,
		Completer: services.NewCompletionService(r.config.Credentials.Completion),
		Links:     store,
		Logger:    r.logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go r.pruneLoop(ctx, store, pruneInterval)

	if cmd.Bool("open") {
		url := strings.TrimRight(r.config.Server.BaseURL, "/") + shared.LoginPath
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "url", url, "error", err)
		}
	}

	return srv.ListenAndServe(ctx)
}

// pruneLoop deletes expired sessions every interval until ctx is done.
func (r *Runner) pruneLoop(ctx context.Context, store repositories.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.DeleteExpired(ctx, now)
			if err != nil {
				r.logger.Warn("failed to prune sessions", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("pruned expired sessions", "count", n)
			}
		}
	}
}
