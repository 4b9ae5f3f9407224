package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/repositories"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/urfave/cli/v3"
)

// SessionList prints stored sessions as a table or JSON.
func (r *Runner) SessionList(ctx context.Context, cmd *cli.Command) error {
	criteria := repositories.ListCriteria{
		UserID: cmd.String("user"),
		Limit:  cmd.Int("limit"),
	}
	now := time.Now()
	if cmd.Bool("active") {
		criteria.ActiveAt = now
	}

	store, err := r.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := r.accessor(store, nil).Sessions(ctx, criteria)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if cmd.Bool("json") {
		if sessions == nil {
			sessions = []*models.Session{}
		}
		return r.writeJSON(sessions, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Sessions (%d)", len(sessions)))
	for _, s := range sessions {
		channel := "-"
		if s.Metadata.ChannelID != "" {
			channel = s.Metadata.ChannelID
		}
		r.writePlain("%s  %-8s  %s  %s  expires %s\n",
			s.ID, sessionStatus(s, now), s.Email, channel, s.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}

// SessionRevoke revokes the session named by the first argument, or every session of --user.
func (r *Runner) SessionRevoke(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	userID := cmd.String("user")

	switch {
	case id == "" && userID == "":
		return fmt.Errorf("%w: a session id or --user is required", shared.ErrMissingArgument)
	case id != "" && userID != "":
		return fmt.Errorf("%w: cannot combine a session id with --user", shared.ErrInvalidArgument)
	}

	store, err := r.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	accessor := r.accessor(store, nil)
	if id != "" {
		if err := accessor.Revoke(ctx, id); err != nil {
			return fmt.Errorf("failed to revoke session %s: %w", id, err)
		}
		return r.writePlain("✓ revoked %s\n", id)
	}

	n, err := accessor.RevokeUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions for %s: %w", userID, err)
	}
	return r.writePlain("✓ revoked %d session(s) for %s\n", n, userID)
}

// SessionPrune deletes sessions whose expiry has passed.
func (r *Runner) SessionPrune(ctx context.Context, cmd *cli.Command) error {
	store, err := r.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.DeleteExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}
	return r.writePlain("✓ deleted %d expired session(s)\n", n)
}

func sessionStatus(s *models.Session, now time.Time) string {
	switch {
	case s.Revoked():
		return "revoked"
	case s.Expired(now):
		return "expired"
	default:
		return "active"
	}
}
