package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// SessionStore persists [models.Session] records.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
	RevokeUserSessions(ctx context.Context, userID string, at time.Time) (int64, error)
	ListSessions(ctx context.Context, criteria ListCriteria) ([]*models.Session, error)
	SetSessionChannel(ctx context.Context, userID, channelID string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ChannelStore persists the user → YouTube channel association.
type ChannelStore interface {
	LinkChannel(ctx context.Context, userID, channelID string, at time.Time) error
	LinkedChannel(ctx context.Context, userID string) (string, error)
}

// Store is the full backend used by the session accessor.
type Store interface {
	SessionStore
	ChannelStore
	Close() error
}

// ListCriteria filters [SessionStore.ListSessions].
//
// ActiveAt, when non-zero, keeps only sessions that are unrevoked and unexpired at that instant.
type ListCriteria struct {
	UserID   string
	ActiveAt time.Time
	Limit    int
}

// Open connects the store selected by cfg.Driver and applies pending migrations.
func Open(ctx context.Context, cfg shared.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "", shared.DialectSQLite:
		db, err := shared.NewDatabase(cfg.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLiteStore(db), nil
	case shared.DialectPostgres:
		store, err := ConnectPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
