package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newSession(userID string, expiresAt time.Time) *models.Session {
	return &models.Session{
		ID:        shared.GenerateID(),
		UserID:    userID,
		Email:     userID + "@example.com",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("CreateSession And GetSession", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		s := newSession("u1", now.Add(time.Hour))
		s.Metadata.ChannelID = "UC1"
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		got, err := store.GetSession(ctx, s.ID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}

		if got.UserID != "u1" || got.Email != "u1@example.com" {
			t.Errorf("unexpected session %+v", got)
		}
		if got.Metadata.ChannelID != "UC1" {
			t.Errorf("expected channel UC1, got %q", got.Metadata.ChannelID)
		}
		if !got.ExpiresAt.Equal(s.ExpiresAt) {
			t.Errorf("expected expiry %v, got %v", s.ExpiresAt, got.ExpiresAt)
		}
		if got.RevokedAt != nil {
			t.Error("new session should not be revoked")
		}
	})

	t.Run("CreateSession Validation", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		if err := store.CreateSession(ctx, &models.Session{ID: "x"}); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("GetSession NotFound", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		_, err := store.GetSession(ctx, "missing")
		if !errors.Is(err, shared.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("RevokeSession", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		s := newSession("u1", now.Add(time.Hour))
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := store.RevokeSession(ctx, s.ID, now); err != nil {
			t.Fatalf("failed to revoke: %v", err)
		}

		got, err := store.GetSession(ctx, s.ID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got.RevokedAt == nil {
			t.Error("expected revoked_at to be set")
		}

		if err := store.RevokeSession(ctx, s.ID, now); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("revoking twice should report not found, got %v", err)
		}
	})

	t.Run("RevokeUserSessions", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		for _, userID := range []string{"u1", "u1", "u2"} {
			if err := store.CreateSession(ctx, newSession(userID, now.Add(time.Hour))); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		n, err := store.RevokeUserSessions(ctx, "u1", now)
		if err != nil {
			t.Fatalf("failed to revoke: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 revoked sessions, got %d", n)
		}

		active, err := store.ListSessions(ctx, ListCriteria{ActiveAt: now})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(active) != 1 || active[0].UserID != "u2" {
			t.Errorf("expected only u2 to stay active, got %d sessions", len(active))
		}
	})

	t.Run("ListSessions Filters", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		live := newSession("u1", now.Add(time.Hour))
		expired := newSession("u1", now.Add(-time.Minute))
		other := newSession("u2", now.Add(time.Hour))
		for _, s := range []*models.Session{live, expired, other} {
			if err := store.CreateSession(ctx, s); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		all, err := store.ListSessions(ctx, ListCriteria{UserID: "u1"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 sessions for u1, got %d", len(all))
		}

		active, err := store.ListSessions(ctx, ListCriteria{UserID: "u1", ActiveAt: now})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(active) != 1 || active[0].ID != live.ID {
			t.Errorf("expected only the live session, got %d", len(active))
		}

		limited, err := store.ListSessions(ctx, ListCriteria{Limit: 1})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected limit 1, got %d", len(limited))
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		if err := store.CreateSession(ctx, newSession("u1", now.Add(-time.Hour))); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		if err := store.CreateSession(ctx, newSession("u1", now.Add(time.Hour))); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		n, err := store.DeleteExpired(ctx, now)
		if err != nil {
			t.Fatalf("failed to delete expired: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 deleted session, got %d", n)
		}
	})

	t.Run("Channel Links", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		if _, err := store.LinkedChannel(ctx, "u1"); !errors.Is(err, shared.ErrChannelNotFound) {
			t.Fatalf("expected ErrChannelNotFound, got %v", err)
		}

		if err := store.LinkChannel(ctx, "u1", "UC1", now); err != nil {
			t.Fatalf("failed to link: %v", err)
		}
		if err := store.LinkChannel(ctx, "u1", "UC2", now); err != nil {
			t.Fatalf("relinking should replace, got %v", err)
		}

		channelID, err := store.LinkedChannel(ctx, "u1")
		if err != nil {
			t.Fatalf("failed to get link: %v", err)
		}
		if channelID != "UC2" {
			t.Errorf("expected UC2, got %s", channelID)
		}

		if err := store.LinkChannel(ctx, "", "UC1", now); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("SetSessionChannel", func(t *testing.T) {
		store := NewSQLiteStore(setupTestDB(t))
		defer store.Close()

		s := newSession("u1", now.Add(time.Hour))
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		n, err := store.SetSessionChannel(ctx, "u1", "UC9")
		if err != nil {
			t.Fatalf("failed to set channel: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 updated session, got %d", n)
		}

		got, _ := store.GetSession(ctx, s.ID)
		if got.Metadata.ChannelID != "UC9" {
			t.Errorf("expected UC9, got %q", got.Metadata.ChannelID)
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("SQLite Memory", func(t *testing.T) {
		store, err := Open(context.Background(), shared.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer store.Close()

		if _, ok := store.(*SQLiteStore); !ok {
			t.Errorf("expected *SQLiteStore, got %T", store)
		}
	})

	t.Run("Unknown Driver", func(t *testing.T) {
		if _, err := Open(context.Background(), shared.DatabaseConfig{Driver: "mysql"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

// TestPostgresStore runs against a live database when YTDASH_TEST_POSTGRES_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("YTDASH_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("YTDASH_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	store, err := ConnectPostgres(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	now := time.Now().UTC()
	userID := "pg-" + shared.GenerateID()
	s := newSession(userID, now.Add(time.Hour))
	if err := store.CreateSession(ctx, s); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := store.LinkChannel(ctx, userID, "UCpg", now); err != nil {
		t.Fatalf("failed to link: %v", err)
	}
	if _, err := store.SetSessionChannel(ctx, userID, "UCpg"); err != nil {
		t.Fatalf("failed to set channel: %v", err)
	}

	got, err := store.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.Metadata.ChannelID != "UCpg" {
		t.Errorf("expected UCpg, got %q", got.Metadata.ChannelID)
	}

	if err := store.RevokeSession(ctx, s.ID, now); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}
}
