package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// PostgresStore implements [Store] over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool for url and verifies it with a ping.
func ConnectPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}

// Migrate applies pending postgres migrations, tracking them in schema_migrations.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	migrations, err := shared.LoadMigrations(shared.DialectPostgres)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range migrations {
		var exists bool
		err := r.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", migration.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			continue
		}
		if err := r.apply(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (r *PostgresStore) apply(ctx context.Context, migration shared.Migration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range migration.Statements(false) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
		}
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateSession inserts a new session.
func (r *PostgresStore) CreateSession(ctx context.Context, s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, email, channel_id, created_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.UserID, s.Email, optional(s.Metadata.ChannelID), utc(s.CreatedAt), utc(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, revoked or not.
func (r *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, email, channel_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1
	`, id)

	s, err := scanPgSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

// RevokeSession marks a session as signed out.
func (r *PostgresStore) RevokeSession(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL", utc(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

// RevokeUserSessions signs out every live session of userID.
func (r *PostgresStore) RevokeUserSessions(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL", utc(at), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListSessions returns sessions matching criteria, newest first.
func (r *PostgresStore) ListSessions(ctx context.Context, criteria ListCriteria) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, email, channel_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE 1 = 1
	`
	args := []any{}

	if criteria.UserID != "" {
		args = append(args, criteria.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if !criteria.ActiveAt.IsZero() {
		args = append(args, utc(criteria.ActiveAt))
		query += fmt.Sprintf(" AND revoked_at IS NULL AND expires_at > $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanPgSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// SetSessionChannel copies channelID into every live session of userID.
func (r *PostgresStore) SetSessionChannel(ctx context.Context, userID, channelID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE sessions SET channel_id = $1 WHERE user_id = $2 AND revoked_at IS NULL", optional(channelID), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update session channel: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes sessions that expired before the given instant.
func (r *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at < $1", utc(before))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LinkChannel records (or replaces) the channel linked to userID.
func (r *PostgresStore) LinkChannel(ctx context.Context, userID, channelID string, at time.Time) error {
	if userID == "" || channelID == "" {
		return fmt.Errorf("%w: user id and channel id are required", shared.ErrInvalidInput)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channel_links (user_id, channel_id, linked_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET channel_id = EXCLUDED.channel_id, linked_at = EXCLUDED.linked_at
	`, userID, channelID, utc(at))
	if err != nil {
		return fmt.Errorf("failed to link channel: %w", err)
	}
	return nil
}

// LinkedChannel returns the channel linked to userID or [shared.ErrChannelNotFound].
func (r *PostgresStore) LinkedChannel(ctx context.Context, userID string) (string, error) {
	var channelID string
	err := r.pool.QueryRow(ctx, "SELECT channel_id FROM channel_links WHERE user_id = $1", userID).Scan(&channelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: user %s", shared.ErrChannelNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query channel link: %w", err)
	}
	return channelID, nil
}

func scanPgSession(row pgx.Row) (*models.Session, error) {
	var (
		s         models.Session
		channelID *string
		revokedAt *time.Time
	)

	if err := row.Scan(&s.ID, &s.UserID, &s.Email, &channelID, &s.CreatedAt, &s.ExpiresAt, &revokedAt); err != nil {
		return nil, err
	}

	if channelID != nil {
		s.Metadata.ChannelID = *channelID
	}
	s.RevokedAt = revokedAt

	return &s, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
