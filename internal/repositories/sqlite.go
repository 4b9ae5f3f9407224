package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// SQLiteStore implements [Store] over a database/sql SQLite connection.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new [SQLiteStore] with the given database connection.
// Migrations must already be applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database.
func (r *SQLiteStore) Close() error {
	return r.db.Close()
}

// CreateSession inserts a new session.
func (r *SQLiteStore) CreateSession(ctx context.Context, s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO sessions (id, user_id, email, channel_id, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.Email, nullString(s.Metadata.ChannelID), utc(s.CreatedAt), utc(s.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID, revoked or not.
func (r *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, email, channel_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = ?
	`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return s, nil
}

// RevokeSession marks a session as signed out.
func (r *SQLiteStore) RevokeSession(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", utc(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

// RevokeUserSessions signs out every live session of userID and returns how many were revoked.
func (r *SQLiteStore) RevokeUserSessions(ctx context.Context, userID string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL", utc(at), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return result.RowsAffected()
}

// ListSessions returns sessions matching criteria, newest first.
func (r *SQLiteStore) ListSessions(ctx context.Context, criteria ListCriteria) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, email, channel_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE 1 = 1
	`
	args := []any{}

	if criteria.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, criteria.UserID)
	}
	if !criteria.ActiveAt.IsZero() {
		query += " AND revoked_at IS NULL AND expires_at > ?"
		args = append(args, utc(criteria.ActiveAt))
	}

	query += " ORDER BY created_at DESC"

	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
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

// SetSessionChannel copies channelID into the metadata of every live session of userID.
func (r *SQLiteStore) SetSessionChannel(ctx context.Context, userID, channelID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET channel_id = ? WHERE user_id = ? AND revoked_at IS NULL", nullString(channelID), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update session channel: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes sessions that expired before the given instant.
func (r *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", utc(before))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// LinkChannel records (or replaces) the channel linked to userID.
func (r *SQLiteStore) LinkChannel(ctx context.Context, userID, channelID string, at time.Time) error {
	if userID == "" || channelID == "" {
		return fmt.Errorf("%w: user id and channel id are required", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO channel_links (user_id, channel_id, linked_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET channel_id = excluded.channel_id, linked_at = excluded.linked_at
	`
	if _, err := r.db.ExecContext(ctx, query, userID, channelID, utc(at)); err != nil {
		return fmt.Errorf("failed to link channel: %w", err)
	}
	return nil
}

// LinkedChannel returns the channel linked to userID or [shared.ErrChannelNotFound].
func (r *SQLiteStore) LinkedChannel(ctx context.Context, userID string) (string, error) {
	var channelID string
	err := r.db.QueryRowContext(ctx, "SELECT channel_id FROM channel_links WHERE user_id = ?", userID).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: user %s", shared.ErrChannelNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query channel link: %w", err)
	}
	return channelID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s         models.Session
		channelID sql.NullString
		revokedAt sql.NullTime
	)

	if err := row.Scan(&s.ID, &s.UserID, &s.Email, &channelID, &s.CreatedAt, &s.ExpiresAt, &revokedAt); err != nil {
		return nil, err
	}

	s.Metadata.ChannelID = channelID.String
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}

	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
