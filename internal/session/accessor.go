package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/repositories"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Options configures an [Accessor]. Sessions and Channels are always required. Tokens is required by
// the token operations (GetSession, ExchangeCode, SignOut) and Identity by [Accessor.ExchangeCode].
type Options struct {
	Sessions repositories.SessionStore
	Channels repositories.ChannelStore
	Identity services.IdentityProvider
	Tokens   *Tokens
	TTL      time.Duration
	Logger   *log.Logger
	Now      func() time.Time
}

// Accessor reads and writes sessions in the backend store and publishes the resulting changes.
type Accessor struct {
	sessions repositories.SessionStore
	channels repositories.ChannelStore
	identity services.IdentityProvider
	tokens   *Tokens
	ttl      time.Duration
	logger   *log.Logger
	now      func() time.Time
	broker   *Broker
}

// NewAccessor creates an accessor from opts.
func NewAccessor(opts Options) *Accessor {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Accessor{
		sessions: opts.Sessions,
		channels: opts.Channels,
		identity: opts.Identity,
		tokens:   opts.Tokens,
		ttl:      opts.TTL,
		logger:   opts.Logger,
		now:      opts.Now,
		broker:   NewBroker(),
	}
}

// Subscribe registers fn for session change events.
func (a *Accessor) Subscribe(fn func(Event)) func() {
	return a.broker.Subscribe(fn)
}

// GetSession resolves token to its active session.
//
// Missing, malformed, expired, unknown, or revoked tokens yield an [shared.AuthorizationError];
// store failures yield an [shared.UpstreamError].
func (a *Accessor) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, shared.NewAuthorizationError(shared.ErrNotAuthenticated)
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, shared.NewAuthorizationError(err)
	}

	s, err := a.sessions.GetSession(ctx, claims.ID)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, shared.NewAuthorizationError(shared.ErrSessionNotFound)
	} else if err != nil {
		return nil, shared.NewUpstreamError("store", err)
	}

	switch {
	case s.UserID != claims.Subject:
		return nil, shared.NewAuthorizationError(shared.ErrTokenInvalid)
	case s.Revoked():
		return nil, shared.NewAuthorizationError(shared.ErrSessionRevoked)
	case s.Expired(a.now()):
		return nil, shared.NewAuthorizationError(shared.ErrTokenExpired)
	}
	return s, nil
}

// ExchangeCode trades an authorization code for a new persisted session and its signed token.
//
// A channel already linked to the account is copied into the session metadata.
func (a *Accessor) ExchangeCode(ctx context.Context, code string) (*models.Session, string, error) {
	if code == "" {
		return nil, "", shared.NewValidationError("code", shared.ErrMissingCode)
	}

	oauthToken, err := a.identity.Exchange(ctx, code)
	if err != nil {
		return nil, "", err
	}
	identity, err := a.identity.Identity(ctx, oauthToken)
	if err != nil {
		return nil, "", err
	}

	now := a.now().UTC()
	s := &models.Session{
		ID:        shared.GenerateID(),
		UserID:    identity.Subject,
		Email:     identity.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}

	if channelID, err := a.channels.LinkedChannel(ctx, s.UserID); err == nil {
		s.Metadata.ChannelID = channelID
	} else if !errors.Is(err, shared.ErrChannelNotFound) {
		a.logger.Warn("channel lookup failed during sign-in", "user_id", s.UserID, "error", err)
	}

	if err := a.sessions.CreateSession(ctx, s); err != nil {
		return nil, "", shared.NewUpstreamError("store", err)
	}

	token, err := a.tokens.Sign(s)
	if err != nil {
		return nil, "", err
	}

	a.logger.Info("session created", "session_id", s.ID, "user_id", s.UserID)
	a.broker.Publish(Event{Kind: SignedIn, UserID: s.UserID, SessionID: s.ID})
	return s, token, nil
}

// SignOut revokes the session behind token. Expired tokens are still accepted.
func (a *Accessor) SignOut(ctx context.Context, token string) error {
	claims, err := a.tokens.ParseSignature(token)
	if err != nil {
		return shared.NewAuthorizationError(err)
	}
	return a.revoke(ctx, claims.ID, claims.Subject)
}

// Revoke revokes the session with id, as from an operator command.
func (a *Accessor) Revoke(ctx context.Context, id string) error {
	s, err := a.sessions.GetSession(ctx, id)
	if err != nil {
		return err
	}
	return a.revoke(ctx, s.ID, s.UserID)
}

func (a *Accessor) revoke(ctx context.Context, id, userID string) error {
	if err := a.sessions.RevokeSession(ctx, id, a.now()); err != nil {
		if errors.Is(err, shared.ErrSessionNotFound) {
			return err
		}
		return shared.NewUpstreamError("store", err)
	}
	a.logger.Info("session revoked", "session_id", id, "user_id", userID)
	a.broker.Publish(Event{Kind: SignedOut, UserID: userID, SessionID: id})
	return nil
}

// RevokeUser revokes every active session of userID and returns how many were revoked.
func (a *Accessor) RevokeUser(ctx context.Context, userID string) (int64, error) {
	n, err := a.sessions.RevokeUserSessions(ctx, userID, a.now())
	if err != nil {
		return 0, shared.NewUpstreamError("store", err)
	}
	if n > 0 {
		a.logger.Info("user sessions revoked", "user_id", userID, "count", n)
		a.broker.Publish(Event{Kind: SignedOut, UserID: userID})
	}
	return n, nil
}

// LinkChannel records channelID as the user's channel and updates their active sessions.
func (a *Accessor) LinkChannel(ctx context.Context, userID, channelID string) error {
	if channelID == "" {
		return shared.NewValidationError("channel_id", shared.ErrMissingArgument)
	}
	if err := a.channels.LinkChannel(ctx, userID, channelID, a.now()); err != nil {
		return shared.NewUpstreamError("store", err)
	}
	if _, err := a.sessions.SetSessionChannel(ctx, userID, channelID); err != nil {
		return shared.NewUpstreamError("store", fmt.Errorf("failed to update sessions: %w", err))
	}
	a.logger.Info("channel linked", "user_id", userID, "channel_id", channelID)
	a.broker.Publish(Event{Kind: ChannelLinked, UserID: userID, ChannelID: channelID})
	return nil
}

// Sessions lists stored sessions matching criteria.
func (a *Accessor) Sessions(ctx context.Context, criteria repositories.ListCriteria) ([]*models.Session, error) {
	sessions, err := a.sessions.ListSessions(ctx, criteria)
	if err != nil {
		return nil, shared.NewUpstreamError("store", err)
	}
	return sessions, nil
}
