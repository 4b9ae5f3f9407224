// package models defines the data model for the channel dashboard service
package models

import (
	"errors"
	"time"
)

// Metadata carries linked-account data attached to a [Session].
type Metadata struct {
	ChannelID string `json:"channelId,omitempty"`
}

// Session is the authenticated identity of one viewer.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	Metadata  Metadata   `json:"metadata"`
}

// Validate checks the fields required before a session is persisted.
func (s *Session) Validate() error {
	switch {
	case s.ID == "":
		return errors.New("session id is required")
	case s.UserID == "":
		return errors.New("user id is required")
	case s.Email == "":
		return errors.New("email is required")
	case s.ExpiresAt.IsZero():
		return errors.New("expiry is required")
	}
	return nil
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Revoked reports whether the session was signed out.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Active reports whether the session can still authorize requests at now.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked() && !s.Expired(now)
}

// Channel derives the [ChannelLink] carried by the session metadata, or nil when none is linked.
func (s *Session) Channel() *ChannelLink {
	if s == nil {
		return nil
	}
	return NewChannelLink(s.Metadata.ChannelID)
}

// ChannelLink is the association between a user account and a YouTube channel.
//
// Connected is always equal to ChannelID != "".
type ChannelLink struct {
	ChannelID string `json:"channelId"`
	Connected bool   `json:"connected"`
}

// NewChannelLink builds a link for channelID, or nil when channelID is empty.
func NewChannelLink(channelID string) *ChannelLink {
	if channelID == "" {
		return nil
	}
	return &ChannelLink{ChannelID: channelID, Connected: true}
}

// Identity is what the identity provider asserts about the signed-in account.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
}
