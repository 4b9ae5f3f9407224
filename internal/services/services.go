// package services defines interfaces for the identity provider and completion service
package services

import (
	"context"

	"github.com/desertthunder/ytdash/internal/models"
	"golang.org/x/oauth2"
)

// IdentityProvider is the OAuth sign-in flow treated as an opaque identity source.
type IdentityProvider interface {
	// AuthCodeURL returns the consent screen URL for the sign-in flow.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Identity resolves the account behind token.
	Identity(ctx context.Context, token *oauth2.Token) (*models.Identity, error)
}

// ChannelProvider is the YouTube channel-connect flow.
type ChannelProvider interface {
	// ConnectURL returns the consent screen URL requesting YouTube access.
	ConnectURL(state string) string

	// ExchangeChannel trades a channel-connect code for a token.
	ExchangeChannel(ctx context.Context, code string) (*oauth2.Token, error)

	// ChannelID returns the id of the channel owned by the token's account.
	ChannelID(ctx context.Context, token *oauth2.Token) (string, error)
}

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
