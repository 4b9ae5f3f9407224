package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	youtubeBaseURL    = "https://www.googleapis.com/youtube/v3"
	youtubeScope      = "https://www.googleapis.com/auth/youtube.readonly"
)

// GoogleOptions configures [GoogleService]. Zero endpoints fall back to Google's production URLs.
type GoogleOptions struct {
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	YouTubeRedirectURL string
	Endpoint           oauth2.Endpoint
	UserInfoURL        string
	YouTubeBaseURL     string
	HTTPClient         *http.Client
}

// GoogleService implements [IdentityProvider] and [ChannelProvider] against Google OAuth2 and the YouTube Data API.
type GoogleService struct {
	signIn      *oauth2.Config
	connect     *oauth2.Config
	userInfoURL string
	youtubeURL  string
	httpClient  *http.Client
}

// NewGoogleService creates a new Google service from opts.
func NewGoogleService(opts GoogleOptions) (*GoogleService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if opts.Endpoint.AuthURL == "" {
		opts.Endpoint = google.Endpoint
	}
	if opts.UserInfoURL == "" {
		opts.UserInfoURL = googleUserInfoURL
	}
	if opts.YouTubeBaseURL == "" {
		opts.YouTubeBaseURL = youtubeBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &GoogleService{
		signIn: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     opts.Endpoint,
		},
		connect: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.YouTubeRedirectURL,
			Scopes:       []string{youtubeScope},
			Endpoint:     opts.Endpoint,
		},
		userInfoURL: opts.UserInfoURL,
		youtubeURL:  opts.YouTubeBaseURL,
		httpClient:  opts.HTTPClient,
	}, nil
}

// AuthCodeURL returns the sign-in consent URL.
func (g *GoogleService) AuthCodeURL(state string) string {
	return g.signIn.AuthCodeURL(state)
}

// Exchange trades a sign-in code for a token.
func (g *GoogleService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.exchange(ctx, g.signIn, code)
}

// ConnectURL returns the YouTube consent URL. Offline access is requested so the link survives the session.
func (g *GoogleService) ConnectURL(state string) string {
	return g.connect.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeChannel trades a channel-connect code for a token.
func (g *GoogleService) ExchangeChannel(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.exchange(ctx, g.connect, code)
}

func (g *GoogleService) exchange(ctx context.Context, config *oauth2.Config, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, shared.NewValidationError("code", shared.ErrMissingCode)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, shared.NewUpstreamError("identity", fmt.Errorf("token exchange failed: %w", err))
	}
	return token, nil
}

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Identity resolves the signed-in account from the userinfo endpoint.
func (g *GoogleService) Identity(ctx context.Context, token *oauth2.Token) (*models.Identity, error) {
	var info userInfo
	if err := g.doRequest(ctx, g.signIn, token, g.userInfoURL, &info); err != nil {
		return nil, shared.NewUpstreamError("identity", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, shared.NewUpstreamError("identity", fmt.Errorf("%w: userinfo missing sub or email", shared.ErrAuthFailed))
	}
	return &models.Identity{Subject: info.Sub, Email: info.Email, Name: info.Name}, nil
}

type channelList struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// ChannelID returns the id of the first channel owned by the token's account.
func (g *GoogleService) ChannelID(ctx context.Context, token *oauth2.Token) (string, error) {
	params := url.Values{}
	params.Set("part", "id")
	params.Set("mine", "true")

	var list channelList
	if err := g.doRequest(ctx, g.connect, token, g.youtubeURL+"/channels?"+params.Encode(), &list); err != nil {
		return "", shared.NewUpstreamError("youtube", err)
	}
	if len(list.Items) == 0 || list.Items[0].ID == "" {
		return "", shared.NewUpstreamError("youtube", shared.ErrChannelNotFound)
	}
	return list.Items[0].ID, nil
}

// doRequest performs an authenticated GET and decodes the JSON response into result.
func (g *GoogleService) doRequest(ctx context.Context, config *oauth2.Config, token *oauth2.Token, apiURL string, result any) error {
	if token == nil {
		return shared.ErrNotAuthenticated
	}

	client := config.Client(context.WithValue(ctx, oauth2.HTTPClient, g.httpClient), token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
