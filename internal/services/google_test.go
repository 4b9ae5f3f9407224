package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/oauth2"
)

func newGoogleTestServer(t *testing.T, channels string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.FormValue("code") != "abc123" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test_access","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test_access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"sub":"user-1","email":"creator@example.com","name":"Creator"}`))
	})
	mux.HandleFunc("/youtube/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mine") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(channels))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestGoogleService(t *testing.T, server *httptest.Server) *GoogleService {
	t.Helper()
	svc, err := NewGoogleService(GoogleOptions{
		ClientID:           "client",
		ClientSecret:       "secret",
		RedirectURL:        "http://localhost:3000/auth/callback",
		YouTubeRedirectURL: "http://localhost:3000/api/youtube/callback",
		Endpoint:           oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"},
		UserInfoURL:        server.URL + "/userinfo",
		YouTubeBaseURL:     server.URL + "/youtube",
		HTTPClient:         server.Client(),
	})
	if err != nil {
		t.Fatalf("NewGoogleService failed: %v", err)
	}
	return svc
}

func TestNewGoogleService(t *testing.T) {
	t.Run("Requires Client ID", func(t *testing.T) {
		_, err := NewGoogleService(GoogleOptions{ClientSecret: "secret"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Requires Client Secret", func(t *testing.T) {
		_, err := NewGoogleService(GoogleOptions{ClientID: "client"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Defaults To Google Endpoints", func(t *testing.T) {
		svc, err := NewGoogleService(GoogleOptions{ClientID: "client", ClientSecret: "secret"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(svc.AuthCodeURL("s"), "https://accounts.google.com/") {
			t.Errorf("expected google auth URL, got %s", svc.AuthCodeURL("s"))
		}
		if svc.userInfoURL != googleUserInfoURL {
			t.Errorf("expected default userinfo URL, got %s", svc.userInfoURL)
		}
	})
}

func TestGoogleServiceURLs(t *testing.T) {
	server := newGoogleTestServer(t, `{"items":[]}`)
	svc := newTestGoogleService(t, server)

	t.Run("Sign In URL", func(t *testing.T) {
		u, err := url.Parse(svc.AuthCodeURL("state-1"))
		if err != nil {
			t.Fatalf("failed to parse URL: %v", err)
		}
		q := u.Query()
		if q.Get("state") != "state-1" {
			t.Errorf("expected state state-1, got %s", q.Get("state"))
		}
		if !strings.Contains(q.Get("scope"), "email") {
			t.Errorf("expected email scope, got %s", q.Get("scope"))
		}
		if q.Get("redirect_uri") != "http://localhost:3000/auth/callback" {
			t.Errorf("unexpected redirect_uri %s", q.Get("redirect_uri"))
		}
	})

	t.Run("Connect URL", func(t *testing.T) {
		u, err := url.Parse(svc.ConnectURL("state-2"))
		if err != nil {
			t.Fatalf("failed to parse URL: %v", err)
		}
		q := u.Query()
		if q.Get("scope") != youtubeScope {
			t.Errorf("expected youtube scope, got %s", q.Get("scope"))
		}
		if q.Get("access_type") != "offline" {
			t.Errorf("expected offline access, got %s", q.Get("access_type"))
		}
		if q.Get("redirect_uri") != "http://localhost:3000/api/youtube/callback" {
			t.Errorf("unexpected redirect_uri %s", q.Get("redirect_uri"))
		}
	})
}

func TestGoogleServiceIdentity(t *testing.T) {
	server := newGoogleTestServer(t, `{"items":[]}`)
	svc := newTestGoogleService(t, server)
	ctx := context.Background()

	t.Run("Exchange And Resolve", func(t *testing.T) {
		token, err := svc.Exchange(ctx, "abc123")
		if err != nil {
			t.Fatalf("Exchange failed: %v", err)
		}
		if token.AccessToken != "test_access" {
			t.Errorf("expected test_access, got %s", token.AccessToken)
		}

		identity, err := svc.Identity(ctx, token)
		if err != nil {
			t.Fatalf("Identity failed: %v", err)
		}
		if identity.Subject != "user-1" || identity.Email != "creator@example.com" {
			t.Errorf("unexpected identity %+v", identity)
		}
	})

	t.Run("Empty Code", func(t *testing.T) {
		_, err := svc.Exchange(ctx, "")
		if !errors.Is(err, shared.ErrMissingCode) {
			t.Errorf("expected ErrMissingCode, got %v", err)
		}
	})

	t.Run("Rejected Code", func(t *testing.T) {
		_, err := svc.Exchange(ctx, "bad")
		if !shared.IsUpstream(err) {
			t.Errorf("expected upstream error, got %v", err)
		}
	})

	t.Run("Nil Token", func(t *testing.T) {
		_, err := svc.Identity(ctx, nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Unauthorized Token", func(t *testing.T) {
		_, err := svc.Identity(ctx, &oauth2.Token{AccessToken: "other", TokenType: "Bearer"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestGoogleServiceChannelID(t *testing.T) {
	ctx := context.Background()
	token := &oauth2.Token{AccessToken: "test_access", TokenType: "Bearer"}

	t.Run("First Channel", func(t *testing.T) {
		server := newGoogleTestServer(t, `{"items":[{"id":"UC123"},{"id":"UC456"}]}`)
		svc := newTestGoogleService(t, server)

		id, err := svc.ChannelID(ctx, token)
		if err != nil {
			t.Fatalf("ChannelID failed: %v", err)
		}
		if id != "UC123" {
			t.Errorf("expected UC123, got %s", id)
		}
	})

	t.Run("No Channel", func(t *testing.T) {
		server := newGoogleTestServer(t, `{"items":[]}`)
		svc := newTestGoogleService(t, server)

		_, err := svc.ChannelID(ctx, token)
		if !errors.Is(err, shared.ErrChannelNotFound) {
			t.Errorf("expected ErrChannelNotFound, got %v", err)
		}
	})
}
