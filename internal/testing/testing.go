// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/repositories"
	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/oauth2"
)

// MockIdentity is a test double for [services.IdentityProvider] and [services.ChannelProvider].
//
// Codes maps an authorization code to the identity it resolves to; unknown codes fail the exchange.
// Channel is the id returned by ChannelID unless ChannelErr is set.
type MockIdentity struct {
	Codes      map[string]models.Identity
	Channel    string
	ChannelErr error
}

// NewMockIdentity returns a provider accepting code "abc123" for user-1.
func NewMockIdentity() *MockIdentity {
	return &MockIdentity{
		Codes: map[string]models.Identity{
			"abc123": {Subject: "user-1", Email: "creator@example.com", Name: "Creator"},
		},
		Channel: "UC123",
	}
}

func (m *MockIdentity) AuthCodeURL(state string) string {
	return "https://idp.example.com/auth?state=" + state
}

func (m *MockIdentity) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if _, ok := m.Codes[code]; !ok {
		return nil, shared.NewUpstreamError("identity", shared.ErrAuthFailed)
	}
	return &oauth2.Token{AccessToken: code}, nil
}

func (m *MockIdentity) Identity(ctx context.Context, token *oauth2.Token) (*models.Identity, error) {
	if token == nil {
		return nil, shared.ErrNotAuthenticated
	}
	identity, ok := m.Codes[token.AccessToken]
	if !ok {
		return nil, shared.NewUpstreamError("identity", shared.ErrAuthFailed)
	}
	return &identity, nil
}

func (m *MockIdentity) ConnectURL(state string) string {
	return "https://idp.example.com/auth?scope=youtube&state=" + state
}

func (m *MockIdentity) ExchangeChannel(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, shared.ErrMissingCode
	}
	return &oauth2.Token{AccessToken: code}, nil
}

func (m *MockIdentity) ChannelID(ctx context.Context, token *oauth2.Token) (string, error) {
	if m.ChannelErr != nil {
		return "", m.ChannelErr
	}
	return m.Channel, nil
}

// MockCompleter is a test double for [services.Completer] that records prompts.
type MockCompleter struct {
	Text string
	Err  error

	mu      sync.Mutex
	prompts []string
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// Prompts returns the prompts received so far.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// NewTestStore opens a migrated in-memory SQLite store closed at test cleanup.
func NewTestStore(t *testing.T) repositories.Store {
	t.Helper()
	store, err := repositories.Open(context.Background(), shared.DatabaseConfig{Driver: shared.DialectSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
