package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/repositories"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	tu "github.com/desertthunder/ytdash/internal/testing"
)

type testEnv struct {
	cfg       *shared.Config
	server    *Server
	accessor  *session.Accessor
	store     repositories.Store
	identity  *tu.MockIdentity
	completer *tu.MockCompleter
}

func newTestEnv(t *testing.T, configure ...func(*shared.Config)) *testEnv {
	t.Helper()
	cfg := shared.DefaultConfig()
	cfg.Session.Secret = "test-secret"
	for _, fn := range configure {
		fn(cfg)
	}

	store := tu.NewTestStore(t)
	tokens, err := session.NewTokens(cfg.Session.Secret)
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	identity := tu.NewMockIdentity()
	logger := log.New(io.Discard)
	accessor := session.NewAccessor(session.Options{
		Sessions: store,
		Channels: store,
		Identity: identity,
		Tokens:   tokens,
		TTL:      time.Hour,
		Logger:   logger,
	})
	completer := &tu.MockCompleter{Text: "10 title ideas for your next upload"}

	srv, err := New(Options{
		Config:    cfg,
		Accessor:  accessor,
		Identity:  identity,
		Channels:  identity,
		Completer: completer,
		Links:     store,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return &testEnv{cfg: cfg, server: srv, accessor: accessor, store: store, identity: identity, completer: completer}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// signIn runs the OAuth callback and returns the session cookie.
func (e *testEnv) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	w := e.do(httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123", nil))
	c := findCookie(w, e.cfg.Session.CookieName)
	if c == nil || c.Value == "" {
		t.Fatal("expected session cookie after sign-in")
	}
	return c
}

func (e *testEnv) sessionCount(t *testing.T) int {
	t.Helper()
	sessions, err := e.store.ListSessions(context.Background(), repositories.ListCriteria{})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	return len(sessions)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestAuthCallback(t *testing.T) {
	t.Run("Valid Code Establishes Session", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123", nil))

		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/dashboard" {
			t.Errorf("expected /dashboard, got %s", loc)
		}

		c := findCookie(w, "ytdash_session")
		if c == nil || c.Value == "" {
			t.Fatal("expected session cookie")
		}
		if !c.HttpOnly {
			t.Error("session cookie must be HttpOnly")
		}

		s, err := env.accessor.GetSession(context.Background(), c.Value)
		if err != nil {
			t.Fatalf("cookie does not resolve: %v", err)
		}
		if s.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", s.UserID)
		}
	})

	t.Run("Missing Code Still Redirects", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

		if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
			t.Fatalf("expected 302 /dashboard, got %d %s", w.Code, w.Header().Get("Location"))
		}
		if findCookie(w, "ytdash_session") != nil {
			t.Error("expected no session cookie")
		}
		if n := env.sessionCount(t); n != 0 {
			t.Errorf("expected no sessions, got %d", n)
		}
	})

	t.Run("Failed Exchange Still Redirects", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/auth/callback?code=rejected", nil))

		if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
			t.Fatalf("expected 302 /dashboard, got %d %s", w.Code, w.Header().Get("Location"))
		}
		if findCookie(w, "ytdash_session") != nil {
			t.Error("expected no session cookie")
		}
	})

	t.Run("State Mismatch Skips Exchange", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state=forged", nil)
		req.AddCookie(&http.Cookie{Name: signInStateCookie, Value: "issued"})
		w := env.do(req)

		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
		if n := env.sessionCount(t); n != 0 {
			t.Errorf("expected no sessions, got %d", n)
		}
	})

	t.Run("Login Round Trip", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/login", nil))

		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
		state := findCookie(w, signInStateCookie)
		if state == nil {
			t.Fatal("expected state cookie")
		}
		loc, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("bad location: %v", err)
		}
		if loc.Query().Get("state") != state.Value {
			t.Errorf("state in URL %q does not match cookie %q", loc.Query().Get("state"), state.Value)
		}

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+state.Value, nil)
		req.AddCookie(state)
		w = env.do(req)
		if findCookie(w, "ytdash_session") == nil {
			t.Error("expected session cookie after matching state")
		}
	})

	t.Run("Logout", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(c)
		w := env.do(req)

		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
			t.Fatalf("expected 302 /login, got %d %s", w.Code, w.Header().Get("Location"))
		}
		if cleared := findCookie(w, "ytdash_session"); cleared == nil || cleared.MaxAge >= 0 {
			t.Error("expected session cookie to be cleared")
		}

		_, err := env.accessor.GetSession(context.Background(), c.Value)
		if !errors.Is(err, shared.ErrSessionRevoked) {
			t.Errorf("expected revoked session, got %v", err)
		}
	})

	t.Run("Logout Requires Post", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}

func newGenerateRequest(body string, c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ai/suggestions/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestGenerate(t *testing.T) {
	t.Run("Requires Session", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(newGenerateRequest(`{"prompt":"hello"}`, nil))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if msg := decodeError(t, w); msg != "Unauthorized" {
			t.Errorf("expected Unauthorized, got %s", msg)
		}
	})

	t.Run("Missing Prompt", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		for _, body := range []string{`{}`, `{"prompt":"   "}`, ``, `not json`} {
			w := env.do(newGenerateRequest(body, c))
			if w.Code != http.StatusBadRequest {
				t.Errorf("body %q: expected 400, got %d", body, w.Code)
				continue
			}
			if msg := decodeError(t, w); msg != "Prompt is required" {
				t.Errorf("body %q: expected Prompt is required, got %s", body, msg)
			}
		}
		if len(env.completer.Prompts()) != 0 {
			t.Error("completion service must not be called without a prompt")
		}
	})

	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		w := env.do(newGenerateRequest(`{"prompt":"hello"}`, c))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body generateResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Text == "" {
			t.Error("expected non-empty text")
		}
		if got := env.completer.Prompts(); len(got) != 1 || got[0] != "hello" {
			t.Errorf("expected one call with hello, got %v", got)
		}
	})

	t.Run("Completion Failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.completer.Err = shared.NewUpstreamError("completion", shared.ErrServiceUnavailable)
		c := env.signIn(t)

		w := env.do(newGenerateRequest(`{"prompt":"hello"}`, c))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		if msg := decodeError(t, w); msg != "Failed to generate text" {
			t.Errorf("expected Failed to generate text, got %s", msg)
		}
		if n := len(env.completer.Prompts()); n != 1 {
			t.Errorf("expected a single attempt, got %d", n)
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		env := newTestEnv(t, func(c *shared.Config) {
			c.Limits.GeneratePerMinute = 1
			c.Limits.GenerateBurst = 1
		})
		c := env.signIn(t)

		if w := env.do(newGenerateRequest(`{"prompt":"hello"}`, c)); w.Code != http.StatusOK {
			t.Fatalf("expected first request to pass, got %d", w.Code)
		}
		w := env.do(newGenerateRequest(`{"prompt":"hello"}`, c))
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", w.Code)
		}
		if msg := decodeError(t, w); msg != "Too many requests" {
			t.Errorf("expected Too many requests, got %s", msg)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/api/ai/suggestions/generate", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
		if allow := w.Header().Get("Allow"); allow != "POST" {
			t.Errorf("expected Allow: POST, got %s", allow)
		}
	})
}

func TestDashboard(t *testing.T) {
	get := func(env *testEnv, path string, c *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if c != nil {
			req.AddCookie(c)
		}
		return env.do(req)
	}

	t.Run("Unauthenticated Redirects To Login", func(t *testing.T) {
		env := newTestEnv(t)
		w := get(env, "/dashboard", nil)

		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
			t.Fatalf("expected 302 /login, got %d %s", w.Code, w.Header().Get("Location"))
		}
	})

	t.Run("No Channel Renders Connect Prompt", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		w := get(env, "/dashboard", c)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "Connect your YouTube channel") {
			t.Errorf("expected connect prompt, got %s", body)
		}
		if strings.Contains(body, `class="tab"`) {
			t.Error("tab content rendered without a channel")
		}
	})

	t.Run("Linked Channel Renders Tab", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)
		if err := env.store.LinkChannel(context.Background(), "user-1", "UC123", time.Now()); err != nil {
			t.Fatalf("LinkChannel failed: %v", err)
		}

		w := get(env, "/dashboard?tab=videos", c)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := w.Body.String(); !strings.Contains(body, `data-tab="videos"`) {
			t.Errorf("expected videos tab, got %s", body)
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		w := get(env, "/api/session", c)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var snap struct {
			Session struct {
				Session   *struct{ UserID string } `json:"session"`
				IsLoading bool                     `json:"isLoading"`
			} `json:"session"`
			View struct {
				Kind string `json:"kind"`
			} `json:"view"`
		}
		if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode snapshot: %v", err)
		}
		if snap.Session.IsLoading || snap.Session.Session == nil {
			t.Errorf("expected resolved session, got %+v", snap.Session)
		}
		if snap.View.Kind != "connect_channel" {
			t.Errorf("expected connect_channel, got %s", snap.View.Kind)
		}
	})

	t.Run("Snapshot Requires Session", func(t *testing.T) {
		env := newTestEnv(t)
		if w := get(env, "/api/session", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestYouTubeConnect(t *testing.T) {
	t.Run("Connect Returns Auth URL", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		req := httptest.NewRequest(http.MethodGet, "/api/youtube/connect", nil)
		req.AddCookie(c)
		w := env.do(req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body connectResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		state := findCookie(w, youtubeStateCookie)
		if state == nil {
			t.Fatal("expected state cookie")
		}
		if !strings.Contains(body.AuthURL, "state="+state.Value) {
			t.Errorf("auth URL %s does not carry state", body.AuthURL)
		}
	})

	t.Run("Connect Requires Session", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/api/youtube/connect", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("Callback Links Channel", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		req := httptest.NewRequest(http.MethodGet, "/api/youtube/callback?code=yt-code&state=s1", nil)
		req.AddCookie(c)
		req.AddCookie(&http.Cookie{Name: youtubeStateCookie, Value: "s1"})
		w := env.do(req)

		if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
			t.Fatalf("expected 302 /dashboard, got %d %s", w.Code, w.Header().Get("Location"))
		}
		linked, err := env.store.LinkedChannel(context.Background(), "user-1")
		if err != nil || linked != "UC123" {
			t.Errorf("expected UC123 linked, got %q %v", linked, err)
		}

		s, err := env.accessor.GetSession(context.Background(), c.Value)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if s.Metadata.ChannelID != "UC123" {
			t.Errorf("expected session metadata to carry UC123, got %q", s.Metadata.ChannelID)
		}
	})

	t.Run("Callback State Mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.signIn(t)

		req := httptest.NewRequest(http.MethodGet, "/api/youtube/callback?code=yt-code&state=forged", nil)
		req.AddCookie(c)
		req.AddCookie(&http.Cookie{Name: youtubeStateCookie, Value: "s1"})
		w := env.do(req)

		if loc := w.Header().Get("Location"); loc != "/dashboard?connect_error=state" {
			t.Errorf("expected state error redirect, got %s", loc)
		}
		if _, err := env.store.LinkedChannel(context.Background(), "user-1"); !errors.Is(err, shared.ErrChannelNotFound) {
			t.Errorf("expected no link, got %v", err)
		}
	})

	t.Run("Callback Without Channel", func(t *testing.T) {
		env := newTestEnv(t)
		env.identity.ChannelErr = shared.NewUpstreamError("youtube", shared.ErrChannelNotFound)
		c := env.signIn(t)

		req := httptest.NewRequest(http.MethodGet, "/api/youtube/callback?code=yt-code&state=s1", nil)
		req.AddCookie(c)
		req.AddCookie(&http.Cookie{Name: youtubeStateCookie, Value: "s1"})
		w := env.do(req)

		if loc := w.Header().Get("Location"); loc != "/dashboard?connect_error=no_channel" {
			t.Errorf("expected no_channel redirect, got %s", loc)
		}
	})

	t.Run("Callback Links Provider Channel", func(t *testing.T) {
		env := newTestEnv(t)
		env.identity.Channel = "UC999"
		c := env.signIn(t)

		req := httptest.NewRequest(http.MethodGet, "/api/youtube/callback?code=yt-code&state=s1", nil)
		req.AddCookie(c)
		req.AddCookie(&http.Cookie{Name: youtubeStateCookie, Value: "s1"})
		env.do(req)

		linked, err := env.store.LinkedChannel(context.Background(), "user-1")
		if err != nil || linked != "UC999" {
			t.Errorf("expected UC999 linked, got %q %v", linked, err)
		}
	})
}

func TestSessionEvents(t *testing.T) {
	env := newTestEnv(t)
	c := env.signIn(t)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/session/events", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.AddCookie(c)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	waitFor := func(kind string) {
		t.Helper()
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"kind":"`+kind+`"`) {
				return
			}
		}
		t.Fatalf("stream ended before a %s view: %v", kind, scanner.Err())
	}

	waitFor("connect_channel")

	if err := env.accessor.SignOut(context.Background(), c.Value); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	waitFor("redirect")

	for scanner.Scan() {
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("expected stream to end cleanly, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
