package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

const (
	signInStateCookie  = "ytdash_oauth_state"
	youtubeStateCookie = "ytdash_youtube_state"
	stateTTL           = 10 * time.Minute
)

// cookies writes the session and OAuth state cookies.
type cookies struct {
	session string
	secure  bool
}

func (c cookies) setSession(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.session,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookies) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.session,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// issueState stores a fresh random state in the named cookie and returns it.
func (c cookies) issueState(w http.ResponseWriter, name string) string {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

// consumeState clears the named state cookie and compares it with the state query parameter.
//
// present is false when no state cookie was sent.
func (c cookies) consumeState(w http.ResponseWriter, r *http.Request, name string) (present bool, err error) {
	cookie, cookieErr := r.Cookie(name)
	if cookieErr != nil || cookie.Value == "" {
		return false, shared.ErrInvalidState
	}
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: c.secure})

	got := r.URL.Query().Get("state")
	if subtle.ConstantTimeCompare([]byte(got), []byte(cookie.Value)) != 1 {
		return true, shared.ErrInvalidState
	}
	return true, nil
}

// AuthHandler serves the sign-in flow: the login redirect, the OAuth callback, and sign-out.
type AuthHandler struct {
	accessor *session.Accessor
	identity services.IdentityProvider
	cookies  cookies
	logger   *log.Logger
}

// NewAuthHandler creates a new sign-in handler.
func NewAuthHandler(accessor *session.Accessor, identity services.IdentityProvider, c cookies, logger *log.Logger) *AuthHandler {
	return &AuthHandler{accessor: accessor, identity: identity, cookies: c, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{shared.LoginPath, "/auth/callback", "/auth/logout"}
}

// ServeHTTP dispatches on the request path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == shared.LoginPath && r.Method == http.MethodGet:
		h.login(w, r)
	case r.URL.Path == "/auth/callback" && r.Method == http.MethodGet:
		h.callback(w, r)
	case r.URL.Path == "/auth/logout" && r.Method == http.MethodPost:
		h.logout(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state := h.cookies.issueState(w, signInStateCookie)
	http.Redirect(w, r, h.identity.AuthCodeURL(state), http.StatusFound)
}

// callback exchanges the code when one is present and always lands on the dashboard.
//
// A state cookie issued by /login must match; callbacks that never went through /login carry none
// and are exchanged as is. The auth gate on /dashboard handles any failure.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	defer http.Redirect(w, r, shared.DashboardPath, http.StatusFound)

	code := r.URL.Query().Get("code")
	if code == "" {
		if msg := r.URL.Query().Get("error"); msg != "" {
			h.logger.Warn("authorization denied", "error", msg, "description", r.URL.Query().Get("error_description"))
		}
		return
	}

	if present, err := h.cookies.consumeState(w, r, signInStateCookie); present && err != nil {
		h.logger.Warn("sign-in callback state mismatch", "request_id", RequestIDFrom(r.Context()))
		return
	}

	s, token, err := h.accessor.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err, "request_id", RequestIDFrom(r.Context()))
		return
	}
	h.cookies.setSession(w, token, s.ExpiresAt)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookies.session); err == nil && c.Value != "" {
		if err := h.accessor.SignOut(r.Context(), c.Value); err != nil {
			h.logger.Warn("sign-out failed", "error", err)
		}
	}
	h.cookies.clearSession(w)
	http.Redirect(w, r, shared.LoginPath, http.StatusFound)
}
