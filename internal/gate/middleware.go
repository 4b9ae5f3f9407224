package gate

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Resolver resolves a session token synchronously.
type Resolver interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFrom returns the session stored by the middleware, or nil.
func SessionFrom(ctx context.Context) *models.Session {
	s, _ := ctx.Value(contextKey{}).(*models.Session)
	return s
}

// TokenFrom reads the session token from the named cookie.
func TokenFrom(r *http.Request, cookieName string) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Guard holds what the session middlewares need.
type Guard struct {
	resolver   Resolver
	cookieName string
	logger     *log.Logger
}

// NewGuard creates a guard reading tokens from cookieName.
func NewGuard(resolver Resolver, cookieName string, logger *log.Logger) *Guard {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Guard{resolver: resolver, cookieName: cookieName, logger: logger}
}

// resolve is the server-side equivalent of a mounted session context: it finishes loading before
// returning, so the only outcomes are Allow and Deny.
func (g *Guard) resolve(r *http.Request) (*models.Session, Decision) {
	s, err := g.resolver.GetSession(r.Context(), TokenFrom(r, g.cookieName))
	if err != nil {
		if !shared.IsAuthorization(err) {
			g.logger.Error("session lookup failed", "path", r.URL.Path, "error", err)
		}
		s = nil
	}
	return s, Decide(stateOf(s))
}

// RequireSession redirects unauthenticated requests to the login page.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, d := g.resolve(r)
		if !d.Allowed() {
			http.Redirect(w, r, d.RedirectTo, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireSessionAPI answers unauthenticated requests with 401 and a JSON error.
func (g *Guard) RequireSessionAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, d := g.resolve(r)
		if !d.Allowed() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}
