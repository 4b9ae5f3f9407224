// Package gate decides whether the protected dashboard may render for the current session.
package gate

import (
	"context"
	"sync"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Outcome is the tag of a [Decision].
type Outcome int

const (
	// Pending means the session is still loading: render a placeholder, never redirect.
	Pending Outcome = iota
	Allow
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a session state. RedirectTo is set only for [Deny].
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	RedirectTo string  `json:"redirectTo,omitempty"`
}

// Allowed reports whether the protected subtree may render.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Decide evaluates state.
func Decide(state session.State) Decision {
	switch {
	case state.IsLoading:
		return Decision{Outcome: Pending}
	case state.Session == nil:
		return Decision{Outcome: Deny, RedirectTo: shared.LoginPath}
	default:
		return Decision{Outcome: Allow}
	}
}

// StateSource is a readable, observable session state whose versions increase with every change.
type StateSource interface {
	Load() (session.State, uint64)
	SubscribeVersion(fn func(session.State, uint64)) func()
}

// Navigator performs a client-side redirect.
type Navigator func(path string)

// Watch re-evaluates the gate on every change of source until ctx is done and calls navigate
// once per transition into [Deny]. navigate runs on the goroutine that changed source.
// States older than one already observed are ignored. It returns the last decision.
func Watch(ctx context.Context, source StateSource, navigate Navigator) Decision {
	var mu sync.Mutex
	last := Decision{Outcome: Pending}
	var seen uint64
	observed := false

	observe := func(state session.State, version uint64) {
		mu.Lock()
		if observed && version <= seen {
			mu.Unlock()
			return
		}
		observed, seen = true, version
		d := Decide(state)
		prev := last
		last = d
		mu.Unlock()
		if d.Outcome == Deny && prev.Outcome != Deny {
			navigate(d.RedirectTo)
		}
	}

	unsubscribe := source.SubscribeVersion(observe)
	defer unsubscribe()
	observe(source.Load())

	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	return last
}

func stateOf(s *models.Session) session.State {
	return session.State{Session: s}
}
