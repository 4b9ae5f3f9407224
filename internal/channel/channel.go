// Package channel derives the viewer's connected YouTube channel from their session.
//
// A [Context] waits for its session context to finish loading. A channel id in the session metadata
// wins; otherwise the backend link table is consulted, so a session minted before the channel was
// connected still sees it. Channel is nil exactly when neither source has a link.
package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/reactive"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

// ErrAlreadyMounted is returned by a second Mount of the same [Context].
var ErrAlreadyMounted = errors.New("channel context already mounted")

// State is the value held by a [Context].
type State struct {
	Channel *models.ChannelLink `json:"channel"`
	Loading bool                `json:"loading"`
}

// SessionSource is the session context a [Context] follows. Versions increase with every change.
type SessionSource interface {
	Load() (session.State, uint64)
	SubscribeVersion(fn func(session.State, uint64)) func()
}

// Links answers the supplementary link check.
type Links interface {
	LinkedChannel(ctx context.Context, userID string) (string, error)
}

// Context tracks the channel of the session held by a [SessionSource].
type Context struct {
	sessions SessionSource
	links    Links
	logger   *log.Logger
	state    *reactive.Cell[State]

	mu          sync.Mutex
	ctx         context.Context
	generation  uint64
	seen        uint64
	followed    bool
	mounted     bool
	closed      bool
	unsubscribe func()

	publish   sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
}

// NewContext creates an unmounted channel context in the loading state.
func NewContext(sessions SessionSource, links Links, logger *log.Logger) *Context {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Context{
		sessions: sessions,
		links:    links,
		logger:   logger,
		state:    reactive.NewCell(State{Loading: true}),
		ready:    make(chan struct{}),
	}
}

// Name identifies the provider in logs.
func (c *Context) Name() string { return "channel" }

// Get returns the current state.
func (c *Context) Get() State {
	return c.state.Get()
}

// Subscribe registers fn for state changes.
func (c *Context) Subscribe(fn func(State)) func() {
	return c.state.Subscribe(fn)
}

// Ready is closed once the first channel state is published.
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

// Mount starts following the session context. The session context may be mounted before or after.
func (c *Context) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.ctx = ctx
	c.mu.Unlock()

	unsubscribe := c.sessions.SubscribeVersion(c.follow)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.follow(c.sessions.Load())
	return nil
}

// Close stops following the session context. Lookups in flight finish and are discarded.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

// follow reacts to session state at version. States older than one already followed are dropped,
// which covers both the initial Load racing a notification and out-of-order delivery.
func (c *Context) follow(s session.State, version uint64) {
	c.mu.Lock()
	if c.closed || (c.followed && version <= c.seen) {
		c.mu.Unlock()
		return
	}
	c.followed = true
	c.seen = version
	if s.IsLoading {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	switch link := s.Session.Channel(); {
	case s.Session == nil:
		c.apply(gen, nil)
	case link != nil:
		c.apply(gen, link)
	default:
		go c.lookup(gen, s.Session.UserID)
	}
}

func (c *Context) lookup(gen uint64, userID string) {
	channelID, err := c.links.LinkedChannel(c.ctx, userID)
	if err != nil && !errors.Is(err, shared.ErrChannelNotFound) {
		c.logger.Error("channel link check failed", "user_id", userID, "error", err)
	}
	c.apply(gen, models.NewChannelLink(channelID))
}

func (c *Context) apply(gen uint64, link *models.ChannelLink) {
	c.publish.Lock()
	defer c.publish.Unlock()

	c.mu.Lock()
	stale := c.closed || gen != c.generation
	c.mu.Unlock()
	if stale {
		return
	}

	c.state.Set(State{Channel: link})
	c.readyOnce.Do(func() { close(c.ready) })
}
