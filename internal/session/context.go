package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/reactive"
	"github.com/desertthunder/ytdash/internal/shared"
)

// ErrAlreadyMounted is returned by a second Mount of the same [Context].
var ErrAlreadyMounted = errors.New("context already mounted")

// State is the value held by a [Context].
//
// While IsLoading is true Session is always nil.
type State struct {
	Session   *models.Session `json:"session"`
	IsLoading bool            `json:"isLoading"`
}

// Source is the subset of [Accessor] a [Context] reads from.
type Source interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	Subscribe(fn func(Event)) func()
}

// Context tracks the session behind one token.
type Context struct {
	source Source
	token  string
	logger *log.Logger
	state  *reactive.Cell[State]

	mu          sync.Mutex
	ctx         context.Context
	generation  uint64
	mounted     bool
	closed      bool
	unsubscribe func()
	expiry      *time.Timer

	// publish orders writes so that a stale generation can never overwrite a newer one.
	publish sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
}

// NewContext creates an unmounted context for token in the loading state.
func NewContext(source Source, token string, logger *log.Logger) *Context {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Context{
		source: source,
		token:  token,
		logger: logger,
		state:  reactive.NewCell(State{IsLoading: true}),
		ready:  make(chan struct{}),
	}
}

// Name identifies the provider in logs.
func (c *Context) Name() string { return "session" }

// Get returns the current state.
func (c *Context) Get() State {
	return c.state.Get()
}

// Load returns the current state with its version.
func (c *Context) Load() (State, uint64) {
	return c.state.Load()
}

// Subscribe registers fn for state changes.
func (c *Context) Subscribe(fn func(State)) func() {
	return c.state.Subscribe(fn)
}

// SubscribeVersion registers fn for state changes along with each state's version.
func (c *Context) SubscribeVersion(fn func(State, uint64)) func() {
	return c.state.SubscribeVersion(fn)
}

// Ready is closed once the first resolution is published.
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

// Mount subscribes to accessor events and starts resolving the session in the background.
func (c *Context) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.ctx = ctx
	c.unsubscribe = c.source.Subscribe(c.onEvent)
	gen := c.generation
	c.mu.Unlock()

	go c.resolve(gen)
	return nil
}

// Close stops listening. A resolution still in flight runs to completion and its result is
// discarded. Safe to call more than once.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed || !c.mounted {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++
	c.stopExpiry()
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	unsubscribe()
	return nil
}

func (c *Context) onEvent(e Event) {
	current := c.state.Get()
	switch e.Kind {
	case SignedOut:
		if current.IsLoading {
			c.refresh()
		} else if e.Affects(current.Session) {
			c.clear()
		}
	case ChannelLinked:
		if current.IsLoading || e.Affects(current.Session) {
			c.refresh()
		}
	}
}

// refresh starts a new resolution without returning to the loading state.
func (c *Context) refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	go c.resolve(gen)
}

// clear publishes a signed-out state, superseding any pending resolution.
func (c *Context) clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.apply(gen, nil)
}

func (c *Context) resolve(gen uint64) {
	s, err := c.source.GetSession(c.ctx, c.token)
	if err != nil {
		if shared.IsAuthorization(err) {
			c.logger.Debug("no active session", "error", err)
		} else {
			c.logger.Error("failed to resolve session", "error", err)
		}
		s = nil
	}
	c.apply(gen, s)
}

func (c *Context) apply(gen uint64, s *models.Session) {
	c.publish.Lock()
	defer c.publish.Unlock()

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.stopExpiry()
	if s != nil {
		c.expiry = time.AfterFunc(time.Until(s.ExpiresAt), func() { c.expire(gen) })
	}
	c.mu.Unlock()

	c.state.Set(State{Session: s})
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *Context) expire(gen uint64) {
	c.mu.Lock()
	current := gen == c.generation && !c.closed
	c.mu.Unlock()
	if current {
		c.logger.Debug("session expired")
		c.clear()
	}
}

// stopExpiry must be called with mu held.
func (c *Context) stopExpiry() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
}
