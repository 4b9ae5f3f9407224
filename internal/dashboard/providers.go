package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/channel"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Provider is a mountable state holder.
type Provider interface {
	Name() string
	Mount(ctx context.Context) error
	Close() error
}

// Providers mounts in order and closes in reverse order.
type Providers []Provider

// Mount mounts every provider. When one fails, the ones already mounted are closed.
func (p Providers) Mount(ctx context.Context) error {
	for i, provider := range p {
		if err := provider.Mount(ctx); err != nil {
			closeErr := p[:i].Close()
			return errors.Join(fmt.Errorf("failed to mount %s provider: %w", provider.Name(), err), closeErr)
		}
	}
	return nil
}

// Close closes every provider, last first, and joins their errors.
func (p Providers) Close() error {
	var errs []error
	for i := len(p) - 1; i >= 0; i-- {
		if err := p[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s provider: %w", p[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Tree is the provider tree mounted for one viewer.
type Tree struct {
	Session   *session.Context
	Channel   *channel.Context
	providers Providers
}

// NewTree builds an unmounted tree for token.
func NewTree(source session.Source, links channel.Links, token string, logger *log.Logger) *Tree {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := session.NewContext(source, token, shared.WithLogger(logger, "provider", "session"))
	c := channel.NewContext(s, links, shared.WithLogger(logger, "provider", "channel"))
	return &Tree{Session: s, Channel: c, providers: Providers{s, c}}
}

// Mount mounts the session then the channel provider.
func (t *Tree) Mount(ctx context.Context) error {
	return t.providers.Mount(ctx)
}

// Close unmounts the tree, discarding pending results.
func (t *Tree) Close() error {
	return t.providers.Close()
}

// Snapshot is the combined state of a tree at one instant.
type Snapshot struct {
	Session session.State `json:"session"`
	Channel channel.State `json:"channel"`
	View    View          `json:"view"`
}

// Snapshot reads both providers and the view the shell would show for tab.
func (t *Tree) Snapshot(shell Shell, tab string) Snapshot {
	s := t.Session.Get()
	c := t.Channel.Get()
	return Snapshot{Session: s, Channel: c, View: shell.View(s, c, tab)}
}

// Changes returns a channel that receives a value whenever either provider changes, and a stop function.
// Stop closes the channel so a blocked reader is released; it is safe to call more than once.
func (t *Tree) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	var mu sync.Mutex
	closed := false

	notify := func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	stopSession := t.Session.Subscribe(func(session.State) { notify() })
	stopChannel := t.Channel.Subscribe(func(channel.State) { notify() })

	return ch, func() {
		stopSession()
		stopChannel()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}
