package session

import (
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/reactive"
)

// EventKind identifies a session change.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	ChannelLinked
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case ChannelLinked:
		return "channel_linked"
	default:
		return "unknown"
	}
}

// Event is a change notification published by the [Accessor].
//
// SessionID is empty when the change applies to every session of UserID.
type Event struct {
	Kind      EventKind
	UserID    string
	SessionID string
	ChannelID string
}

// Affects reports whether the event concerns s.
func (e Event) Affects(s *models.Session) bool {
	if s == nil {
		return false
	}
	if e.SessionID != "" {
		return e.SessionID == s.ID
	}
	return e.UserID == s.UserID
}

// Broker fans events out to subscribers synchronously, in subscription order.
type Broker struct {
	cell *reactive.Cell[Event]
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{cell: reactive.NewCell(Event{})}
}

// Publish delivers e to every current subscriber.
func (b *Broker) Publish(e Event) {
	b.cell.Set(e)
}

// Subscribe registers fn and returns a function removing it.
func (b *Broker) Subscribe(fn func(Event)) func() {
	return b.cell.Subscribe(fn)
}
