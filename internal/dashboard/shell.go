package dashboard

import (
	"slices"

	"github.com/desertthunder/ytdash/internal/channel"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/session"
)

// ViewKind is what the dashboard shell renders.
type ViewKind string

const (
	ViewLoading        ViewKind = "loading"
	ViewRedirect       ViewKind = "redirect"
	ViewConnectChannel ViewKind = "connect_channel"
	ViewTab            ViewKind = "tab"
)

// View is the shell's choice. RedirectTo is set for [ViewRedirect], Tab for [ViewTab].
type View struct {
	Kind       ViewKind `json:"kind"`
	RedirectTo string   `json:"redirectTo,omitempty"`
	Tab        string   `json:"tab,omitempty"`
}

// DefaultTabs are the dashboard sections, first is the default.
var DefaultTabs = []string{"overview", "videos", "ideas", "settings"}

// Shell selects the dashboard view.
type Shell struct {
	Tabs []string
}

// NewShell creates a shell over [DefaultTabs].
func NewShell() Shell {
	return Shell{Tabs: DefaultTabs}
}

// Tab returns name when it is a known tab and the first tab otherwise.
func (s Shell) Tab(name string) string {
	if slices.Contains(s.Tabs, name) {
		return name
	}
	if len(s.Tabs) == 0 {
		return ""
	}
	return s.Tabs[0]
}

// View decides what to show for the given states. Tab content is never chosen without a session and a channel.
func (s Shell) View(sessionState session.State, channelState channel.State, tab string) View {
	switch d := gate.Decide(sessionState); d.Outcome {
	case gate.Pending:
		return View{Kind: ViewLoading}
	case gate.Deny:
		return View{Kind: ViewRedirect, RedirectTo: d.RedirectTo}
	}

	switch {
	case channelState.Loading:
		return View{Kind: ViewLoading}
	case channelState.Channel == nil:
		return View{Kind: ViewConnectChannel}
	default:
		return View{Kind: ViewTab, Tab: s.Tab(tab)}
	}
}
