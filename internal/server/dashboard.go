package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/channel"
	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/session"
)

const (
	resolveTimeout    = 5 * time.Second
	eventsKeepAlive   = 25 * time.Second
	snapshotEventName = "snapshot"
)

// DashboardHandler mounts a provider tree per request and serves the shell, the state snapshot,
// and the state event stream from it.
type DashboardHandler struct {
	source     session.Source
	links      channel.Links
	shell      dashboard.Shell
	renderer   *dashboard.Renderer
	cookieName string
	logger     *log.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(source session.Source, links channel.Links, renderer *dashboard.Renderer, cookieName string, logger *log.Logger) *DashboardHandler {
	return &DashboardHandler{
		source:     source,
		links:      links,
		shell:      dashboard.NewShell(),
		renderer:   renderer,
		cookieName: cookieName,
		logger:     logger,
	}
}

func (h *DashboardHandler) mount(r *http.Request) (*dashboard.Tree, error) {
	tree := dashboard.NewTree(h.source, h.links, gate.TokenFrom(r, h.cookieName), h.logger)
	if err := tree.Mount(r.Context()); err != nil {
		return nil, err
	}
	return tree, nil
}

// resolve mounts a tree and waits for the channel context, which settles after the session context.
func (h *DashboardHandler) resolve(r *http.Request) (dashboard.Snapshot, error) {
	tree, err := h.mount(r)
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	defer tree.Close()

	ctx, cancel := context.WithTimeout(r.Context(), resolveTimeout)
	defer cancel()

	select {
	case <-tree.Channel.Ready():
	case <-ctx.Done():
		h.logger.Warn("dashboard state did not settle", "request_id", RequestIDFrom(r.Context()))
	}
	return tree.Snapshot(h.shell, r.URL.Query().Get("tab")), nil
}

// Page renders the dashboard shell.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	snap, err := h.resolve(r)
	if err != nil {
		h.logger.Error("failed to mount dashboard", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	if snap.View.Kind == dashboard.ViewRedirect {
		http.Redirect(w, r, snap.View.RedirectTo, http.StatusFound)
		return
	}

	var buf bytes.Buffer
	page := dashboard.Page{
		View:    snap.View,
		Session: snap.Session.Session,
		Channel: snap.Channel.Channel,
		Tabs:    h.shell.Tabs,
	}
	if err := h.renderer.Render(&buf, page); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// Snapshot writes the settled session, channel, and view as JSON.
func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.resolve(r)
	if err != nil {
		h.logger.Error("failed to mount dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Events streams a snapshot on every provider change until the client goes away or the session ends.
// Unmounting on disconnect discards any pending resolution.
func (h *DashboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	tree, err := h.mount(r)
	if err != nil {
		h.logger.Error("failed to mount dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer tree.Close()

	// the stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	changes, stop := tree.Changes()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	tab := r.URL.Query().Get("tab")
	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	send := func() (dashboard.Snapshot, error) {
		snap := tree.Snapshot(h.shell, tab)
		data, err := json.Marshal(snap)
		if err != nil {
			return snap, err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", snapshotEventName, data); err != nil {
			return snap, err
		}
		flusher.Flush()
		return snap, nil
	}

	if _, err := send(); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-changes:
			snap, err := send()
			if err != nil {
				h.logger.Debug("event stream closed", "error", err)
				return
			}
			if snap.View.Kind == dashboard.ViewRedirect {
				return
			}
		}
	}
}
