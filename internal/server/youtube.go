package server

import (
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

type connectResponse struct {
	AuthURL string `json:"authUrl"`
}

// YouTubeHandler serves the channel-connect flow. Both routes expect a session in the request context.
type YouTubeHandler struct {
	accessor *session.Accessor
	channels services.ChannelProvider
	cookies  cookies
	logger   *log.Logger
}

// NewYouTubeHandler creates a new channel-connect handler.
func NewYouTubeHandler(accessor *session.Accessor, channels services.ChannelProvider, c cookies, logger *log.Logger) *YouTubeHandler {
	return &YouTubeHandler{accessor: accessor, channels: channels, cookies: c, logger: logger}
}

// Connect returns the consent URL the browser should navigate to.
func (h *YouTubeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	state := h.cookies.issueState(w, youtubeStateCookie)
	writeJSON(w, http.StatusOK, connectResponse{AuthURL: h.channels.ConnectURL(state)})
}

// Callback links the consenting account's channel to the signed-in user and returns to the dashboard.
func (h *YouTubeHandler) Callback(w http.ResponseWriter, r *http.Request) {
	s := gate.SessionFrom(r.Context())
	logger := h.logger.With("user_id", s.UserID, "request_id", RequestIDFrom(r.Context()))

	if _, err := h.cookies.consumeState(w, r, youtubeStateCookie); err != nil {
		logger.Warn("channel connect state mismatch")
		h.fail(w, r, "state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		logger.Warn("channel connect denied", "error", r.URL.Query().Get("error"))
		h.fail(w, r, "denied")
		return
	}

	token, err := h.channels.ExchangeChannel(r.Context(), code)
	if err != nil {
		logger.Error("channel code exchange failed", "error", err)
		h.fail(w, r, "exchange")
		return
	}

	channelID, err := h.channels.ChannelID(r.Context(), token)
	if err != nil {
		logger.Error("channel lookup failed", "error", err)
		h.fail(w, r, "no_channel")
		return
	}

	if err := h.accessor.LinkChannel(r.Context(), s.UserID, channelID); err != nil {
		logger.Error("failed to store channel link", "error", err)
		h.fail(w, r, "store")
		return
	}

	http.Redirect(w, r, shared.DashboardPath, http.StatusFound)
}

func (h *YouTubeHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	q := url.Values{}
	q.Set("connect_error", reason)
	http.Redirect(w, r, shared.DashboardPath+"?"+q.Encode(), http.StatusFound)
}
