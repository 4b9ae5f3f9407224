package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/services"
)

const maxPromptBytes = 16 << 10

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// GenerateHandler proxies a prompt to the completion service. One attempt per request.
type GenerateHandler struct {
	completer services.Completer
	logger    *log.Logger
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(completer services.Completer, logger *log.Logger) *GenerateHandler {
	return &GenerateHandler{completer: completer, logger: logger}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	body := http.MaxBytesReader(w, r.Body, maxPromptBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, msgPromptRequired)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, msgPromptRequired)
		return
	}

	text, err := h.completer.Complete(r.Context(), req.Prompt)
	if err != nil {
		fields := []any{"error", err, "request_id", RequestIDFrom(r.Context())}
		if s := gate.SessionFrom(r.Context()); s != nil {
			fields = append(fields, "user_id", s.UserID)
		}
		h.logger.Error("text generation failed", fields...)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Text: text})
}
