package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ayusman/sonogest/internal/control"
	"github.com/ayusman/sonogest/internal/feed"
)

// maxBodyBytes bounds request bodies on the control endpoints.
const maxBodyBytes = 64 << 10

// Controller is the running control session as seen by the API.
type Controller interface {
	Snapshot() control.Snapshot
	SetMode(m control.Mode)
	Reset() control.Snapshot
	SubmitFeed(msg feed.Message)
}

// ControlHandler serves the live state and its control operations.
type ControlHandler struct {
	ctrl Controller
}

// NewControlHandler creates a ControlHandler for ctrl.
func NewControlHandler(ctrl Controller) *ControlHandler {
	return &ControlHandler{ctrl: ctrl}
}

// Register mounts the handler's routes on mux.
func (h *ControlHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/mode", h.handleMode)
	mux.HandleFunc("/api/reset", h.handleReset)
	mux.HandleFunc("/api/feed", h.handleFeed)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Mode string `json:"mode"`
}

type feedResponse struct {
	Status  string `json:"status"`
	Gesture string `json:"gesture"`
}

// handleState handles GET /api/state.
func (h *ControlHandler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// handleMode handles GET and PUT /api/mode.
func (h *ControlHandler) handleMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, modeResponse{Mode: h.ctrl.Snapshot().Mode})
	case http.MethodPut:
		var req modeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		m, ok := control.ParseMode(req.Mode)
		if !ok {
			writeError(w, http.StatusBadRequest, "Mode must be gesture or ambient")
			return
		}
		h.ctrl.SetMode(m)
		writeJSON(w, http.StatusOK, modeResponse{Mode: m.String()})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleReset handles POST /api/reset.
func (h *ControlHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Reset())
}

// handleFeed handles POST /api/feed with the same payload as the websocket feed.
func (h *ControlHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	msg, err := feed.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.ctrl.SubmitFeed(msg)
	writeJSON(w, http.StatusAccepted, feedResponse{Status: "accepted", Gesture: msg.Gesture})
}
