package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/footfit/internal/session"
)

// enterTimeout bounds camera acquisition for one request.
const enterTimeout = 10 * time.Second

// Controller is the try-on session as seen by the API.
type Controller interface {
	Enter(ctx context.Context) error
	Exit() error
	Active() bool
	Snapshot() session.Snapshot
	Capture() ([]byte, error)
	Frame() ([]byte, error)
	Subscribe() (<-chan session.Snapshot, func())
}

// SessionHandler enters, exits and reports the live try-on session.
type SessionHandler struct {
	session Controller
}

// NewSessionHandler creates a new SessionHandler for c.
func NewSessionHandler(c Controller) *SessionHandler {
	return &SessionHandler{session: c}
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.session.Snapshot())
	case http.MethodPost:
		h.enter(w, r)
	case http.MethodDelete:
		h.exit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// enter handles POST /api/session.
func (h *SessionHandler) enter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), enterTimeout)
	defer cancel()

	err := h.session.Enter(ctx)
	switch {
	case errors.Is(err, session.ErrActive):
		writeError(w, http.StatusConflict, "Try-on session already active")
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusCreated, h.session.Snapshot())
	}
}

// exit handles DELETE /api/session.
func (h *SessionHandler) exit(w http.ResponseWriter, r *http.Request) {
	err := h.session.Exit()
	switch {
	case errors.Is(err, session.ErrInactive):
		writeError(w, http.StatusConflict, "No active try-on session")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, h.session.Snapshot())
	}
}

// CaptureHandler serves a JPEG composite of the live session.
type CaptureHandler struct {
	session Controller
}

// NewCaptureHandler creates a new CaptureHandler for c.
func NewCaptureHandler(c Controller) *CaptureHandler {
	return &CaptureHandler{session: c}
}

// ServeHTTP handles POST /api/capture.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := h.session.Capture()
	if err != nil {
		if errors.Is(err, session.ErrInactive) {
			writeError(w, http.StatusConflict, "No active try-on session")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to capture frame")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
