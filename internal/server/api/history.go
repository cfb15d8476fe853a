package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/footfit/internal/session"
	"github.com/ayusman/footfit/internal/store"
)

// LiveSession reports the session currently being recorded.
type LiveSession interface {
	Snapshot() session.Snapshot
}

// HistoryHandler serves recorded try-on sessions.
type HistoryHandler struct {
	store *store.Store
	live  LiveSession
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
// live may be nil; when set, the record of the active session cannot be deleted.
func NewHistoryHandler(s *store.Store, live LiveSession) *HistoryHandler {
	return &HistoryHandler{store: s, live: live}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionDetailResponse struct {
	*store.Session
	Events   []store.StatusEvent `json:"events"`
	Captures []*store.Capture    `json:"captures"`
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sessions or /api/sessions/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/sessions?limit=N.
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id}.
func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	events, err := h.store.Sessions().StatusEvents(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get status events")
		return
	}
	captures, err := h.store.Captures().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get captures")
		return
	}
	if events == nil {
		events = []store.StatusEvent{}
	}
	if captures == nil {
		captures = []*store.Capture{}
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{Session: sess, Events: events, Captures: captures})
}

// delete handles DELETE /api/sessions/{id}.
func (h *HistoryHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.live != nil {
		if snap := h.live.Snapshot(); snap.Active && snap.SessionID == id {
			writeError(w, http.StatusConflict, "Session is still active")
			return
		}
	}

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
