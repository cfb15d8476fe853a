package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayusman/footfit/internal/scene"
	"github.com/ayusman/footfit/internal/store"
)

// ObjectHandler reads and customizes the tracked object.
type ObjectHandler struct {
	model *scene.Model
	store *store.Store
}

// NewObjectHandler creates a new ObjectHandler. s may be nil, in which case changes are not persisted.
func NewObjectHandler(m *scene.Model, s *store.Store) *ObjectHandler {
	return &ObjectHandler{model: m, store: s}
}

type objectResponse struct {
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

type updateObjectRequest struct {
	Color string `json:"color"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ObjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ObjectHandler) get(w http.ResponseWriter) {
	_, visible, c := h.model.Snapshot()
	writeJSON(w, http.StatusOK, objectResponse{
		Name:    h.model.Name(),
		Color:   scene.HexColor(c),
		Visible: visible,
	})
}

// update handles PUT /api/object.
func (h *ObjectHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := scene.ParseHexColor(req.Color)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.model.SetColor(c)

	if h.store != nil {
		if err := h.store.Settings().Set(store.SettingObjectColor, scene.HexColor(c)); err != nil {
			log.Printf("Failed to persist object color: %v", err)
		}
	}

	h.get(w)
}
