package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ayusman/footfit/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusSource publishes session snapshots.
type StatusSource interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// StatusHandler pushes tracking status and placement to WebSocket clients.
// Clients get JSON text frames, or msgpack binary frames with ?format=msgpack.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a new StatusHandler for source.
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	binary := r.URL.Query().Get("format") == "msgpack"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	// Detect client disconnects by reading until an error
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, h.source.Snapshot(), binary); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, snap, binary); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap session.Snapshot, binary bool) error {
	if binary {
		msg, err := msgpack.Marshal(snap)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, msg)
	}

	msg, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}
