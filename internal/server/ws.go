package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/anwesha/fivesense/internal/trigger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusHandler broadcasts trigger state changes via WebSocket so the
// web UI and tray render the lifecycle live.
type StatusHandler struct {
	controller *trigger.Controller
	clients    map[*websocket.Conn]bool
	mu         sync.RWMutex
}

// NewStatusHandler creates a StatusHandler bound to the controller.
func NewStatusHandler(c *trigger.Controller) *StatusHandler {
	h := &StatusHandler{
		controller: c,
		clients:    make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests. Each new client gets
// the current status immediately, then every change after.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(h.controller.Status()); err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast relays controller status changes to all connected clients.
func (h *StatusHandler) broadcast() {
	updates, cancel := h.controller.Subscribe()
	defer cancel()

	for status := range updates {
		h.mu.RLock()
		for conn := range h.clients {
			if err := conn.WriteJSON(status); err != nil {
				log.Printf("websocket write error: %v", err)
			}
		}
		h.mu.RUnlock()
	}
}
