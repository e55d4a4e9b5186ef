package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSNotice is a server-to-client push. Every successful mutation sends a
// room_updated notice; the narrator streams story notices.
type WSNotice struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Text   string `json:"text,omitempty"`
}

// Client represents a websocket connection watching one room
type Client struct {
	conn    *websocket.Conn
	roomID  string
	writeMu sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

// WebSocket hub for pushing room updates to connected moderator screens
type Hub struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan WSNotice
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan WSNotice, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

var hub = newHub()

// notifyRoom queues a notice for every client watching roomID. Safe to
// call from request handlers; never blocks on a slow client.
func (h *Hub) notifyRoom(notice WSNotice) {
	select {
	case h.broadcast <- notice:
	case <-h.done:
	}
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected (room %s). Total: %d", client.roomID, total)
			DebugLog("hub.register", "Client watching room %s connected", client.roomID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				DebugLog("hub.unregister", "Client watching room %s disconnected", client.roomID)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)

		case notice := <-h.broadcast:
			message, err := json.Marshal(notice)
			if err != nil {
				logError("hub.broadcast: marshal", err)
				continue
			}
			h.mu.RLock()
			for conn, client := range h.clients {
				if client.roomID != notice.RoomID {
					continue
				}
				LogWSMessage("OUT", client.roomID, string(message))

				// Serialize writes to each connection
				client.writeMu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, message)
				client.writeMu.Unlock()

				if err != nil {
					log.Printf("WebSocket write error (room %s): %v", client.roomID, err)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Capture globals at entry to avoid race conditions in parallel tests
	currentDB := db
	currentHub := hub

	if _, ok := requireModerator(w, r); !ok {
		DebugLog("handleWebSocket", "Rejected WebSocket connection, not logged in")
		return
	}

	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "room query parameter is required")
		return
	}
	var exists int
	currentDB.Get(&exists, "SELECT COUNT(*) FROM room WHERE id = ?", roomID)
	if exists == 0 {
		writeError(w, http.StatusNotFound, "not_found", "room not found")
		return
	}

	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error (room %s): %v", roomID, err)
		return
	}

	DebugLog("handleWebSocket", "WebSocket upgraded for room %s", roomID)
	client := &Client{conn: conn, roomID: roomID}
	currentHub.register <- client

	// Drain until the client goes away; the API is push-only.
	go func() {
		defer func() {
			currentHub.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
