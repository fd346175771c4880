package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"Jukebox/notify"
	"Jukebox/queue"
	"Jukebox/storage"

	"github.com/Strum355/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsMessage struct {
	Type  string            `json:"type"`
	State queue.SharedState `json:"state"`
}

type wsClient struct {
	hub  *Hub
	code string
	conn *websocket.Conn
	send chan []byte

	// Guarded by the hub lock. Until primed, updates only replace latest.
	primed bool
	latest []byte
}

// Hub pushes every room update on the bus to the websocket clients watching
// that room
type Hub struct {
	mu          sync.Mutex
	rooms       map[string]map[*wsClient]struct{}
	unsubscribe func()
}

// NewHub creates a Hub listening on bus
func NewHub(bus *notify.Bus) *Hub {
	h := &Hub{rooms: make(map[string]map[*wsClient]struct{})}
	h.unsubscribe = bus.Subscribe(h.onUpdate)
	return h
}

func (h *Hub) onUpdate(u notify.Update) {
	if u.State.RoomCode == "" {
		return
	}
	msg, err := json.Marshal(wsMessage{Type: "state", State: u.State})
	if err != nil {
		log.WithError(err).Error("Failed to encode room update")
		return
	}
	h.broadcast(u.State.RoomCode, msg)
}

func (h *Hub) broadcast(code string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[code] {
		if !c.primed {
			c.latest = msg
			continue
		}
		h.sendLocked(c, msg)
	}
}

func (h *Hub) sendLocked(c *wsClient, msg []byte) {
	select {
	case c.send <- msg:
	default:
		// Slow clients are dropped and reload on reconnect
		h.removeLocked(c)
	}
}

// add registers c. It gets no messages until prime is called.
func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[c.code]
	if !ok {
		clients = make(map[*wsClient]struct{})
		h.rooms[c.code] = clients
	}
	clients[c] = struct{}{}
}

// prime queues the first message for c and starts regular delivery. The
// snapshot must have been loaded after add; an update that arrived since then
// is sent in its place.
func (h *Hub) prime(c *wsClient, snapshot []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[c.code][c]; !ok {
		return
	}
	c.primed = true
	msg := snapshot
	if c.latest != nil {
		msg = c.latest
		c.latest = nil
	}
	if msg != nil {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	clients, ok := h.rooms[c.code]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.code)
	}
}

// Clients returns the number of clients watching the room with code
func (h *Hub) Clients(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[code])
}

// Close stops listening for updates and disconnects every client
func (h *Hub) Close() {
	h.unsubscribe()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for c := range clients {
			h.removeLocked(c)
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// Clients never send anything, reading only notices the close
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) *apiError {
	code, apiErr := codeParam(r)
	if apiErr != nil {
		return apiErr
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		log.Info("Failed to upgrade websocket: " + err.Error())
		return nil
	}

	client := &wsClient{hub: s.hub, code: code, conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.add(client)
	s.hub.prime(client, s.snapshot(r.Context(), code))
	go client.writePump()

	log.WithContext(r.Context()).Info("Websocket connected to room " + code)
	client.readPump()
	return nil
}

func (s *Server) snapshot(ctx context.Context, code string) []byte {
	state, err := s.registry.Backend().Load(ctx, code)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		state = queue.NewSharedState(code)
	case err != nil:
		log.WithError(err).Error("Failed to load room " + code)
		state = queue.NewSharedState(code)
	}
	msg, err := json.Marshal(wsMessage{Type: "state", State: state})
	if err != nil {
		log.WithError(err).Error("Failed to encode room " + code)
		return nil
	}
	return msg
}
