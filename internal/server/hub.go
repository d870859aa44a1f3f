package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/treefix50/soundboard/internal/playback"
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

// message is one frame pushed to event clients: state, notice, clips or
// bindings.
type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans playback and board changes out to websocket clients. It
// implements playback.Listener.
type Hub struct {
	logger   *slog.Logger
	snapshot func() [][]byte

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func newHub(logger *slog.Logger, snapshot func() [][]byte) *Hub {
	return &Hub{
		logger:   logger,
		snapshot: snapshot,
		clients:  make(map[*wsClient]struct{}),
	}
}

func (h *Hub) PlaybackChanged(state playback.State) {
	h.broadcast(encode(message{Type: "state", Data: state}))
}

func (h *Hub) Notice(n playback.Notice) {
	h.broadcast(encode(message{Type: "notice", Data: n}))
}

func (h *Hub) broadcast(msg []byte) {
	if msg == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// client fell behind
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func encode(m message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// handleEvents upgrades to a websocket, sends the current state and then
// streams changes. Client messages are ignored apart from pongs.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer)}
	for _, msg := range s.hub.snapshot() {
		client.send <- msg
	}
	if !s.hub.register(client) {
		_ = conn.Close()
		return
	}
	s.logger.Debug("event client connected", slog.String("client", clientKey(r)))

	go client.writePump()
	client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
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

func (s *Server) clipsMessage() []byte {
	return encode(message{Type: "clips", Data: s.clipViews()})
}

func (s *Server) bindingsMessage() []byte {
	return encode(message{Type: "bindings", Data: s.board.KeypadView()})
}

func (s *Server) stateMessage() []byte {
	state := playback.State{Widget: playback.PhaseNotCreated.String()}
	if s.playback != nil {
		state = s.playback.State()
	}
	return encode(message{Type: "state", Data: state})
}

func (s *Server) snapshot() [][]byte {
	return [][]byte{s.stateMessage(), s.clipsMessage(), s.bindingsMessage()}
}
