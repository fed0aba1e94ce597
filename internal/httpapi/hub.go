package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chelouizer/internal/domain"
)

const (
	EventStatus   = "status"
	EventPlayback = "playback"
	EventFrame    = "frame"
	EventError    = "error"

	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

// Envelope is the JSON message pushed to websocket clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type statusPayload struct {
	Snapshot domain.Snapshot     `json:"snapshot"`
	Reason   domain.StatusReason `json:"reason"`
}

type playbackPayload struct {
	PlayingID string `json:"playingId"`
}

type errorPayload struct {
	Code   domain.ErrorCode `json:"code"`
	Detail string           `json:"detail"`
}

// Hub fans controller events out to every connected websocket client.
// It implements ports.EventSink.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*hubClient
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "event_hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*hubClient),
	}
}

func (h *Hub) StatusChanged(snapshot domain.Snapshot, reason domain.StatusReason) {
	h.broadcast(Envelope{Type: EventStatus, Payload: statusPayload{Snapshot: snapshot, Reason: reason}})
}

func (h *Hub) PlaybackChanged(playingID string) {
	h.broadcast(Envelope{Type: EventPlayback, Payload: playbackPayload{PlayingID: playingID}})
}

func (h *Hub) VisualizerFrame(frame domain.Frame) {
	h.broadcast(Envelope{Type: EventFrame, Payload: frame})
}

func (h *Hub) SessionError(code domain.ErrorCode, detail string) {
	h.broadcast(Envelope{Type: EventError, Payload: errorPayload{Code: code, Detail: detail}})
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &hubClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.logger.Debug().Str("client", client.id).Msg("websocket client connected")

	go h.writeLoop(client)
	h.readLoop(client)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

func (h *Hub) broadcast(envelope Envelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error().Err(err).Str("type", envelope.Type).Msg("failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			if envelope.Type == EventFrame {
				continue
			}
			h.logger.Warn().Str("client", id).Msg("dropping slow websocket client")
			delete(h.clients, id)
			client.close()
		}
	}
}

// readLoop discards inbound messages; it exists to notice disconnects.
func (h *Hub) readLoop(client *hubClient) {
	defer h.remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(client *hubClient) {
	defer func() { _ = client.conn.Close() }()
	for payload := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(client)
			return
		}
	}
	_ = client.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	if h.clients[client.id] == client {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()
	client.close()
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}
