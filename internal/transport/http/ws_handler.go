package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
)

const sendBufferSize = 64

var (
	errConnClosed  = errors.New("connection closed")
	errSendBacklog = errors.New("send buffer full")
)

type WSHandler struct {
	orchestrator *app.Orchestrator
	auth         *Authenticator
	upgrader     websocket.Upgrader
	log          *slog.Logger
}

// NewWSHandler wires websocket connections into the orchestrator. auth may be
// nil, in which case connections carry no identity.
func NewWSHandler(orchestrator *app.Orchestrator, auth *Authenticator, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		orchestrator: orchestrator,
		auth:         auth,
		log:          log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// wsClient adapts a websocket to broadcast.Conn. Deliveries are queued and
// written by a single writer goroutine.
type wsClient struct {
	id     string
	mu     sync.Mutex
	closed bool
	send   chan broadcast.Message
}

func newWSClient() *wsClient {
	return &wsClient{
		id:   uuid.NewString(),
		send: make(chan broadcast.Message, sendBufferSize),
	}
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Deliver(msg broadcast.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBacklog
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ServeWS upgrades HTTP requests to websockets and feeds every inbound
// message to the orchestrator.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity := ""
	if h.auth != nil {
		id, err := h.auth.Identify(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		identity = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := newWSClient()
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range client.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "conn", client.id, "error", err)
				return
			}
		}
	}()

	h.orchestrator.Connect(client, identity)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				_ = client.Deliver(broadcast.Message{Type: app.EvtError, Payload: map[string]string{"msg": "Invalid message"}})
				continue
			}
			break
		}
		h.orchestrator.Handle(r.Context(), client.id, inbound.Type, inbound.Payload)
	}

	h.orchestrator.Disconnect(client.id)
	client.close()
	<-writerDone
}
