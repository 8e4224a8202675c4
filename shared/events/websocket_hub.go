package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

// ViewChecker decides whether a viewer organization may see a subject.
type ViewChecker interface {
	CanView(ctx context.Context, viewerID, subjectID uuid.UUID) (bool, error)
}

// Message is what websocket clients receive.
type Message struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	Event     *Envelope   `json:"event,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type client struct {
	organizationID uuid.UUID
	conn           *websocket.Conn
	send           chan Message
}

// Hub streams domain events to websocket clients, each client receiving
// only events about organizations its tenant can see.
type Hub struct {
	checker  ViewChecker
	log      *logrus.Logger
	upgrader websocket.Upgrader

	mutex   sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(checker ViewChecker, allowedOrigins []string, log *logrus.Logger) *Hub {
	h := &Hub{
		checker: checker,
		log:     log,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			log.WithField("origin", origin).Warn("websocket connection rejected")
			return false
		},
	}
	return h
}

func (h *Hub) Name() string { return "websocket" }

// Deliver implements Sink.
func (h *Hub) Deliver(ctx context.Context, event Event) error {
	envelope := Wrap(event)
	msg := Message{Type: "event", Event: &envelope, Timestamp: time.Now().UTC()}

	h.mutex.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mutex.RUnlock()

	for _, c := range targets {
		visible, err := h.visibleTo(ctx, c.organizationID, event)
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"organization_id": c.organizationID,
				"event":           event.Name(),
			}).Warn("failed to check event visibility")
			continue
		}
		if visible {
			h.enqueue(c, msg)
		}
	}
	return nil
}

func (h *Hub) visibleTo(ctx context.Context, viewer uuid.UUID, event Event) (bool, error) {
	for _, subject := range event.Subjects() {
		if subject == viewer {
			return true, nil
		}
		ok, err := h.checker.CanView(ctx, viewer, subject)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// enqueue drops the message for a client that is not keeping up.
func (h *Hub) enqueue(c *client, msg Message) {
	select {
	case c.send <- msg:
	default:
		h.log.WithField("organization_id", c.organizationID).Warn("websocket send queue full, dropping message")
	}
}

// Serve upgrades the request and streams events for organizationID until
// the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, organizationID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade websocket")
		return
	}

	c := &client{organizationID: organizationID, conn: conn, send: make(chan Message, clientSendSize)}
	h.register(c)

	done := make(chan struct{})
	go h.writePump(c, done)
	h.readPump(c)

	h.unregister(c)
	close(done)
}

func (h *Hub) register(c *client) {
	h.mutex.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mutex.Unlock()

	h.log.WithFields(logrus.Fields{"organization_id": c.organizationID, "total": total}).Info("websocket client connected")
	h.enqueue(c, Message{Type: "connection", Message: "WebSocket connection established", Timestamp: time.Now().UTC()})
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	delete(h.clients, c)
	total := len(h.clients)
	h.mutex.Unlock()

	_ = c.conn.Close()
	h.log.WithFields(logrus.Fields{"organization_id": c.organizationID, "total": total}).Info("websocket client disconnected")
}

func (h *Hub) readPump(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var incoming map[string]interface{}
		if err := c.conn.ReadJSON(&incoming); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).WithField("organization_id", c.organizationID).Warn("websocket read failed")
			}
			return
		}

		if msgType, ok := incoming["type"].(string); ok && msgType == "ping" {
			h.enqueue(c, Message{Type: "pong", Message: "pong", Timestamp: time.Now().UTC()})
		}
	}
}

func (h *Hub) writePump(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("organization_id", c.organizationID).Warn("websocket write failed")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
}
