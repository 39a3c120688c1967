package stream

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
	"github.com/zhouzirui/feedback-collector/backend/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

var errStreamClosed = errors.New("event stream closed")

// Sessions binds a connection to a session and replays its state.
type Sessions interface {
	Attach(sessionID string, conn push.Connection)
}

// Detacher drops a connection from the registry once the stream ends.
type Detacher interface {
	Detach(sessionID string, conn push.Connection) bool
}

// Handler serves the outbound push frames as Server-Sent Events, for clients
// that cannot hold a websocket. Replies go through the HTTP submit endpoint.
type Handler struct {
	sessions Sessions
	registry Detacher
}

// New creates a new stream handler
func New(sessions Sessions, registry Detacher) *Handler {
	return &Handler{sessions: sessions, registry: registry}
}

// RegisterRoutes mounts the event stream under the session API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/events", h.handleEvents)
}

// connection writes frames to an open SSE response.
type connection struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
	done    chan struct{}
}

func newConnection(w http.ResponseWriter, flusher http.Flusher) *connection {
	return &connection{w: w, flusher: flusher, done: make(chan struct{})}
}

func (c *connection) Send(msg feedback.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errStreamClosed
	}
	return utils.WriteSSEEvent(c.w, c.flusher, msg.Type, msg)
}

func (c *connection) heartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errStreamClosed
	}
	return utils.WriteSSEComment(c.w, c.flusher, "keepalive")
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := newConnection(w, flusher)
	defer func() {
		h.registry.Detach(sessionID, client)
		_ = client.Close()
		log.Printf("[sse] closing event stream for session=%s", sessionID)
	}()

	log.Printf("[sse] opening event stream for session=%s", sessionID)
	h.sessions.Attach(sessionID, client)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-ticker.C:
			if err := client.heartbeat(); err != nil {
				return
			}
		}
	}
}
