package push

import (
	"log"
	"sync"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

// Connection is a live transport to one feedback client.
type Connection interface {
	Send(msg feedback.OutboundMessage) error
	Close() error
}

// Registry maps a session id to its single live connection. Delivery is
// best-effort: nothing is queued for clients that are not connected.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Connection)}
}

// Register makes conn the live connection for sessionID, closing whatever was
// registered before.
func (r *Registry) Register(sessionID string, conn Connection) {
	r.mu.Lock()
	prev := r.conns[sessionID]
	r.conns[sessionID] = conn
	r.mu.Unlock()

	if prev != nil && prev != conn {
		log.Printf("[push] replacing connection for session=%s", sessionID)
		if err := prev.Close(); err != nil {
			log.Printf("[push] close replaced connection session=%s: %v", sessionID, err)
		}
	}
}

// Unregister drops whatever connection is registered for sessionID.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	delete(r.conns, sessionID)
	r.mu.Unlock()
}

// Detach drops conn only while it is still the registered connection, so a
// replaced connection shutting down cannot evict its successor.
func (r *Registry) Detach(sessionID string, conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[sessionID]; ok && current == conn {
		delete(r.conns, sessionID)
		return true
	}
	return false
}

// Connected reports whether a client is registered for sessionID.
func (r *Registry) Connected(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[sessionID]
	return ok
}

// Send writes msg to the session's connection. A failed write detaches the
// connection; the message is dropped either way.
func (r *Registry) Send(sessionID string, msg feedback.OutboundMessage) bool {
	r.mu.RLock()
	conn, ok := r.conns[sessionID]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	if err := conn.Send(msg); err != nil {
		log.Printf("[push] send %s to session=%s failed: %v", msg.Type, sessionID, err)
		if r.Detach(sessionID, conn) {
			_ = conn.Close()
		}
		return false
	}
	return true
}

// Len reports how many sessions have a live connection.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
