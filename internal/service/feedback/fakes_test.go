package feedback

import (
	"sync"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

// recordingConn captures every frame written to it.
type recordingConn struct {
	mu     sync.Mutex
	sent   []feedback.OutboundMessage
	closed bool
}

func (c *recordingConn) Send(msg feedback.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, msg := range c.sent {
		out = append(out, msg.Type)
	}
	return out
}

func (c *recordingConn) messages() []feedback.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]feedback.OutboundMessage(nil), c.sent...)
}

// orderingPusher records the store state at the moment each frame is pushed.
type orderingPusher struct {
	store    *Store
	statuses []feedback.Status
}

func (p *orderingPusher) Send(sessionID string, msg feedback.OutboundMessage) bool {
	session, _ := p.store.Get(sessionID)
	p.statuses = append(p.statuses, session.Status)
	return true
}

func (p *orderingPusher) Register(string, push.Connection) {}
