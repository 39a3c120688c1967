package push

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

type fakeConn struct {
	mu      sync.Mutex
	sent    []feedback.OutboundMessage
	sendErr error
	closed  bool
}

func (c *fakeConn) Send(msg feedback.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestSendWithoutConnectionIsNotDelivered(t *testing.T) {
	registry := NewRegistry()

	assert.NotPanics(t, func() {
		assert.False(t, registry.Send("nobody", feedback.SessionComplete()))
	})
}

func TestSendDeliversToRegisteredConnection(t *testing.T) {
	registry := NewRegistry()
	conn := &fakeConn{}
	registry.Register("s1", conn)

	require.True(t, registry.Send("s1", feedback.AgentMessage("hello")))
	require.Len(t, conn.sent, 1)
	assert.Equal(t, "hello", conn.sent[0].Content)
}

func TestRegisterReplacesAndClosesPrevious(t *testing.T) {
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Register("s1", first)
	registry.Register("s1", second)

	assert.True(t, first.closed)
	assert.False(t, second.closed)

	require.True(t, registry.Send("s1", feedback.SessionComplete()))
	assert.Empty(t, first.sent)
	assert.Len(t, second.sent, 1)

	assert.False(t, registry.Detach("s1", first))
	assert.True(t, registry.Connected("s1"))

	assert.True(t, registry.Detach("s1", second))
	assert.False(t, registry.Connected("s1"))
}

func TestFailedSendDetachesStaleConnection(t *testing.T) {
	registry := NewRegistry()
	conn := &fakeConn{sendErr: errors.New("broken pipe")}
	registry.Register("s1", conn)

	assert.False(t, registry.Send("s1", feedback.SessionComplete()))
	assert.False(t, registry.Connected("s1"))
	assert.True(t, conn.closed)
	assert.Equal(t, 0, registry.Len())
}

func TestUnregister(t *testing.T) {
	registry := NewRegistry()
	registry.Register("s1", &fakeConn{})
	registry.Unregister("s1")

	assert.False(t, registry.Send("s1", feedback.SessionComplete()))
}
