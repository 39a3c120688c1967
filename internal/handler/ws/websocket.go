package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	maxFrameSize = 32 << 20
)

// Sessions 负责将连接绑定到会话并回放会话状态
type Sessions interface {
	Attach(sessionID string, conn push.Connection)
}

// Detacher 在连接关闭时解除注册
type Detacher interface {
	Detach(sessionID string, conn push.Connection) bool
}

// MessageRouter 处理客户端发来的消息
type MessageRouter interface {
	HandleClientMessage(sessionID string, raw []byte) error
}

// Handler WebSocket推送通道处理器
type Handler struct {
	sessions Sessions
	registry Detacher
	router   MessageRouter
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(sessions Sessions, registry Detacher, router MessageRouter) *Handler {
	return &Handler{
		sessions: sessions,
		registry: registry,
		router:   router,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// connection 将 gorilla 连接适配为 push.Connection，写操作串行化
type connection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConnection(conn *websocket.Conn) *connection {
	return &connection{conn: conn}
}

func (c *connection) Send(msg feedback.OutboundMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *connection) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleWebSocket 处理WebSocket连接；会话可以晚于连接创建
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}

	client := newConnection(conn)
	ctx, cancel := context.WithCancel(r.Context())

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[websocket] panic in session=%s: %v", sessionID, rec)
		}
		cancel()
		h.registry.Detach(sessionID, client)
		_ = client.Close()
		log.Printf("[websocket] connection closed for session: %s", sessionID)
	}()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, client)

	h.sessions.Attach(sessionID, client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error session=%s: %v", sessionID, err)
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.router.HandleClientMessage(sessionID, data); err != nil {
			log.Printf("[websocket] dropped message session=%s: %v", sessionID, err)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, client *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}
