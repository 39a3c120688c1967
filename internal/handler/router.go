package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/feedback-collector/backend/internal/handler/health"
	"github.com/zhouzirui/feedback-collector/backend/internal/handler/session"
	"github.com/zhouzirui/feedback-collector/backend/internal/handler/stream"
	"github.com/zhouzirui/feedback-collector/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/feedback-collector/backend/internal/middleware"
	feedbackService "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Store    *feedbackService.Store
	Manager  *feedbackService.Manager
	Inbound  *feedbackService.Router
	Registry *push.Registry

	// MCP 非空时挂载到 /mcp
	MCP http.Handler
	// StaticDir 非空时托管反馈页面
	StaticDir string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// stdout 留给 MCP stdio 传输，请求日志写到 stderr
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	health.New(deps.Store).RegisterRoutes(r)
	ws.New(deps.Manager, deps.Registry, deps.Inbound).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		session.New(deps.Manager, deps.Inbound).RegisterRoutes(api)
		stream.New(deps.Manager, deps.Registry).RegisterRoutes(api)
	})

	if deps.MCP != nil {
		r.Handle("/mcp", deps.MCP)
		r.Handle("/mcp/*", deps.MCP)
	}

	if deps.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(deps.StaticDir)))
	}

	return r
}
