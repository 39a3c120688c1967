package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	"github.com/zhouzirui/feedback-collector/backend/pkg/utils"
)

var errStoreUnavailable = errors.New("session store unavailable")

// StatsSource 提供会话状态统计
type StatsSource interface {
	Stats() map[feedback.Status]int
}

// Handler 健康检查处理器
type Handler struct {
	sessions StatsSource
	checker  health.Checker
}

// New 创建健康检查处理器
func New(sessions StatsSource) *Handler {
	h := &Handler{sessions: sessions}
	h.checker = health.NewChecker(
		health.WithCacheDuration(time.Second),
		health.WithTimeout(5*time.Second),
		health.WithCheck(health.Check{
			Name:  "session-store",
			Check: h.checkStore,
		}),
	)
	return h
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/health", health.NewHandler(h.checker))
	r.Get("/health/sessions", h.handleSessionStats)
}

// checkStore 存储可读且统计覆盖全部状态时视为可用
func (h *Handler) checkStore(ctx context.Context) error {
	if h.sessions == nil {
		return errStoreUnavailable
	}
	stats := h.sessions.Stats()
	for _, status := range []feedback.Status{feedback.StatusWaiting, feedback.StatusCompleted, feedback.StatusExpired} {
		if _, ok := stats[status]; !ok {
			return errStoreUnavailable
		}
	}
	return ctx.Err()
}

// handleSessionStats 返回各状态的会话数量
func (h *Handler) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if err := h.checkStore(r.Context()); err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	stats := h.sessions.Stats()
	total := 0
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
		total += n
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"total":    total,
		"sessions": counts,
	})
}
