package session

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	feedbackservice "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
	"github.com/zhouzirui/feedback-collector/backend/pkg/utils"
)

// Summarizer 提供会话的拉取视图
type Summarizer interface {
	Summary(sessionID string) (feedback.Summary, error)
}

// Submitter 接收用户反馈
type Submitter interface {
	Submit(sessionID string, data feedback.FeedbackData) error
}

// Handler 会话相关的HTTP处理器
type Handler struct {
	sessions Summarizer
	inbound  Submitter
}

// New 创建会话处理器
func New(sessions Summarizer, inbound Submitter) *Handler {
	return &Handler{
		sessions: sessions,
		inbound:  inbound,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Post("/session/{sessionID}/feedback", h.handleSubmitFeedback)
}

// handleGetSession 获取会话信息
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.sessions.Summary(sessionID)
	if err != nil {
		if errors.Is(err, feedbackservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("[session] summary failed session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

// handleSubmitFeedback 提交反馈，效果与推送通道上的 user_feedback 消息一致
func (h *Handler) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload feedback.FeedbackData
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.inbound.Submit(sessionID, payload); err != nil {
		switch {
		case errors.Is(err, feedbackservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, feedbackservice.ErrSessionClosed):
			utils.RespondError(w, http.StatusConflict, "session already closed")
		default:
			log.Printf("[session] submit failed session=%s: %v", sessionID, err)
			utils.RespondError(w, http.StatusInternalServerError, "failed to submit feedback")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "feedback submitted",
	})
}
