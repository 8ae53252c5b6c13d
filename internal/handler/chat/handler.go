package chat

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chatbot/backend/internal/middleware"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/bot"
	chatService "github.com/zhouzirui/z-chatbot/backend/internal/service/chat"
	"github.com/zhouzirui/z-chatbot/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	script  bot.Script
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, script bot.Script) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		script:  script,
	}
}

// RegisterRoutes 注册需要登录的聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleSendMessage)
	r.Get("/messages", h.handleListMessages)
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/bot/menu", h.handleBotMenu)
}

type sendMessageRequest struct {
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

// handleSendMessage 保存消息并触发推送与机器人回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload sendMessageRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatSvc.SendMessage(r.Context(), caller, payload.Receiver, payload.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, msg)
}

// handleListMessages 返回调用者参与的全部消息
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	messages, err := h.chatSvc.ListMessages(r.Context(), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleBotMenu 返回机器人菜单
func (h *Handler) handleBotMenu(w http.ResponseWriter, r *http.Request) {
	query := bot.Option{Key: h.script.QueryKey, Label: h.script.QueryLabel}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"welcome": h.script.Welcome,
		"menu":    h.script.Menu(),
		"options": h.script.Options,
		"query":   query,
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrValidation):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrStorage):
		log.Printf("[chat] storage error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to store message")
	default:
		log.Printf("[chat] unexpected error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
