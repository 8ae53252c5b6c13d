package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chatbot/backend/internal/middleware"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
	authService "github.com/zhouzirui/z-chatbot/backend/internal/service/auth"
	"github.com/zhouzirui/z-chatbot/backend/pkg/utils"
)

// Handler 账号注册与登录的HTTP处理器
type Handler struct {
	authSvc *authService.Service
}

// New 创建认证处理器
func New(authSvc *authService.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes 注册无需登录的认证路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// RegisterProtectedRoutes 注册需要令牌的路由
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/validate-token", h.handleValidateToken)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister 注册新用户
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.authSvc.Register(r.Context(), payload.Username, payload.Password)
	switch {
	case errors.Is(err, user.ErrUserExists):
		utils.RespondError(w, http.StatusBadRequest, "user already exists")
		return
	case errors.Is(err, authService.ErrInvalidInput), errors.Is(err, authService.ErrReservedUsername):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("[auth] register failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":  "User registered successfully",
		"username": u.Username,
	})
}

// handleLogin 校验密码并返回令牌
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.authSvc.Login(r.Context(), payload.Username, payload.Password)
	switch {
	case errors.Is(err, authService.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusBadRequest, "invalid username or password")
		return
	case err != nil:
		log.Printf("[auth] login failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleValidateToken 返回令牌对应的用户名
func (h *Handler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"username": identity})
}
