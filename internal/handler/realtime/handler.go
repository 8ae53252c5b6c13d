package realtime

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-chatbot/backend/internal/service/bot"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sseHeartbeat   = 25 * time.Second
)

// EventConnected 在通道注册成功后首先推送。
const EventConnected = "connected"

// Registrar 绑定与解绑身份的实时通道。
type Registrar interface {
	Register(identity string, ch delivery.Channel)
	Unregister(identity string, ch delivery.Channel)
}

// SessionReader 查询身份当前的对话状态。
type SessionReader interface {
	SessionState(identity string) bot.State
}

// Handler 实时推送处理器，提供 WebSocket 与 SSE 两种通道
type Handler struct {
	registrar  Registrar
	sessions   SessionReader
	sendBuffer int
	upgrader   websocket.Upgrader
}

// New 创建实时推送处理器
func New(registrar Registrar, sessions SessionReader, sendBuffer int) *Handler {
	return &Handler{
		registrar:  registrar,
		sessions:   sessions,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册需要登录的实时路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
	r.Get("/events", h.handleEventStream)
}

func (h *Handler) connectedEvent(identity string) delivery.Event {
	state := bot.StateMenu
	if h.sessions != nil {
		state = h.sessions.SessionState(identity)
	}
	return delivery.Event{
		Event: EventConnected,
		Data: map[string]string{
			"identity": identity,
			"state":    state.String(),
		},
	}
}
