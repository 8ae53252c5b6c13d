package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/zhouzirui/z-chatbot/backend/internal/handler/auth"
	chatHandler "github.com/zhouzirui/z-chatbot/backend/internal/handler/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/handler/realtime"
	middlewarePkg "github.com/zhouzirui/z-chatbot/backend/internal/middleware"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/auth"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/bot"
	chatService "github.com/zhouzirui/z-chatbot/backend/internal/service/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
	"github.com/zhouzirui/z-chatbot/backend/pkg/utils"
)

// Deps collects the services the HTTP layer is wired to.
type Deps struct {
	Auth          *auth.Service
	Chat          *chatService.Service
	Delivery      *delivery.Router
	Script        bot.Script
	AllowedOrigin string
	SendBuffer    int
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigin))

	authH := authHandler.New(deps.Auth)
	chatH := chatHandler.New(deps.Chat, deps.Script)
	realtimeH := realtime.New(deps.Delivery, deps.Chat, deps.SendBuffer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		authH.RegisterRoutes(api)
		chatH.RegisterPublicRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.Auth(deps.Auth))

			authH.RegisterProtectedRoutes(protected)
			chatH.RegisterRoutes(protected)
			realtimeH.RegisterRoutes(protected)
		})
	})

	return r
}
