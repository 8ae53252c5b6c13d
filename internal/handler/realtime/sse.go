package realtime

import (
	"log"
	"net/http"
	"time"

	"github.com/zhouzirui/z-chatbot/backend/internal/middleware"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
	"github.com/zhouzirui/z-chatbot/backend/pkg/utils"
)

// handleEventStream 以 Server-Sent Events 推送与 WebSocket 相同的事件
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ch := delivery.NewQueueChannel(h.sendBuffer)
	h.registrar.Register(identity, ch)
	defer func() {
		h.registrar.Unregister(identity, ch)
		ch.Close()
	}()

	ctx := r.Context()
	log.Printf("[sse] opening event stream identity=%s", identity)

	connected := h.connectedEvent(identity)
	if err := utils.WriteSSEEvent(w, flusher, connected.Event, connected.Data); err != nil {
		log.Printf("[sse] write connected event failed identity=%s: %v", identity, err)
		return
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing event stream identity=%s", identity)
			return
		case evt := <-ch.Events():
			if err := utils.WriteSSEEvent(w, flusher, evt.Event, evt.Data); err != nil {
				log.Printf("[sse] write failed identity=%s event=%s: %v", identity, evt.Event, err)
				return
			}
		case <-ticker.C:
			if err := utils.WriteSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
