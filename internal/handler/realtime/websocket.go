package realtime

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-chatbot/backend/internal/middleware"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
)

// handleWebSocket 升级连接并把它注册为调用者的推送通道
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := delivery.NewQueueChannel(h.sendBuffer)
	// queued before registration so it is always the first frame
	if err := ch.Send(h.connectedEvent(identity)); err != nil {
		log.Printf("[websocket] send connected event failed identity=%s: %v", identity, err)
	}
	h.registrar.Register(identity, ch)
	defer func() {
		h.registrar.Unregister(identity, ch)
		ch.Close()
	}()

	log.Printf("[websocket] new connection identity=%s", identity)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, ch, identity)
	}()

	h.readLoop(conn, identity)

	ch.Close()
	<-writerDone
	log.Printf("[websocket] connection closed identity=%s", identity)
}

// readLoop 仅用于处理 pong 与关闭帧，客户端消息通过 HTTP 接口发送。
func (h *Handler) readLoop(conn *websocket.Conn, identity string) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error identity=%s: %v", identity, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// writeLoop 是连接上唯一的写入者，负责事件与 ping。
func (h *Handler) writeLoop(conn *websocket.Conn, ch *delivery.QueueChannel, identity string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ch.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case evt := <-ch.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				log.Printf("[websocket] write failed identity=%s event=%s: %v", identity, evt.Event, err)
				ch.Close()
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ch.Close()
				conn.Close()
				return
			}
		}
	}
}
