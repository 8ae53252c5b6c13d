package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	model "github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/auth"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/bot"
	chatService "github.com/zhouzirui/z-chatbot/backend/internal/service/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
)

func newTestServer(t *testing.T) (*httptest.Server, *delivery.Router) {
	t.Helper()

	authSvc, err := auth.NewService(user.NewMemoryStore(), "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	script := bot.DefaultScript()
	router := delivery.NewRouter()
	chatSvc := chatService.NewService(model.NewMemoryStore(), router, bot.NewEngine(script, bot.Options{}))

	srv := httptest.NewServer(NewRouter(Deps{
		Auth:       authSvc,
		Chat:       chatSvc,
		Delivery:   router,
		Script:     script,
		SendBuffer: 16,
	}))
	t.Cleanup(srv.Close)
	return srv, router
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode err: %v", err)
		}
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s err: %v", method, url, err)
	}
	return resp
}

func login(t *testing.T, base, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "pw-" + username}

	resp := doJSON(t, http.MethodPost, base+"/api/register", "", creds)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, base+"/api/login", "", creds)
	defer resp.Body.Close()
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login err: %v", err)
	}
	return body.Token
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func TestEndToEndQueryDialogue(t *testing.T) {
	srv, router := newTestServer(t)
	token := login(t, srv.URL, "alice")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first frame
	if err := conn.ReadJSON(&first); err != nil || first.Event != "connected" {
		t.Fatalf("expected connected frame, got %+v (%v)", first, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for router.Connections("alice") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/messages", token, map[string]string{
		"receiver": model.BotIdentity,
		"content":  "5",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send: status %d", resp.StatusCode)
	}

	var events []string
	var prompt model.Message
	for len(events) < 2 {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read err: %v", err)
		}
		events = append(events, f.Event)
		if f.Event == delivery.EventMessage {
			if err := json.Unmarshal(f.Data, &prompt); err != nil {
				t.Fatalf("decode message err: %v", err)
			}
		}
	}
	if events[0] != delivery.EventOpenQueryBox || events[1] != delivery.EventMessage {
		t.Fatalf("unexpected event order %v", events)
	}
	if prompt.Sender != model.BotIdentity || prompt.Content != "Please enter your query:" {
		t.Fatalf("unexpected prompt %+v", prompt)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/messages", token, nil)
	defer resp.Body.Close()
	var history []model.Message
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history err: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
}

func TestMessagesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/messages", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
