package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-chatbot/backend/internal/middleware"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
	authservice "github.com/zhouzirui/z-chatbot/backend/internal/service/auth"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, err := authservice.NewService(user.NewMemoryStore(), "test-secret", 0)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	handler := New(svc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Auth(svc))
		handler.RegisterProtectedRoutes(authed)
	})
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegisterLoginValidate(t *testing.T) {
	r := setupRouter(t)
	creds := map[string]string{"username": "alice", "password": "pw"}

	if resp := postJSON(r, "/register", creds); resp.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", resp.Code)
	}

	resp := postJSON(r, "/login", creds)
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.Code)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("login: missing token (%v)", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/validate-token", nil)
	req.Header.Set(middleware.TokenHeader, body.Token)
	validate := httptest.NewRecorder()
	r.ServeHTTP(validate, req)
	if validate.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", validate.Code)
	}
	var who map[string]string
	_ = json.NewDecoder(validate.Body).Decode(&who)
	if who["username"] != "alice" {
		t.Fatalf("unexpected identity %v", who)
	}
}

func TestRegisterDuplicateReturns400(t *testing.T) {
	r := setupRouter(t)
	creds := map[string]string{"username": "alice", "password": "pw"}

	postJSON(r, "/register", creds)
	if resp := postJSON(r, "/register", creds); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestLoginBadPasswordReturns400(t *testing.T) {
	r := setupRouter(t)
	postJSON(r, "/register", map[string]string{"username": "alice", "password": "pw"})

	if resp := postJSON(r, "/login", map[string]string{"username": "alice", "password": "nope"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestValidateTokenWithoutToken(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/validate-token", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
