package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

type pushedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] .env not loaded, using system environment: %v", err)
	}

	defaultServer := os.Getenv("CHATTESTER_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	server := flag.String("server", defaultServer, "backend base URL")
	username := flag.String("user", "tester", "username")
	password := flag.String("password", "tester", "password")
	register := flag.Bool("register", false, "register the account before logging in")
	receiver := flag.String("to", "ChatBot", "message receiver")
	messages := flag.String("send", "hi", "messages to send, separated by |")
	listen := flag.Duration("listen", 3*time.Second, "how long to print pushed events after the last send")
	flag.Parse()

	base := strings.TrimRight(*server, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	if *register {
		if _, err := postJSON(client, base+"/api/register", "", map[string]string{"username": *username, "password": *password}); err != nil {
			log.Printf("register: %v", err)
		}
	}

	body, err := postJSON(client, base+"/api/login", "", map[string]string{"username": *username, "password": *password})
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil || login.Token == "" {
		log.Fatalf("login returned no token: %s", body)
	}

	wsURL, err := websocketURL(base, login.Token)
	if err != nil {
		log.Fatalf("invalid server url: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	go func() {
		for {
			var evt pushedEvent
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			log.Printf("<- %s %s", evt.Event, evt.Data)
		}
	}()

	for _, content := range strings.Split(*messages, "|") {
		if content == "" {
			continue
		}
		payload := map[string]string{"receiver": *receiver, "content": content}
		if _, err := postJSON(client, base+"/api/messages", login.Token, payload); err != nil {
			log.Fatalf("send %q failed: %v", content, err)
		}
		log.Printf("-> %s: %q", *receiver, content)
		time.Sleep(200 * time.Millisecond)
	}

	time.Sleep(*listen)
}

func websocketURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func postJSON(client *http.Client, endpoint, token string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return body, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
