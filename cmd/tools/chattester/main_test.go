package main

import "testing"

func TestWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":     "ws://localhost:8080/api/ws?token=abc",
		"https://chat.example.com/": "wss://chat.example.com/api/ws?token=abc",
		"http://host/prefix":        "ws://host/prefix/api/ws?token=abc",
	}
	for base, want := range cases {
		got, err := websocketURL(base, "abc")
		if err != nil {
			t.Fatalf("%s: %v", base, err)
		}
		if got != want {
			t.Fatalf("%s: got %s want %s", base, got, want)
		}
	}
}
