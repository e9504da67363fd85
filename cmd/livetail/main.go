// Package main tails the live feed of a running Quill server: it signs in,
// opens the websocket and prints every event it receives.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	username := flag.String("username", "", "Account username")
	password := flag.String("password", "password123", "Account password")
	flag.Parse()

	if *username == "" {
		log.Fatal("--username is required")
	}

	token, err := login(*host, *username, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Fatalf("Dial %s failed: %v", u.Redacted(), err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("Connected as %s, waiting for events", *username)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("Read error: %v", err)
				}
				return
			}
			var ev event
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("Undecodable frame: %s", data)
				continue
			}
			fmt.Printf("%s %-13s %s\n", time.Now().Format(time.TimeOnly), ev.Type, ev.Payload)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(host, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/auth/login", host), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
