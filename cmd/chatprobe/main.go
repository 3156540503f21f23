// Package main is a smoke-test client for the chat WebSocket. It logs in,
// opens a conversation with a target user, sends a message and prints every
// event it receives until interrupted.
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

var client = &http.Client{Timeout: 5 * time.Second}

func main() {
	host := flag.String("host", "localhost:3001", "API server host")
	email := flag.String("email", "admin@socialnet.de", "Login email")
	password := flag.String("password", "admin123", "Login password")
	target := flag.String("target", "", "User id to open a conversation with")
	text := flag.String("text", "hello from chatprobe", "Message to send once connected")
	flag.Parse()

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Printf("Logged in as %s", *email)

	ticket, err := getTicket(*host, token)
	if err != nil {
		// Without Redis the server has no tickets; the token works as well.
		log.Printf("Ticket unavailable (%v), dialing with token", err)
	}

	q := url.Values{}
	if ticket != "" {
		q.Set("ticket", ticket)
	} else {
		q.Set("token", token)
	}
	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/chat", RawQuery: q.Encode()}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("Dial failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("Dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()
	log.Printf("Connected to %s", u.Path)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Read ended: %v", err)
				return
			}
			log.Printf("<- %s", raw)
		}
	}()

	if *target != "" {
		convID, err := openConversation(*host, token, *target)
		if err != nil {
			log.Fatalf("Open conversation failed: %v", err)
		}
		log.Printf("Conversation %s", convID)
		if err := sendMessage(*host, token, convID, *text); err != nil {
			log.Fatalf("Send failed: %v", err)
		}
		log.Printf("-> %q", *text)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func call(method, rawURL, token string, body any, dest any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, rawURL, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("status %d %s: %s", resp.StatusCode, e.Code, e.Error)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func login(host, email, password string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}
	err := call(http.MethodPost, fmt.Sprintf("http://%s/api/login", host), "",
		map[string]string{"email": email, "password": password}, &result)
	return result.Token, err
}

func getTicket(host, token string) (string, error) {
	var result struct {
		Ticket string `json:"ticket"`
	}
	err := call(http.MethodPost, fmt.Sprintf("http://%s/api/ws/ticket", host), token, nil, &result)
	return result.Ticket, err
}

func openConversation(host, token, target string) (string, error) {
	var conv struct {
		ID string `json:"id"`
	}
	err := call(http.MethodPost, fmt.Sprintf("http://%s/api/conversations", host), token,
		map[string]string{"targetId": target}, &conv)
	return conv.ID, err
}

func sendMessage(host, token, convID, text string) error {
	return call(http.MethodPost, fmt.Sprintf("http://%s/api/conversations/%s/messages", host, url.PathEscape(convID)), token,
		map[string]string{"text": text}, nil)
}
