// chatprobe sends one chat turn against a running backend and prints the
// event stream it gets back. Useful for eyeballing heartbeat and delta
// framing without a frontend.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	baseURL := flag.String("url", "http://localhost:8080", "backend base URL")
	chatID := flag.String("chat", "", "chat id, generated when empty")
	message := flag.String("message", "hello", "user message to send")
	model := flag.String("model", "", "selected model id, server default when empty")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	token, userID, err := mintGuest(client, *baseURL)
	if err != nil {
		log.Fatalf("guest session failed: %v", err)
	}
	log.Printf("guest session user=%s", userID)

	id := *chatID
	if id == "" {
		id = fmt.Sprintf("probe-%d", time.Now().UnixNano())
	}

	payload := map[string]any{
		"chatId": id,
		"messages": []map[string]any{
			{"role": "user", "content": *message},
		},
	}
	if *model != "" {
		payload["selectedModel"] = *model
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("failed to encode payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("unexpected status %d", resp.StatusCode)
	}

	log.Printf("streaming chat=%s", id)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		fmt.Println(strings.TrimPrefix(line, "data: "))
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stream read failed: %v", err)
	}
	log.Println("stream closed")
}

func mintGuest(client *http.Client, baseURL string) (token, userID string, err error) {
	resp, err := client.Post(baseURL+"/api/auth/guest", "application/json", nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			UserID string `json:"userId"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	return out.Token, out.User.UserID, nil
}
