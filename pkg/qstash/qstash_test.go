package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io", Destination: "https://hook"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewClient(Config{URL: "https://qstash.upstash.io", Token: "t"}); err == nil {
		t.Fatal("expected error for missing destination")
	}
	if _, err := NewClient(Config{URL: "::bad", Token: "t", Destination: "https://hook"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	if (Config{Token: "t"}).Enabled() {
		t.Fatal("config without destination must be disabled")
	}
	if !(Config{Token: "t", Destination: "https://hook"}).Enabled() {
		t.Fatal("config with token and destination must be enabled")
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotAuth    string
		gotRetries string
		gotBody    map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg_123"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		URL:         server.URL,
		Token:       "token",
		Destination: "https://example.com/audit",
		Retries:     2,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	id, err := client.Publish(context.Background(), map[string]any{"tool": "trello"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "msg_123" {
		t.Fatalf("message id = %q, want msg_123", id)
	}
	if gotPath != "/v2/publish/https://example.com/audit" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotRetries != "2" {
		t.Fatalf("unexpected retries header: %s", gotRetries)
	}
	if gotBody["tool"] != "trello" {
		t.Fatalf("unexpected body: %#v", gotBody)
	}
}

func TestPublishHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad", Destination: "https://example.com/audit"})
	_, err := client.Publish(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("unexpected error: %v", err)
	}
}
