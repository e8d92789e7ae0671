package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanpawarit/Chative-Account-Request/agent/agents/orchestrator"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

type fakeConversations struct {
	reply     orchestrator.Reply
	err       error
	sessionID string
	text      string
	resets    []string
}

func (f *fakeConversations) HandleMessage(ctx context.Context, sessionID string, text string) (orchestrator.Reply, error) {
	f.sessionID = sessionID
	f.text = text
	return f.reply, f.err
}

func (f *fakeConversations) Reset(ctx context.Context, sessionID string) error {
	f.resets = append(f.resets, sessionID)
	return f.err
}

func (f *fakeConversations) Greeting(ctx context.Context) (string, error) {
	return "こんにちは！", f.err
}

func TestPostMessage(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{reply: orchestrator.Reply{
		Status: orchestrator.ReplyContinue,
		Text:   "どのツールが必要ですか？",
		Phase:  statex.PhaseAwaitingTool,
	}}
	srv := httptest.NewServer(NewHandler(conv))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions/s-1/messages", "application/json", strings.NewReader(`{"text":"test@example.com"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got orchestrator.Reply
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != orchestrator.ReplyContinue || got.Phase != statex.PhaseAwaitingTool || got.Text != "どのツールが必要ですか？" {
		t.Fatalf("reply = %+v", got)
	}
	if conv.sessionID != "s-1" || conv.text != "test@example.com" {
		t.Fatalf("forwarded session=%q text=%q", conv.sessionID, conv.text)
	}
}

func TestPostMessageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "empty message", body: `{"text":""}`, err: orchestrator.ErrInvalidMessage, want: http.StatusBadRequest},
		{name: "internal", body: `{"text":"hi"}`, err: errors.New("store down"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		conv := &fakeConversations{err: tc.err}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions/s-1/messages", strings.NewReader(tc.body))
		NewHandler(conv).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
		if tc.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "store down") {
			t.Fatalf("%s: internal detail leaked: %s", tc.name, rec.Body.String())
		}
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{}
	rec := httptest.NewRecorder()
	NewHandler(conv).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/s-9", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(conv.resets) != 1 || conv.resets[0] != "s-9" {
		t.Fatalf("resets = %v", conv.resets)
	}
}

func TestGetGreeting(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewHandler(&fakeConversations{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/greeting", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got greetingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Text != "こんにちは！" {
		t.Fatalf("greeting = %q", got.Text)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, Config{ListenAddr: "127.0.0.1:0"}, NewHandler(&fakeConversations{}))
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
}
