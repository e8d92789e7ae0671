package greeter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Account-Request/pkg/openrouter"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func TestGreetingFromModel(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{Role: schema.Assistant, Content: "  ようこそ！メールアドレスを教えてください。  "}}}
	g, err := New(context.Background(), fake, "greeting prompt", "fallback")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := g.Greeting(context.Background())
	if err != nil {
		t.Fatalf("Greeting() error = %v", err)
	}
	if got != "ようこそ！メールアドレスを教えてください。" {
		t.Fatalf("greeting = %q", got)
	}
	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 || fake.inputs[0][0].Content != "greeting prompt" {
		t.Fatalf("unexpected model input: %#v", fake.inputs)
	}
}

func TestGreetingFallsBack(t *testing.T) {
	t.Parallel()

	cases := map[string]*fakeToolCallingModel{
		"model error":   {err: errors.New("upstream down")},
		"empty content": {responses: []*schema.Message{{Role: schema.Assistant, Content: "   "}}},
	}
	for name, fake := range cases {
		g, err := New(context.Background(), fake, "greeting prompt", "catalog greeting")
		if err != nil {
			t.Fatalf("%s: New() error = %v", name, err)
		}
		got, err := g.Greeting(context.Background())
		if err != nil {
			t.Fatalf("%s: Greeting() error = %v", name, err)
		}
		if got != "catalog greeting" {
			t.Fatalf("%s: greeting = %q, want fallback", name, got)
		}
	}
}

func TestNewRequiresPrompt(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &fakeToolCallingModel{}, " ", "fallback")
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
	if _, err := New(context.Background(), nil, "prompt", "fallback"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStaticGreeting(t *testing.T) {
	t.Parallel()

	got, err := Static("hello").Greeting(context.Background())
	if err != nil || got != "hello" {
		t.Fatalf("Static greeting = %q, %v", got, err)
	}
}

func newTestParaphraser(t *testing.T, handler http.HandlerFunc) *Paraphraser {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := openrouterx.NewClient(openrouterx.Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxRetries: 0,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	p, err := NewParaphraser(client, "test-model", "paraphrase prompt")
	if err != nil {
		t.Fatalf("NewParaphraser() error = %v", err)
	}
	return p
}

func TestParaphrase(t *testing.T) {
	t.Parallel()

	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	p := newTestParaphraser(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ご利用になるツールを教えていただけますか？"}}]}`))
	})

	got, err := p.Paraphrase(context.Background(), "どのツールが必要ですか？")
	if err != nil {
		t.Fatalf("Paraphrase() error = %v", err)
	}
	if got != "ご利用になるツールを教えていただけますか？" {
		t.Fatalf("paraphrase = %q", got)
	}
	if body.Model != "test-model" || len(body.Messages) != 2 {
		t.Fatalf("request body = %+v", body)
	}
	if body.Messages[0].Role != "system" || body.Messages[1].Content != "どのツールが必要ですか？" {
		t.Fatalf("messages = %+v", body.Messages)
	}
}

func TestParaphraseErrors(t *testing.T) {
	t.Parallel()

	failing := newTestParaphraser(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	})
	if _, err := failing.Paraphrase(context.Background(), "q"); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	empty := newTestParaphraser(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model","choices":[]}`))
	})
	if _, err := empty.Paraphrase(context.Background(), "q"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}
