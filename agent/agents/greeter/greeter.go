package greeter

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
)

const greetingInstruction = "新しいユーザーが会話を開始しました。挨拶してください。"

// Static always answers with the catalog greeting.
type Static string

func (s Static) Greeting(context.Context) (string, error) {
	return string(s), nil
}

// LLM generates the greeting with a chat model and falls back to the catalog
// text whenever the model fails or answers with nothing.
type LLM struct {
	runner   compose.Runnable[map[string]any, *schema.Message]
	fallback string
}

var _ contractx.Greeter = (*LLM)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, fallback string) (*LLM, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: greeting system prompt", contractx.ErrPromptMissing)
	}
	runner, err := compileGreetingGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &LLM{runner: runner, fallback: fallback}, nil
}

func (g *LLM) Greeting(ctx context.Context) (string, error) {
	text, err := g.generate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("greeter: falling back to catalog greeting")
		return g.fallback, nil
	}
	return text, nil
}

func (g *LLM) generate(ctx context.Context) (string, error) {
	msg, err := g.runner.Invoke(ctx, map[string]any{"input": greetingInstruction})
	if err != nil {
		return "", fmt.Errorf("%w: greeting graph: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: greeting model returned no message", contractx.ErrSchemaViolation)
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("%w: greeting model returned empty content", contractx.ErrSchemaViolation)
	}
	return text, nil
}
