package greeter

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
)

// Paraphraser rewrites the fixed slot questions through an OpenAI-compatible
// chat completion endpoint.
type Paraphraser struct {
	client       *openaisdk.Client
	model        string
	systemPrompt string
}

var _ contractx.Paraphraser = (*Paraphraser)(nil)

func NewParaphraser(client *openaisdk.Client, model, systemPrompt string) (*Paraphraser, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: paraphrase model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: paraphrase system prompt", contractx.ErrPromptMissing)
	}
	return &Paraphraser{client: client, model: strings.TrimSpace(model), systemPrompt: systemPrompt}, nil
}

func (p *Paraphraser) Paraphrase(ctx context.Context, question string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(p.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(p.systemPrompt),
			openaisdk.UserMessage(question),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: paraphrase completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: paraphrase returned no choices", contractx.ErrSchemaViolation)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: paraphrase returned empty content", contractx.ErrSchemaViolation)
	}
	return text, nil
}
