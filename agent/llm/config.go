package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Account-Request/pkg/openrouter"
)

type Role string

const (
	RoleGreeting   Role = "greeting"
	RoleParaphrase Role = "paraphrase"
)

// Config is the optional LLM layer. Without an API key and model the bot
// speaks only catalog texts.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"400"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	GreetingModel         string  `envconfig:"GREETING_MODEL" split_words:"true"`
	ParaphraseModel       string  `envconfig:"PARAPHRASE_MODEL" split_words:"true"`
	GreetingTemperature   float32 `envconfig:"GREETING_TEMPERATURE" split_words:"true" default:"-1"`
	ParaphraseTemperature float32 `envconfig:"PARAPHRASE_TEMPERATURE" split_words:"true" default:"-1"`
	ParaphraseQuestions   bool    `envconfig:"PARAPHRASE_QUESTIONS" split_words:"true"`
	ParaphraseMaxRetries  int     `envconfig:"PARAPHRASE_MAX_RETRIES" split_words:"true" default:"0"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.Model) != ""
}

// Resolve reports whether the LLM layer is on. Setting only one of the API
// key and the model is a configuration error.
func (c Config) Resolve() (bool, error) {
	if c.Enabled() {
		return true, nil
	}
	if strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.Model) == "" {
		return false, nil
	}
	return false, c.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature
	retries := 1

	switch role {
	case RoleGreeting:
		if v := strings.TrimSpace(c.GreetingModel); v != "" {
			modelName = v
		}
		if c.GreetingTemperature >= 0 {
			temp = c.GreetingTemperature
		}
	case RoleParaphrase:
		if v := strings.TrimSpace(c.ParaphraseModel); v != "" {
			modelName = v
		}
		if c.ParaphraseTemperature >= 0 {
			temp = c.ParaphraseTemperature
		}
		retries = c.ParaphraseMaxRetries
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		MaxRetries:         retries,
	}
}
