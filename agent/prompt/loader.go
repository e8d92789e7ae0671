package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/dialog"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
	"gopkg.in/yaml.v3"
)

//go:embed template/messages.yaml
var messagesRaw []byte

type errorTexts struct {
	InvalidEmail      string `yaml:"invalid_email"`
	BackgroundTooLong string `yaml:"background_too_long"`
	BackgroundEmpty   string `yaml:"background_empty"`
	UnknownValue      string `yaml:"unknown_value"`
	APIError          string `yaml:"api_error"`
	Internal          string `yaml:"internal"`
}

type llmTexts struct {
	GreetingSystem   string `yaml:"greeting_system"`
	ParaphraseSystem string `yaml:"paraphrase_system"`
}

// MessageSet holds every user-facing text of the bot.
type MessageSet struct {
	Greeting        string            `yaml:"greeting"`
	Questions       map[string]string `yaml:"questions"`
	Errors          errorTexts        `yaml:"errors"`
	Confirmations   map[string]string `yaml:"confirmations"`
	ToolNames       map[string]string `yaml:"tool_names"`
	PermissionNames map[string]string `yaml:"permission_names"`
	RoleLabels      map[string]string `yaml:"role_labels"`
	CompletionTexts map[string]string `yaml:"completion"`
	LLM             llmTexts          `yaml:"llm"`

	templates map[string]*template.Template
}

// LoadMessageSet parses the embedded catalog.
func LoadMessageSet() (*MessageSet, error) {
	return Parse(messagesRaw)
}

func MustLoadMessageSet() *MessageSet {
	set, err := LoadMessageSet()
	if err != nil {
		panic(err)
	}
	return set
}

// Parse decodes a catalog and checks that every required text is present.
func Parse(data []byte) (*MessageSet, error) {
	var set MessageSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: decode message catalog: %v", contractx.ErrPromptMissing, err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	if err := set.compile(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (m *MessageSet) validate() error {
	required := map[string]string{
		"greeting":                   m.Greeting,
		"errors.invalid_email":       m.Errors.InvalidEmail,
		"errors.background_too_long": m.Errors.BackgroundTooLong,
		"errors.background_empty":    m.Errors.BackgroundEmpty,
		"errors.api_error":           m.Errors.APIError,
		"errors.internal":            m.Errors.Internal,
	}
	for _, slot := range statex.SlotOrder {
		required["questions."+string(slot)] = m.Questions[string(slot)]
	}
	for _, tool := range []statex.Tool{statex.ToolTrello, statex.ToolGoogleDrive} {
		required["completion."+string(tool)] = m.CompletionTexts[string(tool)]
	}
	for key, text := range required {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, key)
		}
	}
	return nil
}

func (m *MessageSet) compile() error {
	m.templates = make(map[string]*template.Template)
	add := func(name, text string) error {
		if text == "" {
			return nil
		}
		tpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", contractx.ErrPromptMissing, name, err)
		}
		m.templates[name] = tpl
		return nil
	}

	if err := add("errors.api_error", m.Errors.APIError); err != nil {
		return err
	}
	for key, text := range m.CompletionTexts {
		if err := add("completion."+key, text); err != nil {
			return err
		}
	}
	for key, text := range m.Confirmations {
		if err := add("confirmations."+key, text); err != nil {
			return err
		}
	}
	return nil
}

func (m *MessageSet) render(name string, data any) (string, error) {
	tpl, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// QuestionMap is the per-slot question table in the form the controller takes.
func (m *MessageSet) QuestionMap() map[statex.Slot]string {
	out := make(map[statex.Slot]string, len(statex.SlotOrder))
	for _, slot := range statex.SlotOrder {
		out[slot] = strings.TrimSpace(m.Questions[string(slot)])
	}
	return out
}

func (m *MessageSet) ErrorMessages() dialog.ErrorMessages {
	return dialog.ErrorMessages{
		InvalidEmail:      m.Errors.InvalidEmail,
		BackgroundTooLong: m.Errors.BackgroundTooLong,
		BackgroundEmpty:   m.Errors.BackgroundEmpty,
		UnknownValue:      m.Errors.UnknownValue,
	}
}

func (m *MessageSet) ToolName(tool statex.Tool) string {
	if name := m.ToolNames[string(tool)]; name != "" {
		return name
	}
	return string(tool)
}

func (m *MessageSet) RoleLabel(p statex.Permission) string {
	if label := m.RoleLabels[string(p)]; label != "" {
		return label
	}
	return string(p)
}

// Confirmation renders one line per slot stored this turn, each followed by a
// blank line. Background is never echoed.
func (m *MessageSet) Confirmation(confirmed dialog.Updates) string {
	var b strings.Builder
	for _, slot := range []statex.Slot{statex.SlotEmail, statex.SlotTool, statex.SlotPermission} {
		value, ok := confirmed[slot]
		if !ok {
			continue
		}
		switch slot {
		case statex.SlotTool:
			value = m.ToolName(statex.Tool(value))
		case statex.SlotPermission:
			if name := m.PermissionNames[value]; name != "" {
				value = name
			}
		}
		line, err := m.render("confirmations."+string(slot), struct{ Value string }{value})
		if err != nil {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Completion renders the success message for req.
func (m *MessageSet) Completion(req statex.AccountRequest) (string, error) {
	data := struct {
		Email      string
		Permission string
		RoleLabel  string
		Background string
	}{
		Email:      req.Email(),
		Permission: string(req.Permission()),
		RoleLabel:  m.RoleLabel(req.Permission()),
		Background: req.Background(),
	}
	return m.render("completion."+string(req.Tool()), data)
}

// APIError renders the apology shown when provisioning fails.
func (m *MessageSet) APIError(detail string) string {
	out, err := m.render("errors.api_error", struct{ Detail string }{detail})
	if err != nil {
		return m.Errors.Internal
	}
	return out
}
