package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	configx "github.com/tanpawarit/Chative-Account-Request/pkg/config"
)

const (
	defaultBaseURL       = "https://api.trello.com/1"
	defaultMemberType    = "normal"
	defaultTimeout       = 30 * time.Second
	maxResponseSizeBytes = 1 << 20
	component            = "trello"
)

type Config struct {
	APIKey     string        `envconfig:"API_KEY" split_words:"true"`
	APIToken   string        `envconfig:"API_TOKEN" split_words:"true"`
	BoardID    string        `envconfig:"BOARD_ID" split_words:"true"`
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.trello.com/1"`
	MemberType string        `envconfig:"MEMBER_TYPE" split_words:"true" default:"normal"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Client adds members to a single Trello board.
type Client struct {
	baseURL    string
	apiKey     string
	apiToken   string
	boardID    string
	memberType string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Error is a non-2xx answer from the Trello API.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("trello api error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("trello api error: status=%d\ndetail: %s", e.StatusCode, e.Detail)
}

// NewClient validates cfg and fails with a config error naming the first
// missing setting.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, configx.Missing(component, "TRELLO_API_KEY")
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, configx.Missing(component, "TRELLO_API_TOKEN")
	}
	boardID := strings.TrimSpace(cfg.BoardID)
	if boardID == "" {
		return nil, configx.Missing(component, "TRELLO_BOARD_ID")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, &configx.Error{Component: component, Field: "TRELLO_BASE_URL", Err: err}
	}

	memberType := strings.TrimSpace(cfg.MemberType)
	if memberType == "" {
		memberType = defaultMemberType
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiToken:   apiToken,
		boardID:    boardID,
		memberType: memberType,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// AddBoardMember invites email to the configured board. Trello treats a
// repeated invite of an existing member as success, so callers may retry.
func (c *Client) AddBoardMember(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("trello: email is empty")
	}

	query := url.Values{}
	query.Set("email", email)
	query.Set("type", c.memberType)
	query.Set("key", c.apiKey)
	query.Set("token", c.apiToken)

	endpoint := fmt.Sprintf("%s/boards/%s/members?%s", c.baseURL, url.PathEscape(c.boardID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return fmt.Errorf("trello: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trello api error: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("trello: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}
	return nil
}

// errorDetail prefers the API's "message" field and falls back to the body.
func errorDetail(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return string(trimmed)
}

// redactURLError drops the request URL, which carries the key and token,
// from transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
