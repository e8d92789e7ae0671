package state

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxBackgroundLength is counted in code points, not bytes.
const MaxBackgroundLength = 255

type Tool string

const (
	ToolTrello      Tool = "trello"
	ToolGoogleDrive Tool = "google_drive"
)

func ParseTool(s string) (Tool, bool) {
	switch Tool(strings.TrimSpace(s)) {
	case ToolTrello:
		return ToolTrello, true
	case ToolGoogleDrive:
		return ToolGoogleDrive, true
	default:
		return "", false
	}
}

type Permission string

const (
	PermissionReader    Permission = "reader"
	PermissionCommenter Permission = "commenter"
	PermissionWriter    Permission = "writer"
)

func ParsePermission(s string) (Permission, bool) {
	switch Permission(strings.TrimSpace(s)) {
	case PermissionReader:
		return PermissionReader, true
	case PermissionCommenter:
		return PermissionCommenter, true
	case PermissionWriter:
		return PermissionWriter, true
	default:
		return "", false
	}
}

type Slot string

const (
	SlotEmail      Slot = "email"
	SlotTool       Slot = "tool"
	SlotPermission Slot = "permission"
	SlotBackground Slot = "background"
)

// SlotOrder is the fixed fill order. Permission is skipped unless the tool
// is Google Drive.
var SlotOrder = []Slot{SlotEmail, SlotTool, SlotPermission, SlotBackground}

type Phase string

const (
	PhaseAwaitingEmail      Phase = "awaiting_email"
	PhaseAwaitingTool       Phase = "awaiting_tool"
	PhaseAwaitingPermission Phase = "awaiting_permission"
	PhaseAwaitingBackground Phase = "awaiting_background"
	PhaseComplete           Phase = "complete"
)

// Conversation holds the slots collected so far for one account request.
// Empty strings mean "unset".
type Conversation struct {
	Email      string     `json:"email,omitempty"`
	Tool       Tool       `json:"tool,omitempty"`
	Permission Permission `json:"permission,omitempty"`
	Background string     `json:"background,omitempty"`
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) IsSet(slot Slot) bool {
	if c == nil {
		return false
	}
	switch slot {
	case SlotEmail:
		return c.Email != ""
	case SlotTool:
		return c.Tool != ""
	case SlotPermission:
		return c.Permission != ""
	case SlotBackground:
		return c.Background != ""
	default:
		return false
	}
}

// PermissionRequired reports whether the chosen tool needs a role.
func (c *Conversation) PermissionRequired() bool {
	return c != nil && c.Tool == ToolGoogleDrive
}

// NextSlot returns the first unresolved slot in fill order.
func (c *Conversation) NextSlot() (Slot, bool) {
	switch {
	case !c.IsSet(SlotEmail):
		return SlotEmail, true
	case !c.IsSet(SlotTool):
		return SlotTool, true
	case c.PermissionRequired() && !c.IsSet(SlotPermission):
		return SlotPermission, true
	case !c.IsSet(SlotBackground):
		return SlotBackground, true
	default:
		return "", false
	}
}

// Phase is derived from which slots are filled; it is never stored.
func (c *Conversation) Phase() Phase {
	slot, ok := c.NextSlot()
	if !ok {
		return PhaseComplete
	}
	switch slot {
	case SlotEmail:
		return PhaseAwaitingEmail
	case SlotTool:
		return PhaseAwaitingTool
	case SlotPermission:
		return PhaseAwaitingPermission
	default:
		return PhaseAwaitingBackground
	}
}

func (c *Conversation) IsComplete() bool {
	if c == nil || c.Email == "" || c.Tool == "" || c.Background == "" {
		return false
	}
	if c.Tool == ToolGoogleDrive && c.Permission == "" {
		return false
	}
	return true
}

func (c *Conversation) Reset() {
	*c = Conversation{}
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// ToAccountRequest converts a complete conversation and re-validates every
// field independently of how the slots were filled.
func (c *Conversation) ToAccountRequest() (AccountRequest, error) {
	if !c.IsComplete() {
		return AccountRequest{}, ErrIncomplete
	}
	req := AccountRequest{
		email:      c.Email,
		tool:       c.Tool,
		permission: c.Permission,
		background: c.Background,
	}
	if err := req.Validate(); err != nil {
		return AccountRequest{}, err
	}
	return req, nil
}

var (
	ErrIncomplete        = errors.New("conversation is incomplete")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrInvalidTool       = errors.New("unsupported tool")
	ErrInvalidPermission = errors.New("unsupported permission")
	ErrPermissionMissing = errors.New("google drive requires a permission")
	ErrBackgroundEmpty   = errors.New("background required")
	ErrBackgroundTooLong = errors.New("background too long")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// AccountRequest is the immutable request handed to a provisioner.
type AccountRequest struct {
	email      string
	tool       Tool
	permission Permission
	background string
}

// NewAccountRequest builds and validates a request outside of a conversation.
func NewAccountRequest(email string, tool Tool, permission Permission, background string) (AccountRequest, error) {
	req := AccountRequest{email: email, tool: tool, permission: permission, background: background}
	if err := req.Validate(); err != nil {
		return AccountRequest{}, err
	}
	return req, nil
}

func (r AccountRequest) Email() string          { return r.email }
func (r AccountRequest) Tool() Tool             { return r.tool }
func (r AccountRequest) Permission() Permission { return r.permission }
func (r AccountRequest) Background() string     { return r.background }

func (r AccountRequest) Validate() error {
	if !emailPattern.MatchString(r.email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, r.email)
	}
	if _, ok := ParseTool(string(r.tool)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTool, r.tool)
	}
	if r.permission != "" {
		if _, ok := ParsePermission(string(r.permission)); !ok {
			return fmt.Errorf("%w: %q", ErrInvalidPermission, r.permission)
		}
	}
	if r.tool == ToolGoogleDrive && r.permission == "" {
		return ErrPermissionMissing
	}
	if strings.TrimSpace(r.background) == "" {
		return ErrBackgroundEmpty
	}
	if n := utf8.RuneCountInString(r.background); n > MaxBackgroundLength {
		return fmt.Errorf("%w: %d code points (max %d)", ErrBackgroundTooLong, n, MaxBackgroundLength)
	}
	return nil
}
