package dialog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

type ErrorKind string

const (
	KindInvalidEmail      ErrorKind = "invalid_email"
	KindBackgroundTooLong ErrorKind = "background_too_long"
	KindBackgroundEmpty   ErrorKind = "background_empty"
	KindUnknownValue      ErrorKind = "unknown_value"
)

// FieldError is a user-correctable problem with one proposed slot value.
type FieldError struct {
	Slot    statex.Slot `json:"slot"`
	Kind    ErrorKind   `json:"kind"`
	Message string      `json:"message"`
}

// ValidationErrors are reported in slot order.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Slot, fe.Message))
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Get(slot statex.Slot) (FieldError, bool) {
	for _, fe := range v {
		if fe.Slot == slot {
			return fe, true
		}
	}
	return FieldError{}, false
}

func (v ValidationErrors) Messages() []string {
	out := make([]string, 0, len(v))
	for _, fe := range v {
		out = append(out, fe.Message)
	}
	return out
}

// ErrorMessages holds the user-facing validation texts. BackgroundTooLong is
// a format string receiving the maximum and the actual code-point count.
type ErrorMessages struct {
	InvalidEmail      string
	BackgroundTooLong string
	BackgroundEmpty   string
	UnknownValue      string
}

var DefaultErrorMessages = ErrorMessages{
	InvalidEmail:      "invalid email format",
	BackgroundTooLong: "background must be at most %d characters (got %d)",
	BackgroundEmpty:   "background required",
	UnknownValue:      "unsupported value %q",
}

// Apply stores every proposed value that passes its check and returns the
// errors for the rest. Slots already set in c are left untouched.
func Apply(c *statex.Conversation, u Updates, msgs ErrorMessages) ValidationErrors {
	var errs ValidationErrors

	for _, slot := range statex.SlotOrder {
		raw, ok := u[slot]
		if !ok || c.IsSet(slot) {
			continue
		}
		if fe, bad := applySlot(c, slot, raw, msgs); bad {
			errs = append(errs, fe)
		}
	}
	return errs
}

func applySlot(c *statex.Conversation, slot statex.Slot, raw string, msgs ErrorMessages) (FieldError, bool) {
	switch slot {
	case statex.SlotEmail:
		if !plausibleEmail(raw) {
			return FieldError{Slot: slot, Kind: KindInvalidEmail, Message: msgs.InvalidEmail}, true
		}
		c.Email = raw

	case statex.SlotTool:
		tool, ok := statex.ParseTool(raw)
		if !ok {
			return unknownValue(slot, raw, msgs), true
		}
		c.Tool = tool

	case statex.SlotPermission:
		perm, ok := statex.ParsePermission(raw)
		if !ok {
			return unknownValue(slot, raw, msgs), true
		}
		c.Permission = perm

	case statex.SlotBackground:
		if n := utf8.RuneCountInString(raw); n > statex.MaxBackgroundLength {
			return FieldError{
				Slot:    slot,
				Kind:    KindBackgroundTooLong,
				Message: fmt.Sprintf(msgs.BackgroundTooLong, statex.MaxBackgroundLength, n),
			}, true
		}
		if strings.TrimSpace(raw) == "" {
			return FieldError{Slot: slot, Kind: KindBackgroundEmpty, Message: msgs.BackgroundEmpty}, true
		}
		c.Background = raw
	}
	return FieldError{}, false
}

// plausibleEmail only requires an "@" followed by a domain containing a dot.
func plausibleEmail(s string) bool {
	_, domain, ok := strings.Cut(s, "@")
	return ok && strings.Contains(domain, ".")
}

func unknownValue(slot statex.Slot, raw string, msgs ErrorMessages) FieldError {
	return FieldError{Slot: slot, Kind: KindUnknownValue, Message: fmt.Sprintf(msgs.UnknownValue, raw)}
}
