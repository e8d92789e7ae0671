package dialog

import (
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

type TurnStatus string

const (
	TurnError    TurnStatus = "error"
	TurnContinue TurnStatus = "continue"
	TurnComplete TurnStatus = "complete"
)

// TurnResult is the outcome of one user turn.
//   - error: Errors is non-empty; the same slot is asked again next turn.
//   - continue: NextSlot/NextPrompt name what to ask; Confirmed echoes the
//     values stored this turn.
//   - complete: every required slot is set and the request can be dispatched.
type TurnResult struct {
	Status     TurnStatus       `json:"status"`
	Errors     ValidationErrors `json:"errors,omitempty"`
	NextSlot   statex.Slot      `json:"next_slot,omitempty"`
	NextPrompt string           `json:"next_prompt,omitempty"`
	Confirmed  Updates          `json:"confirmed,omitempty"`
}

var DefaultQuestions = map[statex.Slot]string{
	statex.SlotEmail:      "What is the email address of the person who needs the account?",
	statex.SlotTool:       "Which tool is needed? Trello or Google Drive?",
	statex.SlotPermission: "Which Google Drive permission is needed? reader, commenter or writer?",
	statex.SlotBackground: "Why is this account needed? (up to 255 characters)",
}

// Controller runs the per-turn slot-filling loop. It holds only texts, so one
// Controller can serve any number of conversations.
type Controller struct {
	questions map[statex.Slot]string
	errors    ErrorMessages
}

type Option func(*Controller)

// WithQuestions overrides the prompt for each given slot.
func WithQuestions(questions map[statex.Slot]string) Option {
	return func(c *Controller) {
		for slot, q := range questions {
			if q != "" {
				c.questions[slot] = q
			}
		}
	}
}

// WithErrorMessages overrides the non-empty validation texts.
func WithErrorMessages(msgs ErrorMessages) Option {
	return func(c *Controller) {
		if msgs.InvalidEmail != "" {
			c.errors.InvalidEmail = msgs.InvalidEmail
		}
		if msgs.BackgroundTooLong != "" {
			c.errors.BackgroundTooLong = msgs.BackgroundTooLong
		}
		if msgs.BackgroundEmpty != "" {
			c.errors.BackgroundEmpty = msgs.BackgroundEmpty
		}
		if msgs.UnknownValue != "" {
			c.errors.UnknownValue = msgs.UnknownValue
		}
	}
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		questions: make(map[statex.Slot]string, len(DefaultQuestions)),
		errors:    DefaultErrorMessages,
	}
	for slot, q := range DefaultQuestions {
		c.questions[slot] = q
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ProcessTurn extracts, validates and stores slot values from text, then
// decides what happens next. Callers must serialize turns per conversation.
func (ctl *Controller) ProcessTurn(c *statex.Conversation, text string) TurnResult {
	proposed := Extract(c, text)
	before := *c

	if errs := Apply(c, proposed, ctl.errors); len(errs) > 0 {
		return TurnResult{Status: TurnError, Errors: errs}
	}

	slot, pending := c.NextSlot()
	if !pending && c.IsComplete() {
		return TurnResult{Status: TurnComplete}
	}

	return TurnResult{
		Status:     TurnContinue,
		NextSlot:   slot,
		NextPrompt: ctl.Question(slot),
		Confirmed:  confirmed(&before, c),
	}
}

// Question returns the prompt for slot.
func (ctl *Controller) Question(slot statex.Slot) string {
	return ctl.questions[slot]
}

// Reset returns c to its initial, empty state.
func (ctl *Controller) Reset(c *statex.Conversation) {
	c.Reset()
}

func confirmed(before, after *statex.Conversation) Updates {
	out := Updates{}
	if before.Email == "" && after.Email != "" {
		out[statex.SlotEmail] = after.Email
	}
	if before.Tool == "" && after.Tool != "" {
		out[statex.SlotTool] = string(after.Tool)
	}
	if before.Permission == "" && after.Permission != "" {
		out[statex.SlotPermission] = string(after.Permission)
	}
	if before.Background == "" && after.Background != "" {
		out[statex.SlotBackground] = after.Background
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
