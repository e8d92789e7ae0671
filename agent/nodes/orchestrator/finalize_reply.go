package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/dialog"
	"github.com/tanpawarit/Chative-Account-Request/agent/dispatch"
	"github.com/tanpawarit/Chative-Account-Request/agent/prompt"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

type ReplyStatus string

const (
	// ReplyError: the user must correct a value.
	ReplyError ReplyStatus = "error"
	// ReplyContinue: the bot asks for the next slot.
	ReplyContinue ReplyStatus = "continue"
	// ReplyComplete: the account was provisioned and the conversation reset.
	ReplyComplete ReplyStatus = "complete"
	// ReplyFailed: provisioning failed; the conversation is kept for a retry.
	ReplyFailed ReplyStatus = "failed"
)

// Reply is what a host shows for one turn.
type Reply struct {
	Status ReplyStatus  `json:"status"`
	Text   string       `json:"text"`
	Phase  statex.Phase `json:"phase"`
	Errors []string     `json:"errors,omitempty"`
}

func FinalizeReply(ctx context.Context, in *GraphState, msgs *prompt.MessageSet, para contractx.Paraphraser) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}

	reply := Reply{Phase: in.Session.Conversation.Phase()}

	switch in.Turn.Status {
	case dialog.TurnError:
		reply.Status = ReplyError
		reply.Errors = in.Turn.Errors.Messages()
		reply.Text = strings.Join(reply.Errors, "\n\n")

	case dialog.TurnContinue:
		reply.Status = ReplyContinue
		reply.Text = msgs.Confirmation(in.Turn.Confirmed) + phraseQuestion(ctx, para, in.Turn.NextPrompt)

	case dialog.TurnComplete:
		if in.DispatchErr != nil {
			reply.Status = ReplyFailed
			reply.Text = msgs.APIError(failureDetail(in.DispatchErr))
			break
		}
		if in.Receipt == nil {
			return GraphOutput{}, fmt.Errorf("%w: completed turn has no dispatch result", contractx.ErrValidation)
		}
		reply.Status = ReplyComplete
		reply.Text = in.Receipt.Message

	default:
		return GraphOutput{}, fmt.Errorf("%w: unknown turn status %q", contractx.ErrValidation, in.Turn.Status)
	}

	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = msgs.Errors.Internal
	}
	return GraphOutput{Reply: reply}, nil
}

func phraseQuestion(ctx context.Context, para contractx.Paraphraser, question string) string {
	if para == nil || question == "" {
		return question
	}
	out, err := para.Paraphrase(ctx, question)
	if err != nil {
		log.Warn().Err(err).Msg("paraphrase failed, using catalog question")
		return question
	}
	return out
}

func failureDetail(err error) string {
	var pe *dispatch.ProvisionError
	if errors.As(err, &pe) {
		return pe.Detail()
	}
	return err.Error()
}
