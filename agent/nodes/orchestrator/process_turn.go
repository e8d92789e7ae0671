package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/dialog"
)

func ProcessTurn(in *GraphState, ctl *dialog.Controller) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}

	in.Turn = ctl.ProcessTurn(in.Session.Conversation, in.Text)
	in.Session.Turns++

	log.Debug().
		Str("session_id", in.SessionID).
		Str("status", string(in.Turn.Status)).
		Str("phase", string(in.Session.Conversation.Phase())).
		Int("errors", len(in.Turn.Errors)).
		Msg("turn processed")
	return in, nil
}
