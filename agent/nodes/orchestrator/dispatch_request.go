package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/dialog"
	"github.com/tanpawarit/Chative-Account-Request/agent/dispatch"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string, c *statex.Conversation) (dispatch.Receipt, error)
}

// DispatchRequest provisions the account once the turn completed the
// conversation. A failed call is kept on the state, not returned, so the
// session is still saved and the user can retry.
func DispatchRequest(ctx context.Context, in *GraphState, d Dispatcher) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}
	if in.Turn.Status != dialog.TurnComplete {
		return in, nil
	}

	receipt, err := d.Dispatch(ctx, in.SessionID, in.Session.Conversation)
	if err != nil {
		in.DispatchErr = err
		return in, nil
	}
	in.Receipt = &receipt
	return in, nil
}
