package dispatch

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
)

// Unavailable stands in for a provisioner whose client could not be built.
// Every call fails with ErrConfiguration and the construction error, so the
// conversation can still run and report the problem at dispatch time.
type Unavailable struct {
	Err error
}

func (u Unavailable) AddBoardMember(context.Context, string) error {
	return u.err()
}

func (u Unavailable) GrantPermission(context.Context, string, string) (string, error) {
	return "", u.err()
}

func (u Unavailable) err() error {
	if u.Err == nil {
		return contractx.ErrConfiguration
	}
	return fmt.Errorf("%w: %w", contractx.ErrConfiguration, u.Err)
}
