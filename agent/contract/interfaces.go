package contract

import "context"

// BoardProvisioner invites a person to the team's Trello board.
type BoardProvisioner interface {
	AddBoardMember(ctx context.Context, email string) error
}

// FilePermissionGranter shares the team's Drive file with a person and
// returns the created permission id.
type FilePermissionGranter interface {
	GrantPermission(ctx context.Context, email string, role string) (string, error)
}

// AuditSink records provisioning attempts. Implementations must not block
// the conversation for long; failures are logged by the caller.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent) error
}

type Greeter interface {
	Greeting(ctx context.Context) (string, error)
}

// Paraphraser rewrites a fixed question in a friendlier tone. Callers fall
// back to the original text on error.
type Paraphraser interface {
	Paraphrase(ctx context.Context, question string) (string, error)
}
