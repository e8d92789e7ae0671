package contract

import "time"

type AuditOutcome string

const (
	AuditSucceeded AuditOutcome = "succeeded"
	AuditFailed    AuditOutcome = "failed"
)

// AuditEvent describes one provisioning attempt. Background text is kept out
// of the event; only its length is recorded.
type AuditEvent struct {
	SessionID        string       `json:"session_id"`
	Email            string       `json:"email"`
	Tool             string       `json:"tool"`
	Permission       string       `json:"permission,omitempty"`
	BackgroundLength int          `json:"background_length"`
	Outcome          AuditOutcome `json:"outcome"`
	Detail           string       `json:"detail,omitempty"`
	PermissionID     string       `json:"permission_id,omitempty"`
	At               time.Time    `json:"at"`
}
