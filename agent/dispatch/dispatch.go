package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

// Renderer turns a provisioned request into the completion message.
type Renderer interface {
	Completion(req statex.AccountRequest) (string, error)
}

// Receipt describes a successful provisioning call.
type Receipt struct {
	Tool         statex.Tool       `json:"tool"`
	Email        string            `json:"email"`
	Permission   statex.Permission `json:"permission,omitempty"`
	PermissionID string            `json:"permission_id,omitempty"`
	Message      string            `json:"message"`
}

// ProvisionError is returned when the remote service rejected or could not
// be reached. Detail is safe to show to the user.
type ProvisionError struct {
	Tool statex.Tool
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("%s provisioning: %v", e.Tool, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Is matches ErrProvisioning unless the provisioner was never configured;
// that case reports only ErrConfiguration.
func (e *ProvisionError) Is(target error) bool {
	return target == contractx.ErrProvisioning && !errors.Is(e.Err, contractx.ErrConfiguration)
}

func (e *ProvisionError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

type Dispatcher struct {
	boards contractx.BoardProvisioner
	files  contractx.FilePermissionGranter
	audit  contractx.AuditSink
	render Renderer
	now    func() time.Time
}

type Option func(*Dispatcher)

func WithAuditSink(sink contractx.AuditSink) Option {
	return func(d *Dispatcher) {
		if sink != nil {
			d.audit = sink
		}
	}
}

func WithRenderer(r Renderer) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.render = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New builds a dispatcher. A nil provisioner behaves as an unconfigured one.
func New(boards contractx.BoardProvisioner, files contractx.FilePermissionGranter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		boards: boards,
		files:  files,
		audit:  nopAudit{},
		render: plainRenderer{},
		now:    time.Now,
	}
	if d.boards == nil {
		d.boards = Unavailable{Err: errors.New("trello client is not configured")}
	}
	if d.files == nil {
		d.files = Unavailable{Err: errors.New("google drive client is not configured")}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch provisions the account described by c. On success c is reset and
// the receipt carries the completion message; on failure c is left as is so
// the user can retry.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, c *statex.Conversation) (Receipt, error) {
	if c == nil {
		return Receipt{}, fmt.Errorf("%w: conversation is nil", contractx.ErrValidation)
	}
	req, err := c.ToAccountRequest()
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	receipt := Receipt{Tool: req.Tool(), Email: req.Email(), Permission: req.Permission()}
	switch req.Tool() {
	case statex.ToolTrello:
		err = d.boards.AddBoardMember(ctx, req.Email())
	case statex.ToolGoogleDrive:
		receipt.PermissionID, err = d.files.GrantPermission(ctx, req.Email(), string(req.Permission()))
	default:
		return Receipt{}, fmt.Errorf("%w: unsupported tool %q", contractx.ErrValidation, req.Tool())
	}

	d.record(ctx, sessionID, req, receipt.PermissionID, err)

	if err != nil {
		log.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("tool", string(req.Tool())).
			Str("email", req.Email()).
			Msg("provisioning failed")
		return Receipt{}, &ProvisionError{Tool: req.Tool(), Err: err}
	}

	msg, renderErr := d.render.Completion(req)
	if renderErr != nil {
		log.Error().Err(renderErr).Str("session_id", sessionID).Msg("render completion message")
		msg, _ = plainRenderer{}.Completion(req)
	}
	receipt.Message = msg

	c.Reset()

	log.Info().
		Str("session_id", sessionID).
		Str("tool", string(req.Tool())).
		Str("email", req.Email()).
		Str("permission", string(req.Permission())).
		Msg("account provisioned")
	return receipt, nil
}

func (d *Dispatcher) record(ctx context.Context, sessionID string, req statex.AccountRequest, permissionID string, callErr error) {
	ev := contractx.AuditEvent{
		SessionID:        sessionID,
		Email:            req.Email(),
		Tool:             string(req.Tool()),
		Permission:       string(req.Permission()),
		BackgroundLength: utf8.RuneCountInString(req.Background()),
		Outcome:          contractx.AuditSucceeded,
		PermissionID:     permissionID,
		At:               d.now().UTC(),
	}
	if callErr != nil {
		ev.Outcome = contractx.AuditFailed
		ev.Detail = callErr.Error()
	}
	if err := d.audit.Record(ctx, ev); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("audit record failed")
	}
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, contractx.AuditEvent) error { return nil }

type plainRenderer struct{}

func (plainRenderer) Completion(req statex.AccountRequest) (string, error) {
	if req.Tool() == statex.ToolGoogleDrive {
		return fmt.Sprintf("Granted %s access on Google Drive to %s.", req.Permission(), req.Email()), nil
	}
	return fmt.Sprintf("Invited %s to the Trello board.", req.Email()), nil
}
