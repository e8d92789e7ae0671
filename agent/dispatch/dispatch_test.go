package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/prompt"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

type fakeBoards struct {
	calls []string
	err   error
}

func (f *fakeBoards) AddBoardMember(_ context.Context, email string) error {
	f.calls = append(f.calls, email)
	return f.err
}

type grantCall struct {
	email string
	role  string
}

type fakeFiles struct {
	calls []grantCall
	id    string
	err   error
}

func (f *fakeFiles) GrantPermission(_ context.Context, email, role string) (string, error) {
	f.calls = append(f.calls, grantCall{email: email, role: role})
	return f.id, f.err
}

type fakeAudit struct {
	mu     sync.Mutex
	events []contractx.AuditEvent
	err    error
}

func (f *fakeAudit) Record(_ context.Context, ev contractx.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeRenderer struct{}

func (fakeRenderer) Completion(req statex.AccountRequest) (string, error) {
	return "done:" + req.Email(), nil
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestDispatchTrelloSuccess(t *testing.T) {
	t.Parallel()

	boards := &fakeBoards{}
	files := &fakeFiles{}
	audit := &fakeAudit{}
	d := New(boards, files, WithAuditSink(audit), WithRenderer(fakeRenderer{}), WithClock(func() time.Time { return fixedNow }))

	c := &statex.Conversation{Email: "t@example.com", Tool: statex.ToolTrello, Background: "プロジェクト管理のため"}
	receipt, err := d.Dispatch(context.Background(), "s1", c)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(boards.calls) != 1 || boards.calls[0] != "t@example.com" {
		t.Fatalf("board calls = %v", boards.calls)
	}
	if len(files.calls) != 0 {
		t.Fatalf("drive must not be called: %v", files.calls)
	}
	if receipt.Message != "done:t@example.com" || receipt.Tool != statex.ToolTrello {
		t.Fatalf("receipt = %+v", receipt)
	}
	if c.Phase() != statex.PhaseAwaitingEmail {
		t.Fatalf("conversation not reset: %+v", *c)
	}

	if len(audit.events) != 1 {
		t.Fatalf("audit events = %d", len(audit.events))
	}
	ev := audit.events[0]
	if ev.Outcome != contractx.AuditSucceeded || ev.SessionID != "s1" || ev.BackgroundLength != 11 || !ev.At.Equal(fixedNow) {
		t.Fatalf("audit event = %+v", ev)
	}
}

func TestDispatchRendersCatalogCompletion(t *testing.T) {
	t.Parallel()

	files := &fakeFiles{id: "perm-1"}
	d := New(&fakeBoards{}, files, WithRenderer(prompt.MustLoadMessageSet()))

	c := &statex.Conversation{
		Email:      "hanako@example.com",
		Tool:       statex.ToolGoogleDrive,
		Permission: statex.PermissionWriter,
		Background: "資料の共同編集",
	}
	receipt, err := d.Dispatch(context.Background(), "s-catalog", c)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for _, want := range []string{"Google Drive", "hanako@example.com", "権限: writer", "資料の共同編集", "編集権限が付与されました"} {
		if !strings.Contains(receipt.Message, want) {
			t.Fatalf("completion message missing %q:\n%s", want, receipt.Message)
		}
	}
	if c.Phase() != statex.PhaseAwaitingEmail {
		t.Fatalf("conversation not reset: %+v", *c)
	}
}

func TestDispatchDriveSuccess(t *testing.T) {
	t.Parallel()

	files := &fakeFiles{id: "perm-9"}
	d := New(&fakeBoards{}, files, WithRenderer(fakeRenderer{}))

	c := &statex.Conversation{
		Email:      "d@example.com",
		Tool:       statex.ToolGoogleDrive,
		Permission: statex.PermissionCommenter,
		Background: "レビューのため",
	}
	receipt, err := d.Dispatch(context.Background(), "s2", c)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(files.calls) != 1 || files.calls[0] != (grantCall{email: "d@example.com", role: "commenter"}) {
		t.Fatalf("grant calls = %v", files.calls)
	}
	if receipt.PermissionID != "perm-9" || receipt.Permission != statex.PermissionCommenter {
		t.Fatalf("receipt = %+v", receipt)
	}
	if c.IsSet(statex.SlotEmail) {
		t.Fatal("conversation not reset")
	}
}

func TestDispatchFailureKeepsConversation(t *testing.T) {
	t.Parallel()

	boards := &fakeBoards{err: errors.New("trello api error: status=401\ndetail: invalid key")}
	audit := &fakeAudit{}
	d := New(boards, &fakeFiles{}, WithAuditSink(audit))

	c := &statex.Conversation{Email: "t@example.com", Tool: statex.ToolTrello, Background: "bg"}
	before := *c
	_, err := d.Dispatch(context.Background(), "s3", c)
	if !errors.Is(err, contractx.ErrProvisioning) {
		t.Fatalf("expected ErrProvisioning, got %v", err)
	}
	var pe *ProvisionError
	if !errors.As(err, &pe) || !strings.Contains(pe.Detail(), "status=401") {
		t.Fatalf("provision error = %#v", err)
	}
	if *c != before {
		t.Fatalf("conversation changed on failure: %+v", *c)
	}
	if len(audit.events) != 1 || audit.events[0].Outcome != contractx.AuditFailed || audit.events[0].Detail == "" {
		t.Fatalf("audit events = %+v", audit.events)
	}
}

func TestDispatchIncompleteMakesNoCall(t *testing.T) {
	t.Parallel()

	boards := &fakeBoards{}
	files := &fakeFiles{}
	d := New(boards, files)

	cases := []*statex.Conversation{
		{Email: "a@example.com", Tool: statex.ToolTrello},
		{Email: "a@example.com", Tool: statex.ToolGoogleDrive, Background: "bg"},
		{Email: "not-an-email", Tool: statex.ToolTrello, Background: "bg"},
		{Email: "a@example.com", Tool: statex.ToolTrello, Background: strings.Repeat("x", 256)},
	}
	for _, c := range cases {
		if _, err := d.Dispatch(context.Background(), "s4", c); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("Dispatch(%+v) err = %v, want ErrValidation", *c, err)
		}
	}
	if len(boards.calls)+len(files.calls) != 0 {
		t.Fatalf("no network call expected, got boards=%v files=%v", boards.calls, files.calls)
	}
}

func TestDispatchUnavailableProvisioner(t *testing.T) {
	t.Parallel()

	d := New(Unavailable{Err: errors.New("trello configuration: TRELLO_API_KEY: missing")}, nil)

	c := &statex.Conversation{Email: "t@example.com", Tool: statex.ToolTrello, Background: "bg"}
	_, err := d.Dispatch(context.Background(), "s5", c)
	if !errors.Is(err, contractx.ErrConfiguration) || errors.Is(err, contractx.ErrProvisioning) {
		t.Fatalf("expected a configuration error that is not a provisioning error, got %v", err)
	}
	if !strings.Contains(err.Error(), "TRELLO_API_KEY") {
		t.Fatalf("error must name the missing setting: %v", err)
	}

	drive := &statex.Conversation{Email: "d@example.com", Tool: statex.ToolGoogleDrive, Permission: statex.PermissionReader, Background: "bg"}
	if _, err := d.Dispatch(context.Background(), "s5", drive); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("nil drive client must be unavailable, got %v", err)
	}
}

func TestDispatchAuditFailureDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()

	d := New(&fakeBoards{}, nil, WithAuditSink(&fakeAudit{err: errors.New("db down")}))
	c := &statex.Conversation{Email: "t@example.com", Tool: statex.ToolTrello, Background: "bg"}
	receipt, err := d.Dispatch(context.Background(), "s6", c)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(receipt.Message, "t@example.com") {
		t.Fatalf("default renderer message = %q", receipt.Message)
	}
}
