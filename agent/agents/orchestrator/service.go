package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Account-Request/agent/agents/greeter"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/dialog"
	nodex "github.com/tanpawarit/Chative-Account-Request/agent/nodes/orchestrator"
	"github.com/tanpawarit/Chative-Account-Request/agent/prompt"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type (
	Reply       = nodex.Reply
	ReplyStatus = nodex.ReplyStatus
)

const (
	ReplyError    = nodex.ReplyError
	ReplyContinue = nodex.ReplyContinue
	ReplyComplete = nodex.ReplyComplete
	ReplyFailed   = nodex.ReplyFailed
)

// Service runs account-request conversations for any number of sessions.
type Service struct {
	store       statex.Store
	dispatcher  nodex.Dispatcher
	messages    *prompt.MessageSet
	controller  *dialog.Controller
	greeter     contractx.Greeter
	paraphraser contractx.Paraphraser

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	locks       sessionLocks

	now func() time.Time
}

type Option func(*Service)

func WithGreeter(g contractx.Greeter) Option {
	return func(s *Service) {
		if g != nil {
			s.greeter = g
		}
	}
}

// WithParaphraser enables LLM rewording of the next question.
func WithParaphraser(p contractx.Paraphraser) Option {
	return func(s *Service) {
		if p != nil {
			s.paraphraser = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(
	store statex.Store,
	dispatcher nodex.Dispatcher,
	messages *prompt.MessageSet,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if messages == nil {
		return nil, errors.New("message catalog is required")
	}

	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		messages:   messages,
		controller: dialog.NewController(
			dialog.WithQuestions(messages.QuestionMap()),
			dialog.WithErrorMessages(messages.ErrorMessages()),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.greeter == nil {
		s.greeter = greeter.Static(messages.Greeting)
	}

	graphRunner, err := s.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// HandleMessage runs one user turn. Turns for the same session are
// serialized; different sessions proceed in parallel.
func (s *Service) HandleMessage(ctx context.Context, sessionID string, text string) (Reply, error) {
	unlock := s.locks.lock(strings.TrimSpace(sessionID))
	defer unlock()

	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return Reply{}, err
	}
	return out.Reply, nil
}

// Reset forgets everything collected for the session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidSession
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	log.Info().Str("session_id", sessionID).Msg("session reset")
	return nil
}

// Greeting returns the opening message of a new conversation.
func (s *Service) Greeting(ctx context.Context) (string, error) {
	text, err := s.greeter.Greeting(ctx)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			log.Warn().Err(err).Msg("greeting failed, using catalog text")
		}
		return s.messages.Greeting, nil
	}
	return text, nil
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session id and drops it once no turn
// holds or waits for it.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*lockEntry)
	}
	e, ok := l.entries[sessionID]
	if !ok {
		e = &lockEntry{}
		l.entries[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, sessionID)
		}
		l.mu.Unlock()
	}
}
