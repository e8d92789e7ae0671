package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrStateNotFound  = errors.New("session state not found")
	ErrNilSession     = errors.New("session state is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

// Session is one user's conversation plus bookkeeping.
type Session struct {
	SessionID    string        `json:"session_id"`
	Conversation *Conversation `json:"conversation"`
	Turns        int           `json:"turns"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		Conversation: NewConversation(),
		UpdatedAt:    now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) clone() *Session {
	out := *s
	out.Conversation = s.Conversation.Clone()
	if out.Conversation == nil {
		out.Conversation = NewConversation()
	}
	return &out
}

// Store is the persistence contract used by the orchestrator.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps sessions in process memory. Each session gets its own
// copy on Load and Save so callers never share a Conversation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	lastSweep time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithTTL expires sessions idle for longer than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	st, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	if s.expired(st) {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return nil, ErrStateNotFound
	}
	return st.clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, st *Session) error {
	if st == nil {
		return ErrNilSession
	}
	key, err := sessionKey(st.SessionID)
	if err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.sessions[key] = st.clone()
	s.sweepLocked()
	s.mu.Unlock()
	return nil
}

// sweepLocked drops expired sessions at most once per ttl. Callers hold mu.
func (s *MemoryStore) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for key, st := range s.sessions {
		if s.expired(st) {
			delete(s.sessions, key)
		}
	}
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions. Expired sessions count until
// the next sweep or Load removes them.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(st *Session) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(st.UpdatedAt) > s.ttl
}

func sessionKey(sessionID string) (string, error) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return "", ErrInvalidSession
	}
	return key, nil
}
