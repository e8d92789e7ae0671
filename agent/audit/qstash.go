package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
)

// Publisher is satisfied by *qstash.Client.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// QStashSink forwards audit events to a QStash destination.
type QStashSink struct {
	pub Publisher
}

func NewQStashSink(pub Publisher) *QStashSink {
	return &QStashSink{pub: pub}
}

func (s *QStashSink) Record(ctx context.Context, ev contractx.AuditEvent) error {
	id, err := s.pub.Publish(ctx, ev)
	if err != nil {
		return fmt.Errorf("audit: publish event: %w", err)
	}
	log.Debug().Str("session_id", ev.SessionID).Str("message_id", id).Msg("audit event published")
	return nil
}
