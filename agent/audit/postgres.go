package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type auditRecord struct {
	bun.BaseModel `bun:"table:account_request_audit,alias:ara"`

	ID               int64     `bun:"id,pk,autoincrement"`
	SessionID        string    `bun:"session_id,notnull"`
	Email            string    `bun:"email,notnull"`
	Tool             string    `bun:"tool,notnull"`
	Permission       string    `bun:"permission"`
	BackgroundLength int       `bun:"background_length,notnull"`
	Outcome          string    `bun:"outcome,notnull"`
	Detail           string    `bun:"detail"`
	PermissionID     string    `bun:"permission_id"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

func newRecord(ev contractx.AuditEvent) *auditRecord {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return &auditRecord{
		SessionID:        ev.SessionID,
		Email:            ev.Email,
		Tool:             ev.Tool,
		Permission:       ev.Permission,
		BackgroundLength: ev.BackgroundLength,
		Outcome:          string(ev.Outcome),
		Detail:           ev.Detail,
		PermissionID:     ev.PermissionID,
		CreatedAt:        at.UTC(),
	}
}

// PostgresSink appends audit events to a Postgres table through bun.
type PostgresSink struct {
	db *bun.DB
}

func newBunDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// OpenPostgres connects to dsn and makes sure the audit table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	db := newBunDB(dsn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: ping postgres: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*auditRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Record(ctx context.Context, ev contractx.AuditEvent) error {
	if _, err := s.db.NewInsert().Model(newRecord(ev)).Exec(ctx); err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
