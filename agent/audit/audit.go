package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Account-Request/pkg/qstash"
)

// Config selects the audit sinks. Both are optional.
type Config struct {
	DatabaseDSN string `envconfig:"DATABASE_DSN" split_words:"true"`
}

// Multi fans an event out to every sink and joins their errors.
type Multi []contractx.AuditSink

func (m Multi) Record(ctx context.Context, ev contractx.AuditEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Record(context.Context, contractx.AuditEvent) error { return nil }

// Open builds the configured sinks. The returned close func releases any
// database handle and is always safe to call.
func Open(ctx context.Context, cfg Config, qcfg qstashx.Config) (contractx.AuditSink, func() error, error) {
	var (
		sinks   Multi
		closers []func() error
	)

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
		closers = append(closers, pg.Close)
		log.Info().Msg("audit: postgres sink enabled")
	}

	if qcfg.Enabled() {
		client, err := qstashx.NewClient(qcfg)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, NewQStashSink(client))
		log.Info().Str("destination", qcfg.Destination).Msg("audit: qstash sink enabled")
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	if len(sinks) == 0 {
		return Nop{}, closeAll, nil
	}
	return sinks, closeAll, nil
}
