package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Account-Request/agent/agents/greeter"
	"github.com/tanpawarit/Chative-Account-Request/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Account-Request/agent/audit"
	contractx "github.com/tanpawarit/Chative-Account-Request/agent/contract"
	"github.com/tanpawarit/Chative-Account-Request/agent/dispatch"
	"github.com/tanpawarit/Chative-Account-Request/agent/llm"
	"github.com/tanpawarit/Chative-Account-Request/agent/prompt"
	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
	configx "github.com/tanpawarit/Chative-Account-Request/pkg/config"
	gdrivex "github.com/tanpawarit/Chative-Account-Request/pkg/gdrive"
	openrouterx "github.com/tanpawarit/Chative-Account-Request/pkg/openrouter"
	qstashx "github.com/tanpawarit/Chative-Account-Request/pkg/qstash"
	trellox "github.com/tanpawarit/Chative-Account-Request/pkg/trello"
)

type sessionConfig struct {
	TTL time.Duration `envconfig:"TTL" default:"24h"`
}

// buildService wires every collaborator from the environment. Missing
// provisioning settings do not stop the bot: the affected tool answers with
// an apology naming the missing setting.
func buildService(ctx context.Context) (*orchestrator.Service, func() error, error) {
	msgs, err := prompt.LoadMessageSet()
	if err != nil {
		return nil, nil, err
	}

	sessCfg, err := configx.New[sessionConfig]("SESSION")
	if err != nil {
		return nil, nil, err
	}
	store := statex.NewMemoryStore(statex.WithTTL(sessCfg.TTL))

	auditCfg, err := configx.New[audit.Config]("AUDIT")
	if err != nil {
		return nil, nil, err
	}
	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, nil, err
	}
	sink, closeAudit, err := audit.Open(ctx, *auditCfg, *qstashCfg)
	if err != nil {
		return nil, nil, err
	}

	d := dispatch.New(
		buildTrello(),
		buildDrive(ctx),
		dispatch.WithAuditSink(sink),
		dispatch.WithRenderer(msgs),
	)

	opts, err := llmOptions(ctx, msgs)
	if err != nil {
		_ = closeAudit()
		return nil, nil, err
	}

	svc, err := orchestrator.New(store, d, msgs, opts...)
	if err != nil {
		_ = closeAudit()
		return nil, nil, err
	}
	return svc, closeAudit, nil
}

func buildTrello() contractx.BoardProvisioner {
	cfg, err := configx.New[trellox.Config]("TRELLO")
	if err == nil {
		var client *trellox.Client
		client, err = trellox.NewClient(*cfg)
		if err == nil {
			return client
		}
	}
	log.Warn().Err(err).Msg("trello provisioning unavailable")
	return dispatch.Unavailable{Err: err}
}

func buildDrive(ctx context.Context) contractx.FilePermissionGranter {
	cfg, err := configx.New[gdrivex.Config]("GOOGLE")
	if err == nil {
		var client *gdrivex.Client
		client, err = gdrivex.NewClient(ctx, *cfg)
		if err == nil {
			return client
		}
	}
	log.Warn().Err(err).Msg("google drive provisioning unavailable")
	return dispatch.Unavailable{Err: err}
}

// llmOptions enables the LLM greeting and question paraphrasing when an
// OpenRouter key and model are configured.
func llmOptions(ctx context.Context, msgs *prompt.MessageSet) ([]orchestrator.Option, error) {
	cfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, err
	}
	enabled, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}
	if !enabled {
		log.Info().Msg("llm disabled, using catalog texts")
		return nil, nil
	}

	var opts []orchestrator.Option

	greetCfg := cfg.OpenRouterFor(llm.RoleGreeting)
	chatModel, err := greetCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build greeting model: %w", err)
	}
	g, err := greeter.New(ctx, chatModel, msgs.LLM.GreetingSystem, msgs.Greeting)
	if err != nil {
		return nil, err
	}
	opts = append(opts, orchestrator.WithGreeter(g))

	if cfg.ParaphraseQuestions {
		paraCfg := cfg.OpenRouterFor(llm.RoleParaphrase)
		client, err := openrouterx.NewClient(paraCfg)
		if err != nil {
			return nil, fmt.Errorf("build paraphrase client: %w", err)
		}
		p, err := greeter.NewParaphraser(client, paraCfg.Model, msgs.LLM.ParaphraseSystem)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithParaphraser(p))
	}

	log.Info().Str("model", greetCfg.Model).Bool("paraphrase", cfg.ParaphraseQuestions).Msg("llm enabled")
	return opts, nil
}

func closeQuietly(closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("close resources")
	}
}
