package main

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/health-assistant/internal/api/router"
	"github.com/wolfman30/health-assistant/internal/app/bootstrap"
	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/internal/chathistory"
	"github.com/wolfman30/health-assistant/internal/compliance"
	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/internal/notify"
	"github.com/wolfman30/health-assistant/internal/observability/metrics"
	"github.com/wolfman30/health-assistant/internal/querylog"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/internal/transcribe"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// setupChatMetrics registers the chat metrics on a private registry and
// returns the /metrics handler for it.
func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}

// healthBotDeps are the built pieces handed to the assistant service.
type healthBotDeps struct {
	Store         *session.Store
	History       chathistory.Store
	Collaborators *bootstrap.Collaborators
	Domain        assistant.DomainAPI
	Metrics       *metrics.ChatMetrics
	QueryLog      *querylog.Recorder
	Auditor       *compliance.AuditService
	Alerter       *notify.SafetyAlerter
	Transcriber   *transcribe.WhisperTranscriber
	Limiter       assistant.Limiter
}

// buildHealthBot wires the router and service. Optional collaborators that
// were not configured are left out rather than passed as typed nils.
func buildHealthBot(cfg *appconfig.Config, deps healthBotDeps, logger *logging.Logger) *assistant.Service {
	events := assistant.NewEventLogger(logger)
	var chatMetrics assistant.Metrics
	if deps.Metrics != nil {
		chatMetrics = deps.Metrics
	}

	r := assistant.NewRouter(assistant.Deps{
		Store:             deps.Store,
		Classifier:        deps.Collaborators.Classifier,
		Extractor:         deps.Collaborators.Extractor,
		Interviewer:       deps.Collaborators.Interviewer,
		Responder:         deps.Collaborators.Responder,
		Domain:            deps.Domain,
		Events:            events,
		Logger:            logger,
		Metrics:           chatMetrics,
		FuzzyThreshold:    cfg.FuzzyMatchThreshold,
		FieldHintOverride: cfg.RouterFieldHintOverride,
	})

	opts := []assistant.ServiceOption{
		assistant.WithEvents(events),
		assistant.WithMetrics(chatMetrics),
		assistant.WithNormalizer(deps.Collaborators.Normalizer),
	}
	if deps.QueryLog != nil {
		opts = append(opts, assistant.WithQueryLogger(deps.QueryLog))
	}
	if deps.Auditor != nil {
		opts = append(opts, assistant.WithSafetyAuditor(deps.Auditor))
	}
	if deps.Alerter != nil {
		opts = append(opts, assistant.WithSafetyAlerter(deps.Alerter))
	}
	if deps.Transcriber != nil {
		opts = append(opts, assistant.WithTranscriber(deps.Transcriber))
	}
	if deps.Limiter != nil {
		opts = append(opts, assistant.WithLimiter(deps.Limiter))
	}
	return assistant.NewService(r, deps.Store, deps.History, logger, opts...)
}

// readinessChecks reports the backing stores that are actually in use.
func readinessChecks(redisClient *redis.Client, pool *pgxpool.Pool) map[string]router.Checker {
	checks := map[string]router.Checker{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if pool != nil {
		checks["postgres"] = func(ctx context.Context) error {
			return pool.Ping(ctx)
		}
	}
	return checks
}
