package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/halden-labs/answercore/internal/config"
	"github.com/halden-labs/answercore/internal/core/ports"
	"github.com/halden-labs/answercore/internal/core/usecase"
	auditnats "github.com/halden-labs/answercore/internal/infrastructure/audit/nats"
	"github.com/halden-labs/answercore/internal/infrastructure/cache"
	"github.com/halden-labs/answercore/internal/infrastructure/embed"
	"github.com/halden-labs/answercore/internal/infrastructure/index"
	"github.com/halden-labs/answercore/internal/infrastructure/passage/postgres"
	"github.com/halden-labs/answercore/internal/infrastructure/resilience"
	"github.com/halden-labs/answercore/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.TenantMetrics

	SearchService ports.SearchService
	AnswerService ports.AnswerService

	closeFn func()
}

// New wires the pipeline against the configured backends. Redis, Postgres,
// and NATS are optional: when unset the pipeline runs with a process-local
// cache, bare snippets, and no audit trail.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	indexClient := index.New(cfg.IndexURL, index.Options{
		Timeout:            time.Duration(cfg.RetrievalTimeoutMS) * time.Millisecond,
		ResilienceExecutor: executor,
	})
	embedClient := embed.New(cfg.EmbedURL, cfg.EmbedModel, embed.Options{
		Timeout:            time.Duration(cfg.EmbedTimeoutMS) * time.Millisecond,
		ResilienceExecutor: executor,
	})

	var closers []func()

	var answerCache ports.AnswerCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis_unreachable_using_memory_cache", "addr", cfg.RedisAddr, "error", err)
			_ = client.Close()
			answerCache = cache.NewMemoryCache()
		} else {
			answerCache = cache.NewRedisCache(client)
			closers = append(closers, func() { _ = client.Close() })
		}
	} else {
		answerCache = cache.NewMemoryCache()
	}

	var passages ports.PassageStore
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewNeighborStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		passages = store
		closers = append(closers, func() { _ = db.Close() })
	}

	var audit ports.AuditSink
	if cfg.NATSURL != "" {
		publisher, err := auditnats.New(cfg.NATSURL, cfg.NATSAuditSubject, auditnats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init audit publisher: %w", err)
		}
		audit = publisher
		closers = append(closers, publisher.Close)
	}

	tenantMetrics := metrics.NewTenantMetrics("api")

	pipeline := usecase.NewPipeline(
		usecase.Config{
			Alpha:               cfg.HybridAlpha,
			DefaultK:            cfg.DefaultK,
			MaxK:                cfg.MaxK,
			MaxRerankCandidates: cfg.MaxRerankCandidates,
			RerankQueryTokenCap: cfg.RerankQueryTokenCap,

			SnippetMaxChars: cfg.SnippetMaxChars,
			MaxCitations:    cfg.MaxCitations,
			MaxHighlights:   cfg.MaxHighlights,
			AnswerMaxChars:  cfg.AnswerMaxChars,

			CoverageWeight:     cfg.ConfidenceCoverageWeight,
			StrengthWeight:     cfg.ConfidenceStrengthWeight,
			SentenceNormFactor: cfg.SentenceNormFactor,
			AbstainThreshold:   cfg.AbstainThreshold,
			StatsWindowSize:    cfg.StatsWindowSize,

			CacheTTL:         time.Duration(cfg.CacheTTLSeconds) * time.Second,
			RetrievalTimeout: time.Duration(cfg.RetrievalTimeoutMS) * time.Millisecond,
			EmbedTimeout:     time.Duration(cfg.EmbedTimeoutMS) * time.Millisecond,
		},
		indexClient,
		embedClient,
		passages,
		answerCache,
		audit,
		tenantMetrics,
	)

	return &App{
		Config:  cfg,
		Metrics: tenantMetrics,

		SearchService: pipeline,
		AnswerService: pipeline,

		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
