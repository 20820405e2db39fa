package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analytics/snapshot"
	reccache "github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/cache"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/executor"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/handler"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/translate"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/resilience"
)

const translationCacheTTL = 24 * time.Hour

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				opts.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting smartread", "port", cfg.Server.Port, "corpus", cfg.Corpus.Root)

	m := metrics.New()
	checker := health.NewChecker()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var background sync.WaitGroup

	var (
		redisClient *pkgredis.Client
		resultCache *reccache.ResultCache
		recOpts     []executor.Option
	)
	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer rc.Close()
			redisClient = rc
			resultCache = reccache.New(rc, cfg.Redis.CacheTTL)
			recOpts = append(recOpts, executor.WithResultCache(resultCache))
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := rc.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	c, err := buildCore(cfg, m, recOpts...)
	if err != nil {
		return fmt.Errorf("building recommender: %w", err)
	}
	if _, err := c.corpus.Get(ctx); err != nil {
		return err
	}
	if cfg.Corpus.Watch {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := c.corpus.Watch(ctx); err != nil {
				slog.Warn("corpus watcher stopped, relying on fingerprint checks", "error", err)
			}
		}()
	}
	checker.Register("corpus", func(context.Context) health.ComponentHealth {
		if !c.corpus.Loaded() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "corpus not loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d reloads", c.corpus.Reloads())}
	})

	translator, err := buildTranslator(cfg.Translate, m, redisClient, checker)
	if err != nil {
		return err
	}

	aggregator := analytics.NewAggregator()
	var sink analytics.Sink = aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		sink = analytics.KafkaSink{Producer: producer}
		consumer := kafka.NewConsumer(cfg.Kafka, aggregator.HandleMessage)
		background.Add(1)
		go func() {
			defer background.Done()
			if err := consumer.Run(ctx); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()
		slog.Info("analytics streaming via kafka", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(sink, cfg.Kafka.Buffer)
	collector.Start(ctx)
	defer collector.Close()

	var snapshots analytics.SnapshotLister
	if cfg.Postgres.Enabled {
		store, pg, err := openSnapshotStore(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer pg.Close()
			snapshots = store
			checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
				return health.Up(pg.Ping(ctx))
			})
			background.Add(1)
			go func() {
				defer background.Done()
				store.Run(ctx, aggregator, cfg.Postgres.SnapshotInterval)
			}()
		}
	}

	handlerOpts := []handler.Option{handler.WithTranslator(translator), handler.WithTracker(collector)}
	if resultCache != nil {
		handlerOpts = append(handlerOpts, handler.WithCacheAdmin(resultCache))
	}
	h := handler.New(c.recommender, c.corpus, c.norm, handler.Config{
		SourceLang: cfg.Translate.Source,
		TargetLang: cfg.Translate.Target,
	}, handlerOpts...)

	mux := http.NewServeMux()
	h.Register(mux)
	analytics.NewHandler(aggregator, snapshots).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if cfg.Server.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)))
	}
	if cfg.Server.RequestTimeout > 0 {
		mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("smartread listening", "addr", server.Addr)
	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	cancel()
	background.Wait()
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	slog.Info("smartread stopped", "analytics_dropped", collector.Dropped())
	return nil
}

// buildTranslator returns translate.Disabled unless a service is configured.
// redisClient may be nil.
func buildTranslator(cfg config.TranslateConfig, m *metrics.Metrics, redisClient *pkgredis.Client, checker *health.Checker) (translate.Translator, error) {
	if !cfg.Enabled {
		return translate.Disabled{}, nil
	}
	client := translate.NewLibreClient(translate.LibreConfig{
		BaseURL: cfg.URL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialDelay:   200 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			Multiplier:     2,
			JitterFraction: 0.1,
		},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold:    5,
			ResetTimeout:        30 * time.Second,
			HalfOpenMaxRequests: 1,
			OnStateChange: func(name string, _, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		},
	})
	checker.Register("translator", func(context.Context) health.ComponentHealth {
		if state := client.Breaker().State(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	cachedOpts := []translate.CachedOption{translate.WithMetrics(m)}
	if redisClient != nil {
		cachedOpts = append(cachedOpts, translate.WithRemoteCache(redisClient, translationCacheTTL))
	}
	cached, err := translate.NewCached(client, cfg.CacheSize, cachedOpts...)
	if err != nil {
		return nil, err
	}
	slog.Info("translation enabled", "url", cfg.URL, "source", cfg.Source, "target", cfg.Target)
	return cached, nil
}

func openSnapshotStore(ctx context.Context, cfg config.PostgresConfig) (*snapshot.Store, *postgres.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pg, err := postgres.New(connectCtx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := snapshot.NewStore(pg.DB)
	if err := store.EnsureSchema(connectCtx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	last, err := store.LatestSnapshot(connectCtx)
	switch {
	case err != nil:
		slog.Warn("reading latest analytics snapshot failed", "error", err)
	case last != nil:
		slog.Info("previous analytics snapshot found",
			"captured_at", last.CapturedAt,
			"total_recommendations", last.Stats.TotalRecommendations,
		)
	}
	return store, pg, nil
}
