package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclients "scholarship-matcher/internal/common/aws"
	"scholarship-matcher/internal/common/camunda"
	"scholarship-matcher/internal/common/config"
	"scholarship-matcher/internal/common/database"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/common/observability"
	"scholarship-matcher/internal/matching/explain"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/matching/session"
	"scholarship-matcher/internal/notify"
	"scholarship-matcher/internal/ratelimit"
	"scholarship-matcher/internal/store/catalog"
	"scholarship-matcher/internal/store/postgres"

	dmr "scholarship-matcher/internal/workers/matching/delete-match-result"
	gmh "scholarship-matcher/internal/workers/matching/get-match-history"
	rsm "scholarship-matcher/internal/workers/matching/run-scholarship-match"
	smp "scholarship-matcher/internal/workers/matching/save-matcher-profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, zapLog := logger.NewFromConfig(cfg.Logging)
	defer zapLog.Sync()

	zapLog.Info("starting worker manager",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		TracingEnabled: cfg.Observability.TracingEnabled,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("failed to init observability", zap.Error(err))
	}

	// --- Init Zeebe with retry ---
	var zeebe *camunda.Client
	err = camunda.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda)
		return err
	}, camunda.DefaultRetryConfig, log, "Zeebe connection")
	if err != nil {
		zapLog.Fatal("zeebe failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe connected successfully", zap.String("address", cfg.Camunda.BrokerAddress))

	// --- Init Postgres with retry ---
	var pg *database.PostgresClient
	err = camunda.RetryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, camunda.DefaultRetryConfig, log, "Postgres connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("failed to apply schema", zap.Error(err))
	}
	zapLog.Info("Postgres connected successfully")

	// --- Init Elasticsearch with retry ---
	var es *database.ElasticsearchClient
	err = camunda.RetryWithBackoff(ctx, func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, camunda.DefaultRetryConfig, log, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry (rate limiter and catalog cache) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		redis = database.NewRedis(cfg.Database.Redis)
		err = camunda.RetryWithBackoff(ctx, func() error {
			return redis.Ping(ctx)
		}, camunda.DefaultRetryConfig, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	}

	// --- Matching engine ---
	limiter := newLimiter(ctx, cfg, redis, log)
	orch := session.NewOrchestrator(
		session.Config{
			TopK:            cfg.Matching.TopK,
			RateLimit:       cfg.RateLimit.Limit,
			RateWindow:      config.GetDuration(cfg.RateLimit.Window),
			DefaultLocale:   i18n.Parse(cfg.Matching.DefaultLocale),
			ModelIdentifier: cfg.Matching.ModelIdentifier,
		},
		session.Dependencies{
			Profiles: postgres.NewProfileRepository(pg.DB, log),
			Results:  postgres.NewMatchResultRepository(pg.DB, log),
			Catalog:  newCatalog(cfg, es, redis, log),
			Limiter:  limiter,
			Enricher: newEnricher(cfg, log),
			Tracer:   obs.Tracer(),
			Logger:   log,
		},
	)
	notifier := newNotifier(ctx, cfg, log)

	// --- Workers ---
	registry := camunda.NewRegistry(zeebe.GetClient(), obs, log)

	if wcfg := config.GetWorkerConfig(cfg, smp.TaskType); wcfg.Enabled {
		handler := smp.NewHandler(&smp.Config{Timeout: config.GetDuration(wcfg.Timeout)}, orch, log)
		registry.Start(smp.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, rsm.TaskType); wcfg.Enabled {
		handler := rsm.NewHandler(
			&rsm.Config{
				Timeout:       config.GetDuration(wcfg.Timeout),
				NotifyTimeout: rsm.LoadConfig().NotifyTimeout,
			},
			orch, notifier, log,
		)
		registry.Start(rsm.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, gmh.TaskType); wcfg.Enabled {
		handler := gmh.NewHandler(
			&gmh.Config{
				Timeout:      config.GetDuration(wcfg.Timeout),
				DefaultLimit: postgres.DefaultPageSize,
				MaxLimit:     postgres.MaxPageSize,
			},
			orch, log,
		)
		registry.Start(gmh.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, dmr.TaskType); wcfg.Enabled {
		handler := dmr.NewHandler(&dmr.Config{Timeout: config.GetDuration(wcfg.Timeout)}, orch, log)
		registry.Start(dmr.TaskType, wcfg, handler.Handle)
	}

	zapLog.Info("workers registered", zap.Strings("taskTypes", registry.Running()))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := readiness(r.Context(), zeebe, pg, es, redis)
		status := http.StatusOK
		state := "ready"
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
				state = "not_ready"
			}
		}
		writeStatus(w, status, map[string]interface{}{"status": state, "checks": checks})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing Postgres", zap.Error(err))
	}
	if redis != nil {
		if err := redis.Close(); err != nil {
			zapLog.Error("Error closing Redis", zap.Error(err))
		}
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newLimiter(ctx context.Context, cfg *config.Config, redis *database.RedisClient, log logger.Logger) ratelimit.Limiter {
	if cfg.RateLimit.Backend == "redis" && redis != nil {
		return ratelimit.NewRedisLimiter(redis.Client, cfg.RateLimit.KeyPrefix)
	}

	mem := ratelimit.NewMemoryLimiter()
	window := config.GetDuration(cfg.RateLimit.Window)
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					log.Debug("rate limit windows swept", map[string]interface{}{"removed": n})
				}
			}
		}
	}()
	log.Warn("using in-process rate limiter; limits are per instance", nil)
	return mem
}

func newCatalog(cfg *config.Config, es *database.ElasticsearchClient, redis *database.RedisClient, log logger.Logger) catalog.Catalog {
	var cat catalog.Catalog = catalog.NewElasticCatalog(es.Client, cfg.Catalog.Index, cfg.Catalog.PageSize, log)
	if cfg.Catalog.CacheTTL > 0 && redis != nil {
		cat = catalog.NewCachedCatalog(cat, redis.Client, cfg.Catalog.KeyPrefix, config.GetDuration(cfg.Catalog.CacheTTL), log)
	}
	return cat
}

// newEnricher returns nil when no generation service is configured; matches
// then carry no explanation.
func newEnricher(cfg *config.Config, log logger.Logger) session.Enricher {
	if cfg.APIs.GenAI.BaseURL == "" {
		log.Warn("genai base_url not set, explanations disabled", nil)
		return nil
	}
	gen := explain.NewHTTPGenerator(
		explain.HTTPConfig{
			BaseURL: cfg.APIs.GenAI.BaseURL,
			APIKey:  cfg.APIs.GenAI.APIKey,
			Model:   cfg.APIs.GenAI.Model,
		},
		&http.Client{Timeout: config.GetDuration(cfg.APIs.GenAI.Timeout)},
	)
	return explain.NewEnricher(gen, explain.Config{
		TopN:        cfg.Matching.EnrichTopN,
		Concurrency: cfg.Matching.EnrichConcurrency,
		CallTimeout: config.GetDuration(cfg.Matching.EnrichTimeout),
	}, log)
}

func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) *notify.Notifier {
	n := cfg.Notifications
	var (
		email  awsclients.EmailSender
		events awsclients.EventPublisher
	)
	if n.Email.Enabled || n.SNS.Enabled {
		awsCfg, err := awsclients.LoadConfig(ctx, n.AWS.Region)
		if err != nil {
			log.Error("failed to load AWS config, notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			if n.Email.Enabled {
				email = awsclients.NewSESClient(awsCfg)
			}
			if n.SNS.Enabled {
				events = awsclients.NewSNSClient(awsCfg)
			}
		}
	}
	return notify.NewNotifier(notify.Config{
		EmailEnabled: n.Email.Enabled,
		FromEmail:    n.Email.FromEmail,
		SNSEnabled:   n.SNS.Enabled,
		TopicARN:     n.SNS.TopicARN,
	}, email, events, log)
}

func readiness(ctx context.Context, zeebe *camunda.Client, pg *database.PostgresClient, es *database.ElasticsearchClient, redis *database.RedisClient) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result := func(err error) string {
		if err != nil {
			return err.Error()
		}
		return "ok"
	}
	checks := map[string]string{
		"zeebe":         result(zeebe.HealthCheck(ctx)),
		"postgres":      result(pg.Ping(ctx)),
		"elasticsearch": result(es.Ping(ctx)),
	}
	if redis != nil {
		checks["redis"] = result(redis.Ping(ctx))
	}
	return checks
}

func writeStatus(w http.ResponseWriter, status int, body map[string]interface{}) {
	body["time"] = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
