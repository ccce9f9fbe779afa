// main wires the registry together: config, logging, the memory core, the
// optional redis cache, postgres snapshots, and the Kafka audit sink, then
// runs the HTTP server until a shutdown signal lands. Business logic lives in
// the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"onsd/internal/audit"
	auditkafka "onsd/internal/audit/store/kafka"
	auditmem "onsd/internal/audit/store/memory"
	"onsd/internal/platform/config"
	"onsd/internal/platform/httpserver"
	"onsd/internal/platform/logger"
	"onsd/internal/platform/metrics"
	"onsd/internal/platform/middleware"
	platformredis "onsd/internal/platform/redis"
	"onsd/internal/platform/token"
	"onsd/internal/registry/access"
	"onsd/internal/registry/cache"
	"onsd/internal/registry/handler"
	"onsd/internal/registry/service"
	"onsd/internal/registry/store/memory"
	"onsd/internal/registry/store/postgres"
	"onsd/pkg/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const auditBufferSize = 256

func main() {
	if err := run(); err != nil {
		logger.New("text").Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := memory.New()
	m := metrics.New()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
	}

	// Record query cache, enabled by ONSD_REDIS_URL.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		opts = append(opts, service.WithRecordCache(cache.NewRecordCache(redisClient.Client, cfg.Redis.CacheTTL)))
		log.Info("record cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	// Snapshot persistence, enabled by ONSD_POSTGRES_URL.
	var snapshots *postgres.Store
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		snapshots = postgres.New(pool)
		if err := snapshots.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, service.WithSnapshotStore(snapshots))
		log.Info("snapshot persistence enabled", "interval", cfg.Postgres.SnapshotInterval)
	}

	// Audit trail: Kafka when brokers are configured, in-memory otherwise.
	var auditStore audit.Store
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
		log.Info("kafka audit sink enabled", "topic", cfg.Kafka.Topic)
	} else {
		auditStore = auditmem.NewInMemoryStore()
	}
	publisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(auditBufferSize))
	defer publisher.Close()
	opts = append(opts, service.WithAuditPublisher(publisher))

	gate := access.NewStaticGate(domain.CallerID(cfg.Auth.Owner), callerIDs(cfg.Auth.Authorized))
	svc, err := service.New(store, gate, opts...)
	if err != nil {
		return err
	}
	if err := svc.LoadPersisted(ctx); err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(svc, token.NewValidator(cfg.Auth.JWTSigningKey), log).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting onsd", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if snapshots != nil {
		group.Go(func() error {
			ticker := time.NewTicker(cfg.Postgres.SnapshotInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := svc.PersistSnapshot(gctx); err != nil {
						log.Error("periodic snapshot failed", "error", err)
					}
				}
			}
		})
	}

	err = group.Wait()

	// A final snapshot captures mutations since the last tick.
	if snapshots != nil {
		persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if perr := svc.PersistSnapshot(persistCtx); perr != nil {
			log.Error("final snapshot failed", "error", perr)
		}
	}

	return err
}

func callerIDs(raw []string) []domain.CallerID {
	out := make([]domain.CallerID, 0, len(raw))
	for _, s := range raw {
		out = append(out, domain.CallerID(s))
	}
	return out
}
