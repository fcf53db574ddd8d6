package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fedcore/internal/platform/config"
	"fedcore/internal/platform/httpserver"
	"fedcore/internal/platform/kafka"
	"fedcore/internal/platform/logger"
	httpmetrics "fedcore/internal/platform/metrics"
	"fedcore/internal/platform/postgres"
	"fedcore/internal/platform/redis"
	"fedcore/internal/profile/adapters"
	"fedcore/internal/profile/handler"
	"fedcore/internal/profile/lock"
	"fedcore/internal/profile/mention"
	profilemetrics "fedcore/internal/profile/metrics"
	"fedcore/internal/profile/migration"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/notify"
	"fedcore/internal/profile/store"
	"fedcore/internal/profile/versions"
	"fedcore/pkg/platform/circuit"
	"fedcore/pkg/platform/middleware/metadata"
	"fedcore/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/profile.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := httpserver.Run(ctx, httpserver.New(cfg.Addr, app), log); err != nil {
		log.Error("server error", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		tx        migration.StoreTx
		mentions  mention.Repository
		followers notify.FollowerLookup
		profiles  versions.Repository
		health    = map[string]func(context.Context) error{}
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = db.Close() })
		pg := store.NewPostgres(db, store.WithTxTimeout(cfg.Migration.TxTimeout))
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		tx, mentions, followers, profiles = pg, pg.Mentions(), pg.Followings(), pg.ProfileInfos()
		health["postgres"] = db.PingContext
		log.Info("using postgres store")
	} else {
		mem := store.NewMemory(store.WithMemoryTxTimeout(cfg.Migration.TxTimeout))
		tx, mentions, followers, profiles = mem, mem.Mentions(), mem.Followings(), mem.ProfileInfos()
		log.Info("using in-memory store")
	}

	var locker lock.Locker = lock.NewLocal()
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, cleanup, err
	}
	if rc != nil {
		closers = append(closers, func() { _ = rc.Close() })
		locker = lock.NewRedis(rc.UniversalClient, lock.WithTTL(cfg.Migration.LockTTL))
		health["redis"] = rc.Health
		log.Info("using redis migration lock")
	}

	pm := profilemetrics.New()
	bus := adapters.NewBus()
	bus.Subscribe(models.ProfileChangedEvent, func(ctx context.Context, p models.ProfileChange) error {
		log.InfoContext(ctx, "profile changed",
			"event_id", p.EventID,
			"entity", p.Entity,
			"old_entity", p.OldEntity,
		)
		return nil
	})

	var sender adapters.EntitySender = adapters.NewLogNotifier(log)
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.New(kafka.Config{Brokers: cfg.Kafka.Brokers, ClientID: "fedcore"})
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, client.Close)
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.NotifyTopic, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			return nil, cleanup, err
		}
		sender = adapters.NewBreakingSender(
			adapters.NewKafkaNotifier(client, cfg.Kafka.NotifyTopic,
				adapters.WithKafkaLogger(log),
				adapters.WithKafkaMetrics(pm),
			),
			circuit.New("kafka-notify"),
			log,
		)
		health["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, client) }
		log.Info("using kafka notifier", "topic", cfg.Kafka.NotifyTopic)
	}

	dispatcher, err := notify.New(mention.NewIndex(mentions), followers, adapters.NewNotifier(bus, sender),
		notify.WithLogger(log),
		notify.WithMetrics(pm),
		notify.WithConcurrency(cfg.Migration.NotifyConcurrency),
	)
	if err != nil {
		return nil, cleanup, err
	}
	engine, err := migration.New(tx, dispatcher,
		migration.WithLogger(log),
		migration.WithMetrics(pm),
	)
	if err != nil {
		return nil, cleanup, err
	}

	hm := httpmetrics.New(prometheus.DefaultRegisterer)
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(hm.Middleware)

	handler.New(engine, versions.New(profiles), locker, log).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		for name, check := range health {
			if err := check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "health check failed", "dependency", name, "error", err)
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	return r, cleanup, nil
}
