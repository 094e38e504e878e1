package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	authhandler "github.com/mlongerich/DonationTracker-sub003/internal/auth/handler"
	donationhandler "github.com/mlongerich/DonationTracker-sub003/internal/donation/handler"
	donationservice "github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donorhandler "github.com/mlongerich/DonationTracker-sub003/internal/donor/handler"
	donorservice "github.com/mlongerich/DonationTracker-sub003/internal/donor/service"
	"github.com/mlongerich/DonationTracker-sub003/internal/ingest"
	ingesthandler "github.com/mlongerich/DonationTracker-sub003/internal/ingest/handler"
	jwttoken "github.com/mlongerich/DonationTracker-sub003/internal/jwt_token"
	"github.com/mlongerich/DonationTracker-sub003/internal/lifecycle"
	lifecyclehandler "github.com/mlongerich/DonationTracker-sub003/internal/lifecycle/handler"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/config"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/httpserver"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/logger"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/redis"
	projectstore "github.com/mlongerich/DonationTracker-sub003/internal/project/store"
	sponsorshiphandler "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/handler"
	sponsorshipservice "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/service"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	httptransport "github.com/mlongerich/DonationTracker-sub003/internal/transport/http"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	auditInboxSize  = 1024
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	st, cleanup, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := projectstore.SeedGeneralFund(ctx, st.projects); err != nil {
		return err
	}

	cache, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
		log.Info("ingest idempotency cache enabled", "seen_ttl", cfg.Redis.SeenTTL)
	}

	sink, closeSink, err := openAuditSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	channel := audit.NewChannelSink(auditInboxSize)
	publisher := audit.NewPublisher(channel)
	worker := audit.NewWorker(sink, channel.Inbox(), log)

	m := metrics.New()

	sponsorshipSvc := sponsorshipservice.New(st.sponsorships, st.children, st.projects, st.donors, st.tx,
		sponsorshipservice.WithLogger(log),
		sponsorshipservice.WithAuditPublisher(publisher),
		sponsorshipservice.WithMetrics(m),
	)
	donationSvc := donationservice.New(st.donations, st.invoices, st.donors, st.projects, sponsorshipSvc, st.tx,
		donationservice.WithLogger(log),
		donationservice.WithAuditPublisher(publisher),
		donationservice.WithMetrics(m),
	)
	donorSvc := donorservice.New(st.donors, st.donations, st.sponsorships, st.tx,
		donorservice.WithLogger(log),
		donorservice.WithAuditPublisher(publisher),
		donorservice.WithMetrics(m),
	)
	lifecycleSvc := lifecycle.New(st.donors, st.children, st.projects, st.sponsorships, st.donations, st.tx,
		lifecycle.WithLogger(log),
		lifecycle.WithAuditPublisher(publisher),
		lifecycle.WithMetrics(m),
	)
	ingestSvc := ingest.New(donationSvc,
		ingest.WithLogger(log),
		ingest.WithMetrics(m),
		ingest.WithCache(cache, cfg.Redis.SeenTTL),
	)

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "donation-tracker")

	var auth *authhandler.Handler
	if cfg.AdminSecretHash != "" {
		auth = authhandler.New(tokens, cfg.AdminSecretHash, log)
	} else {
		log.Warn("ADMIN_SECRET_HASH not set; token exchange endpoint disabled")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Donations:      donationhandler.New(donationSvc, log),
		Sponsorships:   sponsorshiphandler.New(sponsorshipSvc, log),
		Donors:         donorhandler.New(donorSvc, log),
		Lifecycle:      lifecyclehandler.New(lifecycleSvc, log),
		Ingest:         ingesthandler.New(ingestSvc, log),
		Auth:           auth,
		TokenValidator: tokens,
		Logger:         log,
		Metrics:        m,
		RequestTimeout: requestTimeout,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		log.Info("starting donation tracker", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStores picks the Postgres stores when DATABASE_URL is set and falls
// back to the in-memory stores otherwise, so the service runs without
// infrastructure in development.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (stores, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return newMemoryStores(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return stores{}, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return stores{}, nil, err
	}
	if _, err := db.ExecContext(ctx, storage.Schema); err != nil {
		_ = db.Close()
		return stores{}, nil, err
	}
	return newPostgresStores(db), func() { _ = db.Close() }, nil
}

// openAuditSink publishes audit events to Kafka when brokers are configured.
// Without brokers events stay in memory; the structured audit log lines are
// emitted either way.
func openAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, audit events stay in process")
		return audit.NewMemorySink(), func() {}, nil
	}

	kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, err
	}
	log.Info("audit publishing enabled", "topic", cfg.Kafka.Topic)
	return kafkaSink, kafkaSink.Close, nil
}
