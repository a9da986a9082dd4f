// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in internal services
// packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"analysthub/internal/audit"
	"analysthub/internal/identity"
	jwttoken "analysthub/internal/jwt_token"
	onboardinghandler "analysthub/internal/onboarding/handler"
	onboardingservice "analysthub/internal/onboarding/service"
	onboardingstore "analysthub/internal/onboarding/store"
	"analysthub/internal/platform/config"
	"analysthub/internal/platform/httpserver"
	"analysthub/internal/platform/logger"
	"analysthub/internal/platform/metrics"
	platformredis "analysthub/internal/platform/redis"
	"analysthub/internal/submission"
	"analysthub/internal/uploads"
)

const auditInboxSize = 256

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wizard state persistence: Postgres when configured, then Redis, then
	// in-memory for development.
	var wizardStore onboardingstore.Store = onboardingstore.NewInMemoryStore()
	switch {
	case cfg.Postgres.DSN != "":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres open failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		pgStore := onboardingstore.NewPostgresStore(db, log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema setup failed", "error", err.Error())
			os.Exit(1)
		}
		wizardStore = pgStore
		log.Info("wizard state persistence: postgres")
	case cfg.Redis.URL != "":
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis connect failed", "error", err.Error())
			os.Exit(1)
		}
		defer redisClient.Close()
		wizardStore = onboardingstore.NewRedisStore(redisClient.Client, log)
		log.Info("wizard state persistence: redis")
	default:
		log.Warn("wizard state persistence: in-memory, state is lost on restart")
	}
	wizardStore = onboardingstore.NewInstrumented(wizardStore, m)

	// Audit pipeline: channel publisher, background worker, optional Kafka
	// fan-out.
	auditInbox := make(chan audit.Event, auditInboxSize)
	auditStore := audit.NewInMemoryStore()
	auditor := audit.NewPublisher(auditInbox, log)
	var auditSink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka sink setup failed", "error", err.Error())
			os.Exit(1)
		}
		defer kafkaSink.Close()
		auditSink = kafkaSink
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	auditWorker := audit.NewWorker(auditStore, auditSink, auditInbox, log)

	// External collaborators share one HTTP client.
	httpClient := &http.Client{Timeout: cfg.CollaboratorHTTPTimeout}
	identityClient := identity.NewClient(cfg.IdentityBaseURL, httpClient)
	submissionClient := submission.NewClient(cfg.SubmissionURL, httpClient)
	uploadClient := uploads.NewClient(cfg.UploadBaseURL, httpClient)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "identity-service", "analysthub")
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	onboarding := onboardingservice.New(
		wizardStore, submissionClient, uploadClient, identityClient, auditor, m, log,
	)
	handler := onboardinghandler.New(onboarding, log, m, jwtValidator)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := auditWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		log.Info("starting analysthub", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}
