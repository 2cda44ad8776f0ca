package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kycflow/internal/kyc/compliance"
	"kycflow/internal/kyc/documents"
	"kycflow/internal/kyc/intake"
	"kycflow/internal/kyc/lock"
	kycmetrics "kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/notify"
	"kycflow/internal/kyc/pii"
	"kycflow/internal/kyc/ports"
	"kycflow/internal/kyc/review"
	"kycflow/internal/kyc/risk"
	"kycflow/internal/kyc/store"
	"kycflow/internal/kyc/workflow"
	"kycflow/internal/platform/config"
	httpmetrics "kycflow/internal/platform/metrics"
	"kycflow/internal/platform/middleware"
	platformredis "kycflow/internal/platform/redis"
	"kycflow/pkg/platform/circuit"
	"kycflow/pkg/platform/middleware/metadata"
	"kycflow/pkg/platform/middleware/requesttime"
)

// kycStore is what both intake and the workflow need from persistence.
type kycStore interface {
	workflow.Store
	intake.Store
	compliance.IdentityIndex
}

// documentRegistry is the registry seen by the binary: the workflow only
// reads, upload callers register.
type documentRegistry interface {
	ports.DocumentRegistry
	Register(ctx context.Context, doc documents.Document) error
}

type watchlist interface {
	compliance.Watchlist
	AddNationality(ctx context.Context, code string) error
}

type amlList interface {
	compliance.AMLScreener
	AddCountry(ctx context.Context, code string) error
}

type application struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *prometheus.Registry

	db     *sql.DB
	redis  *platformredis.Client
	kafka  *notify.Kafka
	async  *notify.Async
	closes []func()

	Documents    documentRegistry
	Intake       *intake.Service
	Orchestrator *workflow.Orchestrator
	Review       *review.Handler
	httpMetrics  *httpmetrics.Metrics
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, log: log, metrics: prometheus.NewRegistry()}
	app.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	kycMetrics := kycmetrics.NewWithRegistry(app.metrics)
	app.httpMetrics = httpmetrics.NewWithRegistry(app.metrics)

	st, docs, err := app.openStorage(ctx)
	if err != nil {
		app.close()
		return nil, err
	}
	app.Documents = docs

	locker, list, aml, err := app.openRedis(ctx)
	if err != nil {
		app.close()
		return nil, err
	}
	for _, code := range cfg.Workflow.SanctionedNationalities {
		if err := list.AddNationality(ctx, code); err != nil {
			app.close()
			return nil, fmt.Errorf("seed watchlist: %w", err)
		}
	}
	for _, code := range cfg.Workflow.AMLFlaggedCountries {
		if err := aml.AddCountry(ctx, code); err != nil {
			app.close()
			return nil, fmt.Errorf("seed aml list: %w", err)
		}
	}

	dispatcher, err := app.openDispatcher(ctx, kycMetrics)
	if err != nil {
		app.close()
		return nil, err
	}

	codec, err := app.piiCodec()
	if err != nil {
		app.close()
		return nil, err
	}

	provider := compliance.NewGuarded(
		compliance.NewProvider(list, st, compliance.WithAMLScreener(aml)),
		[]circuit.Option{
			circuit.WithFailureThreshold(cfg.Workflow.BreakerFailureThreshold),
			circuit.WithCooldown(cfg.Workflow.BreakerCooldown),
		},
		compliance.WithLogger(log),
		compliance.WithMetrics(kycMetrics),
	)

	app.Intake, err = intake.NewService(st, codec, intakeConfig(cfg),
		intake.WithLogger(log),
		intake.WithDispatcher(dispatcher),
	)
	if err != nil {
		app.close()
		return nil, err
	}

	app.Orchestrator, err = workflow.New(st, risk.New(riskConfig(cfg)), docs, provider, workflowConfig(cfg),
		workflow.WithLogger(log),
		workflow.WithMetrics(kycMetrics),
		workflow.WithLocker(locker),
		workflow.WithDispatcher(dispatcher),
		workflow.WithResubmitter(app.Intake),
	)
	if err != nil {
		app.close()
		return nil, err
	}

	app.Review, err = review.New(app.Orchestrator,
		review.WithLogger(log),
		review.WithConcurrency(cfg.Workflow.BatchConcurrency),
	)
	if err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context) (kycStore, documentRegistry, error) {
	if a.cfg.Database.URL == "" {
		a.log.Warn("DATABASE_URL not set, using in-memory storage")
		return store.NewInMemory(), documents.NewInMemory(), nil
	}

	db, err := sql.Open("pgx", a.cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(a.cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(a.cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(a.cfg.Database.ConnMaxLifetime)
	a.db = db
	a.closes = append(a.closes, func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if a.cfg.Database.MigrateOnStart {
		if err := store.Migrate(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store.NewPostgres(db, 0), documents.NewPostgres(db), nil
}

func (a *application) openRedis(ctx context.Context) (workflow.Locker, watchlist, amlList, error) {
	client, err := platformredis.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	if client == nil {
		a.log.Warn("REDIS_URL not set, using process-local locks and screening lists")
		return lock.NewInMemory(), compliance.NewMemoryWatchlist(), compliance.NewMemoryAMLList(), nil
	}
	a.redis = client
	a.closes = append(a.closes, func() { _ = client.Close() })
	return lock.NewRedis(client.Client),
		compliance.NewRedisWatchlist(client.Client),
		compliance.NewRedisAMLList(client.Client),
		nil
}

func (a *application) openDispatcher(ctx context.Context, m *kycmetrics.Metrics) (ports.NotificationDispatcher, error) {
	k := a.cfg.Kafka
	if len(k.Brokers) == 0 {
		a.log.Warn("KAFKA_BROKERS not set, workflow events are logged only")
		return notify.NewLog(a.log), nil
	}

	producer, err := notify.NewKafka(notify.KafkaConfig{
		Brokers:           k.Brokers,
		Topic:             k.Topic,
		ClientID:          k.ClientID,
		Partitions:        k.Partitions,
		ReplicationFactor: k.ReplicationFactor,
	})
	if err != nil {
		return nil, err
	}
	a.kafka = producer
	a.closes = append(a.closes, producer.Close)

	if err := producer.EnsureTopic(ctx, k.Partitions, k.ReplicationFactor); err != nil {
		return nil, fmt.Errorf("ensure kafka topic: %w", err)
	}
	a.async = notify.NewAsync(producer,
		notify.WithLogger(a.log),
		notify.WithMetrics(m),
		notify.WithCapacity(k.BufferCapacity),
		notify.WithBatchSize(k.BatchSize),
		notify.WithFlushInterval(k.FlushInterval),
	)
	return a.async, nil
}

func (a *application) piiCodec() (*pii.Codec, error) {
	p := a.cfg.PII
	if p.EncryptionKeyHex != "" && p.IndexKeyHex != "" {
		return pii.NewFromHex(p.EncryptionKeyHex, p.IndexKeyHex)
	}
	a.log.Warn("PII keys not set, generating ephemeral keys; stored PII will not be readable after restart")
	enc, idx := make([]byte, 32), make([]byte, 32)
	if _, err := rand.Read(enc); err != nil {
		return nil, err
	}
	if _, err := rand.Read(idx); err != nil {
		return nil, err
	}
	return pii.New(enc, idx)
}

func (a *application) router() http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recoverer(a.log))
	r.Use(middleware.RequestLogger(a.log))
	r.Use(a.httpMetrics.Middleware)

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	return r
}

func (a *application) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var errs []error
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.kafka != nil {
		if err := a.kafka.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.WarnContext(ctx, "health check failed", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// runBackground starts the event flusher and the stalled review sweep. The
// returned channel closes once both have stopped.
func (a *application) runBackground(ctx context.Context) <-chan struct{} {
	var wg sync.WaitGroup
	if a.async != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.async.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("event dispatcher stopped", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweepLoop(ctx)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (a *application) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Workflow.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Orchestrator.EscalateStalled(ctx); err != nil {
				a.log.ErrorContext(ctx, "stalled review sweep failed", "error", err)
			}
		}
	}
}

func (a *application) close() {
	for i := len(a.closes) - 1; i >= 0; i-- {
		a.closes[i]()
	}
}

func workflowConfig(cfg *config.Config) workflow.Config {
	w := cfg.Workflow
	return workflow.Config{
		AutoApprovalThreshold:      w.AutoApprovalThreshold,
		AutoRejectionThreshold:     w.AutoRejectionThreshold,
		EnableAutoReview:           w.EnableAutoReview,
		FailedCheckForcesRejection: w.FailedCheckForcesRejection,
		MaxSubmissions:             w.MaxSubmissions,
		ReviewTimeout:              w.ReviewTimeout,
		ApprovalValidity:           w.ApprovalValidity,
		EnableBlacklistCheck:       w.EnableBlacklistCheck,
		EnableDuplicateCheck:       w.EnableDuplicateCheck,
		EnableAMLCheck:             w.EnableAMLCheck,
		CheckTimeout:               w.CheckTimeout,
		LockTTL:                    w.LockTTL,
		LockWait:                   w.LockWait,
		BatchConcurrency:           w.BatchConcurrency,
		SweepBatchSize:             w.SweepBatchSize,
	}
}

func riskConfig(cfg *config.Config) risk.Config {
	rc := risk.DefaultConfig()
	rc.Weights = risk.Weights{
		Age:        cfg.Risk.AgeWeight,
		Location:   cfg.Risk.LocationWeight,
		Occupation: cfg.Risk.OccupationWeight,
		Income:     cfg.Risk.IncomeWeight,
	}
	rc.LowRiskCountries = cfg.Risk.LowRiskCountries
	rc.HighRiskCountries = cfg.Risk.HighRiskCountries
	rc.MinimumAge = cfg.Risk.MinimumAge
	return rc
}

func intakeConfig(cfg *config.Config) intake.Config {
	return intake.Config{
		MinimumAge:      cfg.Intake.MinimumAge,
		MaximumAge:      cfg.Intake.MaximumAge,
		MaxSubmissions:  cfg.Workflow.MaxSubmissions,
		DefaultKYCLevel: cfg.Intake.DefaultKYCLevel,
		MaxKYCLevel:     cfg.Intake.MaxKYCLevel,
	}
}
