package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	bookinghandler "octopus/internal/booking/handler"
	bookingmetrics "octopus/internal/booking/metrics"
	bookingmodels "octopus/internal/booking/models"
	bookingservice "octopus/internal/booking/service"
	bookingstore "octopus/internal/booking/store"
	"octopus/internal/lead/attribution"
	leadhandler "octopus/internal/lead/handler"
	leadmetrics "octopus/internal/lead/metrics"
	leadservice "octopus/internal/lead/service"
	leadstore "octopus/internal/lead/store"
	"octopus/internal/platform/config"
	"octopus/internal/platform/postgres"
	"octopus/internal/platform/redis"
	providerhandler "octopus/internal/provider/handler"
	providerservice "octopus/internal/provider/service"
	providerstore "octopus/internal/provider/store"
	ratelimitservice "octopus/internal/ratelimit/service"
	ratelimitstore "octopus/internal/ratelimit/store"
	reportinghandler "octopus/internal/reporting/handler"
	reportingservice "octopus/internal/reporting/service"
	httptransport "octopus/internal/transport/http"
	"octopus/internal/trust/adapters"
	"octopus/internal/trust/agents"
	trusthandler "octopus/internal/trust/handler"
	trustmetrics "octopus/internal/trust/metrics"
	trustmodels "octopus/internal/trust/models"
	"octopus/internal/trust/orchestrator"
	trustservice "octopus/internal/trust/service"
	truststore "octopus/internal/trust/store"
	"octopus/pkg/firecrawl"
	"octopus/pkg/platform/circuit"
	"octopus/pkg/platform/events"
)

// application holds the constructed services and the resources that must be
// released on shutdown, in reverse order of acquisition.
type application struct {
	logger      *slog.Logger
	persistence string

	providers *providerservice.Service
	trust     *trustservice.Service
	leads     *leadservice.Service
	bookings  *bookingservice.Service
	reporting *reportingservice.Service
	limiter   *ratelimitservice.Service

	health  map[string]httptransport.HealthCheck
	closers []func() error
}

func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *application) modules() []httptransport.Module {
	return []httptransport.Module{
		providerhandler.New(a.providers, a.logger),
		trusthandler.New(a.trust, a.logger),
		leadhandler.New(a.leads, a.logger),
		bookinghandler.New(a.bookings, a.logger),
		reportinghandler.New(a.reporting, a.logger),
	}
}

// contributionLedger is read by the contribution agent and written through
// the trust service.
type contributionLedger interface {
	agents.ContributionLedger
	trustservice.ContributionStore
}

// The lifecycle stores also serve the reporting queries.
type (
	scoreStore interface {
		trustservice.ScoreStore
		reportingservice.Scores
	}
	leadStore interface {
		leadservice.Store
		reportingservice.Leads
	}
	bookingStore interface {
		bookingservice.Store
		reportingservice.Bookings
	}
)

// stores groups one persistence backend's implementations.
type stores struct {
	providers     providerservice.Store
	scores        scoreStore
	contributions contributionLedger
	leads         leadStore
	bookings      bookingStore
	tx            *postgres.TxRunner
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *application, err error) {
	a := &application{logger: logger, health: map[string]httptransport.HealthCheck{}}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := a.openPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		a.health["redis"] = rdb.Health
	}

	a.providers = providerservice.New(st.providers,
		providerservice.WithLogger(logger),
		providerservice.WithPublisher(publisher),
		providerservice.WithVerifyTimeout(2*cfg.Trust.AgentTimeout),
	)

	thresholds := trustmodels.Thresholds{Minimum: cfg.Trust.ScoreMin, ManualReview: cfg.Trust.ManualReviewThreshold}
	tm := trustmetrics.New()
	orch, err := orchestrator.New(trustAgents(cfg, st.contributions, logger), a.providers, st.scores,
		orchestrator.WithThresholds(thresholds),
		orchestrator.WithAgentTimeout(cfg.Trust.AgentTimeout),
		orchestrator.WithMetrics(tm),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	trustOpts := []trustservice.Option{
		trustservice.WithLogger(logger),
		trustservice.WithPublisher(publisher),
		trustservice.WithMetrics(tm),
		trustservice.WithContributions(st.contributions),
	}
	bookingOpts := []bookingservice.Option{
		bookingservice.WithLogger(logger),
		bookingservice.WithPublisher(publisher),
		bookingservice.WithMetrics(bookingmetrics.New()),
		bookingservice.WithCommissionPolicy(bookingmodels.CommissionPolicy{
			Min:     cfg.Commission.RateMin,
			Max:     cfg.Commission.RateMax,
			Default: cfg.Commission.RateDefault,
		}),
	}
	leadOpts := []leadservice.Option{
		leadservice.WithLogger(logger),
		leadservice.WithPublisher(publisher),
		leadservice.WithMetrics(leadmetrics.New()),
		leadservice.WithMinTrustScore(cfg.Trust.ScoreMin),
	}
	if st.tx != nil {
		trustOpts = append(trustOpts, trustservice.WithTxRunner(st.tx))
		bookingOpts = append(bookingOpts, bookingservice.WithTxRunner(st.tx))
		leadOpts = append(leadOpts, leadservice.WithTxRunner(st.tx))
	}
	if rdb != nil {
		leadOpts = append(leadOpts, leadservice.WithCache(leadstore.NewRedisCache(rdb, cfg.Leads.CacheTTL)))
	} else {
		leadOpts = append(leadOpts, leadservice.WithCache(leadstore.NewMemoryCache(cfg.Leads.CacheTTL)))
	}

	a.trust, err = trustservice.New(orch, st.scores, a.providers, trustOpts...)
	if err != nil {
		return nil, fmt.Errorf("build trust service: %w", err)
	}
	a.providers.AttachVerifier(a.trust)
	a.closers = append(a.closers, func() error { a.providers.Wait(); return nil })

	codec, err := attribution.NewCodec(cfg.Server.SecretKey, cfg.Server.PublicBaseURL,
		attribution.WithURLValidity(cfg.Leads.URLExpiry),
		attribution.WithAttributionWindow(cfg.Leads.AttributionWindow),
	)
	if err != nil {
		return nil, err
	}
	a.bookings = bookingservice.New(st.bookings, bookingOpts...)
	a.leads, err = leadservice.New(st.leads, codec, a.providers, a.bookings, leadOpts...)
	if err != nil {
		return nil, fmt.Errorf("build lead service: %w", err)
	}
	a.bookings.AttachLeads(a.leads)

	a.reporting, err = reportingservice.New(a.providers, st.leads, st.bookings, st.scores,
		reportingservice.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build reporting service: %w", err)
	}

	var counter ratelimitservice.Counter = ratelimitstore.NewInMemoryCounter()
	if rdb != nil {
		counter = rdb
	}
	a.limiter, err = ratelimitservice.New(counter, cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *application) openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Database.URL == "" {
		a.persistence = "memory"
		a.logger.Warn("DATABASE_URL not set, state is kept in memory and lost on restart")
		return &stores{
			providers:     providerstore.NewInMemory(),
			scores:        truststore.NewInMemory(),
			contributions: truststore.NewInMemoryContributions(),
			leads:         leadstore.NewInMemory(),
			bookings:      bookingstore.NewInMemory(),
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	a.health["database"] = pool.Ping
	a.persistence = "postgres"
	return &stores{
		providers:     providerstore.NewPostgres(pool),
		scores:        truststore.NewPostgres(pool),
		contributions: truststore.NewPostgresContributions(pool),
		leads:         leadstore.NewPostgres(pool),
		bookings:      bookingstore.NewPostgres(pool),
		tx:            postgres.NewTxRunner(pool),
	}, nil
}

func (a *application) openPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NewLogPublisher(a.logger), nil
	}
	kafka, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:           cfg.Kafka.Brokers,
		Topic:             cfg.Kafka.Topic,
		Partitions:        cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	})
	if err != nil {
		return nil, err
	}
	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
		_ = kafka.Close()
		return nil, err
	}
	async := events.NewAsyncPublisher(kafka, cfg.Kafka.AsyncBuffer, events.WithAsyncLogger(a.logger))
	// async.Close drains the queue and then closes the Kafka client.
	a.closers = append(a.closers, async.Close)
	return async, nil
}

// trustAgents builds the five agents, each behind its own guard. Ports whose
// integration is not configured stay nil and the agent reports not_configured.
func trustAgents(cfg config.Config, ledger agents.ContributionLedger, logger *slog.Logger) []agents.Agent {
	var (
		scraper    agents.SiteScraper
		reviews    agents.ReviewSource
		classifier agents.TextClassifier
		social     agents.SocialSearcher
		registry   agents.RegistryLookup
	)
	in := cfg.Integrations
	if in.FirecrawlAPIKey != "" {
		scraper = adapters.NewFirecrawlScraper(firecrawl.NewClient(in.FirecrawlAPIKey, firecrawl.WithBaseURL(in.FirecrawlBaseURL)))
	}
	if in.AnthropicAPIKey != "" {
		classifier = adapters.NewAnthropicClassifier(in.AnthropicAPIKey, in.AnthropicModel)
	}
	if in.SignalsBaseURL != "" {
		signals := adapters.NewSignalClient(in.SignalsBaseURL, in.SignalsAPIKey)
		reviews, social, registry = signals, signals, signals
	}

	retry := agents.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Trust.AgentRetries + 1
	guard := func(a agents.Agent) agents.Agent {
		return agents.NewGuard(a,
			agents.WithRateLimit(cfg.Trust.AgentRPS),
			agents.WithRetryPolicy(retry),
			agents.WithBreaker(circuit.New(string(a.Kind()),
				circuit.WithFailureThreshold(cfg.Trust.BreakerFailureThreshold),
				circuit.WithCooldown(cfg.Trust.BreakerCooldown),
			)),
			agents.WithGuardLogger(logger),
		)
	}
	return []agents.Agent{
		guard(agents.NewBusinessCrawl(scraper)),
		guard(agents.NewReviewEntropy(reviews, classifier)),
		guard(agents.NewSocialPresence(social)),
		guard(agents.NewVerification(registry)),
		guard(agents.NewContribution(ledger, cfg.Trust.ContributionMinHoursYear)),
	}
}
