package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AngelCh415/leadsync/internal/agents"
	"github.com/AngelCh415/leadsync/internal/config"
	"github.com/AngelCh415/leadsync/internal/crm"
	"github.com/AngelCh415/leadsync/internal/httpx"
	"github.com/AngelCh415/leadsync/internal/inbox"
	"github.com/AngelCh415/leadsync/internal/ingest"
	"github.com/AngelCh415/leadsync/internal/jobs"
	"github.com/AngelCh415/leadsync/internal/logger"
	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/observability"
	"github.com/AngelCh415/leadsync/internal/ratelimit"
	"github.com/AngelCh415/leadsync/internal/store"
	"github.com/AngelCh415/leadsync/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := observability.NewCollectors(reg)

	cl := ingest.NewHTTPClient(cfg.CRM.HTTPTimeoutDuration())
	fetcher := ingest.NewFetcher(cl, cfg.CRM.ExportURL, rate.NewLimiter(rate.Limit(cfg.CRM.FetchRPS), cfg.CRM.FetchBurst))
	src := ingest.NewSource(fetcher, store.NewMemoryStore(), cfg.CRM.CacheTTLDuration(), log.Named("ingest"),
		ingest.WithCollectors(obs), ingest.WithFetchTimeout(cfg.CRM.HTTPTimeoutDuration()))

	svc := metrics.NewService()
	roster, err := agents.NewRegistry()
	if err != nil {
		return err
	}
	pipeline := crm.New(src, svc, agents.NewProjector(roster, svc), log.Named("crm"), crm.WithCollectors(obs))

	limiters, closeLimiters, err := buildLimiters(ctx, cfg.RateLimit, log)
	if err != nil {
		return err
	}
	defer closeLimiters()

	router := httpx.NewRouter(httpx.Deps{
		Log:        log.Named("http"),
		Pipeline:   pipeline,
		Syncer:     src,
		Inbox:      inbox.New(inbox.WithSeed()),
		Limiters:   limiters,
		APIKey:     cfg.Security.APIKey,
		CORS:       cfg.CORS,
		Collectors: obs,
		Gatherer:   reg,
	})

	scheduler := jobs.NewScheduler(log.Named("jobs"))
	if cfg.CRM.PollEnabled {
		poll := jobs.NewCRMPollJob(src, utils.NewBackoff(2*time.Second, 2), log.Named("jobs"), 4*cfg.CRM.HTTPTimeoutDuration())
		if err := scheduler.AddJob(jobs.CRMPollJobName, cfg.CRM.PollCron, poll.Run); err != nil {
			return err
		}
		go poll.Run() // warm the cache before the first tick
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.Int("port", cfg.App.Port),
			zap.String("export_url", cfg.CRM.ExportURL),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildLimiters wires every entry point's limiter onto one bucket store. The
// returned func releases the store.
func buildLimiters(ctx context.Context, cfg config.RateLimitConfig, log *zap.Logger) (httpx.Limiters, func(), error) {
	if !cfg.Enabled {
		log.Warn("rate limiting disabled")
		return httpx.Limiters{}, func() {}, nil
	}

	var (
		buckets ratelimit.Store
		closeFn = func() {}
	)
	switch cfg.Backend {
	case "redis":
		rs, client, err := ratelimit.NewRedisStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return httpx.Limiters{}, nil, err
		}
		buckets = rs
		closeFn = func() { _ = client.Close() }
	default:
		ms := ratelimit.NewMemoryStore()
		ms.StartJanitor(ctx, cfg.JanitorDuration())
		buckets = ms
	}

	mk := func(lc config.LimiterConfig) (*ratelimit.Limiter, error) {
		return ratelimit.New(ratelimit.Config{
			MaxRequests: lc.MaxRequests,
			Window:      lc.Window(),
			Prefix:      lc.Prefix,
		}, buckets)
	}

	var out httpx.Limiters
	for _, l := range []struct {
		dst **ratelimit.Limiter
		cfg config.LimiterConfig
	}{
		{&out.CRM, cfg.CRM},
		{&out.AgentDetail, cfg.AgentDetail},
		{&out.LogStream, cfg.LogStream},
		{&out.Messages, cfg.Messages},
	} {
		lim, err := mk(l.cfg)
		if err != nil {
			closeFn()
			return httpx.Limiters{}, nil, fmt.Errorf("limiter %s: %w", l.cfg.Prefix, err)
		}
		*l.dst = lim
	}
	return out, closeFn, nil
}
