package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	adminHandler "inclusao/internal/admin/handler"
	adminService "inclusao/internal/admin/service"
	"inclusao/internal/backend"
	"inclusao/internal/backend/instrumented"
	"inclusao/internal/backend/setup"
	"inclusao/internal/platform/clientstore"
	"inclusao/internal/platform/config"
	"inclusao/internal/platform/flash"
	"inclusao/internal/platform/health"
	"inclusao/internal/platform/logger"
	"inclusao/internal/platform/metrics"
	redisClient "inclusao/internal/platform/redis"
	"inclusao/internal/platform/sessioncookie"
	"inclusao/internal/platform/tracing"
	regHandler "inclusao/internal/registration/handler"
	regService "inclusao/internal/registration/service"
	"inclusao/internal/session"
	httptransport "inclusao/internal/transport/http"
	"inclusao/internal/web"
	"inclusao/pkg/platform/audit"
	"inclusao/pkg/platform/circuit"
	"inclusao/pkg/platform/middleware/request"
)

const (
	serviceName     = "inclusao"
	shutdownTimeout = 10 * time.Second
	poolStatsEvery  = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing inclusao",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"backend", cfg.Backend,
	)

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()
	var tracer tracing.Tracer = tracing.NewNoop()
	if cfg.OTelEndpoint != "" {
		tracer = tracing.NewOTel()
	}

	m := metrics.New()
	latency := request.NewMetrics()
	auditor := audit.NewLogger(log, audit.NewCounterEmitter(m.AuditEvents))

	raw, err := setup.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	b := instrumented.Wrap(raw, instrumented.Options{
		Tracer:  tracer,
		Metrics: m,
		Breaker: circuit.New("backend"),
		Logger:  log,
	})
	defer closeBackend(b, log)

	rc, err := redisClient.New(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var store session.Store = session.NewMemoryStore()
	if rc != nil {
		defer rc.Close() //nolint:errcheck // shutting down
		store = session.NewRedisStore(rc.Client, 2*cfg.Session.MaxAge)
		log.Info("admin sessions stored in redis")
	}

	sessions := session.NewManager(store, b.Auth,
		session.WithConfig(session.Config{
			MaxAge:        cfg.Session.MaxAge,
			CheckInterval: cfg.Session.CheckInterval,
		}),
		session.WithMetrics(m),
		session.WithAuditor(auditor),
		session.WithLogger(log),
	)
	defer sessions.Close()

	sweeper, err := session.NewSweeper(store, cfg.Session.MaxAge, session.WithSweepLogger(log))
	if err != nil {
		return fmt.Errorf("session sweeper: %w", err)
	}

	fl := flash.Flash{Secure: cfg.CookieSecure}
	clients := clientstore.Cookies{Secure: cfg.CookieSecure}
	renderer, err := web.New(fl, clients,
		web.WithLocation(cfg.Location()),
		web.WithDefaultTheme(cfg.DefaultTheme),
		web.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	registrations := regHandler.New(
		regService.New(b.Registrations, log,
			regService.WithMetrics(m),
			regService.WithAuditor(auditor),
		),
		renderer, clients, fl,
		regHandler.Config{
			RedirectDelay:  cfg.RedirectDelay,
			GroupInviteURL: cfg.GroupInviteURL,
			DefaultTheme:   cfg.DefaultTheme,
		},
		log,
	)
	admin := adminHandler.New(
		adminService.New(b, sessions, log,
			adminService.WithMetrics(m),
			adminService.WithAuditor(auditor),
		),
		sessions, renderer, fl,
		sessioncookie.Cookie{Secure: cfg.CookieSecure},
		log,
	)

	probes := health.New(cfg.Environment, string(cfg.Backend))
	probes.RegisterCheck("backend", b.Health)
	if rc != nil {
		probes.RegisterCheck("redis", rc.Health)
	}

	router := httptransport.NewRouter(
		httptransport.Config{
			CSRFKey:        cfg.CSRFKey,
			CookieSecure:   cfg.CookieSecure,
			TrustedProxies: cfg.TrustedProxies,
		},
		httptransport.Deps{
			Logger:   log,
			Latency:  latency,
			Gatherer: prometheus.DefaultGatherer,
			Health:   probes,
		},
		registrations, admin,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error { return sessions.Run(gctx) })
	g.Go(func() error { return sweeper.Start(gctx) })
	if rc != nil {
		g.Go(func() error { return rc.RunPoolStats(gctx, poolStatsEvery) })
	}

	return g.Wait()
}

func closeBackend(b backend.Backend, log *slog.Logger) {
	if b.Close == nil {
		return
	}
	if err := b.Close(); err != nil {
		log.Warn("backend close failed", "error", err)
	}
}
