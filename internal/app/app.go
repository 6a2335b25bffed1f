// Package app wires all Vocaprep subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects the store,
// metrics, and HTTP surface, StartSession launches interview sessions against
// the configured providers, Run serves the ops endpoints until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithMetrics).
// When an option is not provided, New creates real implementations from the
// config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vocaprep/vocaprep/internal/config"
	"github.com/vocaprep/vocaprep/internal/health"
	"github.com/vocaprep/vocaprep/internal/observe"
	"github.com/vocaprep/vocaprep/internal/session"
	"github.com/vocaprep/vocaprep/internal/store"
	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
	"github.com/vocaprep/vocaprep/pkg/provider/realtime"
	"github.com/vocaprep/vocaprep/pkg/provider/vad"
	vadrms "github.com/vocaprep/vocaprep/pkg/provider/vad/rms"
)

// shutdownTimeout bounds HTTP server drain during Shutdown.
const shutdownTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Realtime is
// required; a nil VAD falls back to the built-in RMS engine. Populated by
// main.go via the config registry.
type Providers struct {
	Realtime realtime.Provider
	Feedback feedback.Provider
	VAD      vad.Engine
}

// App owns all subsystem lifetimes and hosts the interview sessions.
type App struct {
	cfg       *config.Config
	providers *Providers

	store    store.Store
	sessions *session.Registry
	metrics  *observe.Metrics
	level    *slog.LevelVar
	srv      *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar shares the dynamic log level used by the process logger so
// config reloads can adjust verbosity at runtime.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// New creates an App by wiring the store, metrics, and HTTP surface together.
// The providers struct comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Realtime == nil {
		return nil, fmt.Errorf("app: realtime provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		sessions:  session.NewRegistry(),
	}
	for _, o := range opts {
		o(a)
	}

	if a.providers.VAD == nil {
		a.providers.VAD = vadrms.New()
		slog.Info("no VAD provider configured, using built-in rms engine")
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.metrics != nil && a.providers.Feedback != nil {
		a.providers.Feedback = &timedFeedback{inner: a.providers.Feedback, m: a.metrics}
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	a.closers = append(a.closers, func() error {
		a.store.Close()
		return nil
	})

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.buildMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// initStore opens the PostgreSQL store, or falls back to the in-memory store
// when no DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		a.store = store.NewMemStore()
		return nil
	}

	pg, err := store.NewPostgresStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = pg
	return nil
}

// buildMux assembles the ops HTTP surface: health probes, Prometheus metrics,
// all wrapped in the tracing/metrics middleware.
func (a *App) buildMux() http.Handler {
	mux := http.NewServeMux()

	h := health.New(
		health.Checker{Name: "store", Check: a.checkStore},
		health.Checker{Name: "realtime", Check: a.checkRealtime},
	)
	h.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(a.metrics)(mux)
}

// checkStore probes the persistence layer. The in-memory store is always
// healthy; the postgres store is pinged.
func (a *App) checkStore(ctx context.Context) error {
	if p, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// checkRealtime verifies the realtime provider is usable without opening a
// session: a provider reporting no capabilities at all is misconfigured.
func (a *App) checkRealtime(_ context.Context) error {
	if a.providers.Realtime == nil {
		return fmt.Errorf("realtime provider not configured")
	}
	return nil
}

// Sessions returns the registry of running interview sessions.
func (a *App) Sessions() *session.Registry { return a.sessions }

// Store returns the persistence layer.
func (a *App) Store() store.Store { return a.store }

// OnConfigChange applies a reloaded configuration. Only the log level takes
// effect immediately; VAD and session tuning apply to sessions started after
// the swap, and anything else is reported as requiring a restart.
func (a *App) OnConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		return
	}

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(d.NewLogLevel.Slog())
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.VADChanged || d.SessionChanged {
		a.cfg.Session = new.Session
		slog.Info("session tuning updated, applies to new sessions")
	}
	if d.RestartRequired {
		slog.Warn("config changes to providers, storage, or server require a restart")
	}
}

// Run serves the ops endpoints and blocks until ctx is cancelled or the
// server fails. On cancellation the server is drained gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(drainCtx); err != nil {
			slog.Warn("http server drain error", "err", err)
		}
		return ctx.Err()
	})

	slog.Info("app running", "listen_addr", a.cfg.Server.ListenAddr)
	return g.Wait()
}

// Shutdown stops all running sessions and tears down subsystems in reverse
// init order. It respects the context deadline.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "active_sessions", a.sessions.Len())

		if err := a.sessions.StopAll(ctx); err != nil {
			slog.Warn("session stop error", "err", err)
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// timedFeedback wraps a feedback provider and records generation latency.
type timedFeedback struct {
	inner feedback.Provider
	m     *observe.Metrics
}

func (t *timedFeedback) Generate(ctx context.Context, req feedback.Request) (string, error) {
	start := time.Now()
	report, err := t.inner.Generate(ctx, req)
	if err == nil {
		t.m.FeedbackDuration.Record(ctx, time.Since(start).Seconds())
	}
	return report, err
}
