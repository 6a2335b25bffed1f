// Command vocaprep is the main entry point for the Vocaprep interview server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vocaprep/vocaprep/internal/app"
	"github.com/vocaprep/vocaprep/internal/config"
	"github.com/vocaprep/vocaprep/internal/observe"
	"github.com/vocaprep/vocaprep/internal/resilience"
	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
	fbopenai "github.com/vocaprep/vocaprep/pkg/provider/feedback/openai"
	"github.com/vocaprep/vocaprep/pkg/provider/realtime"
	"github.com/vocaprep/vocaprep/pkg/provider/realtime/gemini"
	rtopenai "github.com/vocaprep/vocaprep/pkg/provider/realtime/openai"
	"github.com/vocaprep/vocaprep/pkg/provider/vad"
	"github.com/vocaprep/vocaprep/pkg/provider/vad/rms"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watchConfig := flag.Bool("watch-config", true, "reload the configuration file when it changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vocaprep: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vocaprep: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := &slog.LevelVar{}
	level.Set(cfg.Server.LogLevel.Slog())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("vocaprep starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "vocaprep"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLogLevelVar(level))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if *watchConfig {
		watcher, err := config.NewWatcher(*configPath, application.OnConfigChange)
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Realtime ──────────────────────────────────────────────────────────────

	reg.RegisterRealtime("gemini-live", func(entry config.ProviderEntry) (realtime.Provider, error) {
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(entry.BaseURL))
		}
		return gemini.New(entry.APIKey, opts...), nil
	})

	reg.RegisterRealtime("openai-realtime", func(entry config.ProviderEntry) (realtime.Provider, error) {
		var opts []rtopenai.Option
		if entry.Model != "" {
			opts = append(opts, rtopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, rtopenai.WithBaseURL(entry.BaseURL))
		}
		return rtopenai.New(entry.APIKey, opts...), nil
	})

	// ── Feedback ──────────────────────────────────────────────────────────────

	reg.RegisterFeedback("openai", func(entry config.ProviderEntry) (feedback.Provider, error) {
		var opts []fbopenai.Option
		if entry.Model != "" {
			opts = append(opts, fbopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, fbopenai.WithBaseURL(entry.BaseURL))
		}
		return fbopenai.New(entry.APIKey, opts...)
	})

	// ── VAD ───────────────────────────────────────────────────────────────────

	reg.RegisterVAD("rms", func(_ config.ProviderEntry) (vad.Engine, error) {
		return rms.New(), nil
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	name := cfg.Providers.Realtime.Name
	p, err := reg.CreateRealtime(cfg.Providers.Realtime)
	if err != nil {
		return nil, fmt.Errorf("create realtime provider %q: %w", name, err)
	}
	ps.Realtime = p
	slog.Info("provider created", "kind", "realtime", "name", name)

	if name := cfg.Providers.Feedback.Name; name != "" {
		p, err := reg.CreateFeedback(cfg.Providers.Feedback)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "feedback", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create feedback provider %q: %w", name, err)
		} else {
			ps.Feedback = buildFeedbackChain(cfg, reg, p, name)
			slog.Info("provider created", "kind", "feedback", "name", name)
		}
	}

	if name := cfg.Providers.VAD.Name; name != "" {
		p, err := reg.CreateVAD(cfg.Providers.VAD)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "vad", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create vad provider %q: %w", name, err)
		} else {
			ps.VAD = p
			slog.Info("provider created", "kind", "vad", "name", name)
		}
	}

	return ps, nil
}

// buildFeedbackChain wraps the primary feedback provider in a circuit-broken
// failover group when fallbacks are configured. With no fallbacks the breaker
// still shields the primary from hammering a failing backend.
func buildFeedbackChain(cfg *config.Config, reg *config.Registry, primary feedback.Provider, primaryName string) feedback.Provider {
	chain := resilience.NewFeedbackFallback(primary, primaryName, resilience.BreakerConfig{})
	for _, entry := range cfg.Providers.FeedbackFallbacks {
		p, err := reg.CreateFeedback(entry)
		if err != nil {
			slog.Warn("skipping feedback fallback", "name", entry.Name, "err", err)
			continue
		}
		chain.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "feedback-fallback", "name", entry.Name)
	}
	return chain
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Vocaprep — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Realtime", cfg.Providers.Realtime.Name, cfg.Providers.Realtime.Model)
	printProvider("Feedback", cfg.Providers.Feedback.Name, cfg.Providers.Feedback.Model)
	printProvider("VAD", cfg.Providers.VAD.Name, "")
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("║  Storage         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Storage         : %-19s ║\n", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}
