// Command dealbot is the main entry point for the deal bot: a Discord
// assistant with Attio CRM tool access, article summarization, and a daily
// deadline reminder.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mpreiss/dealbot/internal/agent"
	"github.com/mpreiss/dealbot/internal/article"
	"github.com/mpreiss/dealbot/internal/chat"
	"github.com/mpreiss/dealbot/internal/config"
	"github.com/mpreiss/dealbot/internal/crm"
	"github.com/mpreiss/dealbot/internal/observe"
	"github.com/mpreiss/dealbot/internal/reminder"
	"github.com/mpreiss/dealbot/pkg/provider/llm"
	"github.com/mpreiss/dealbot/pkg/provider/llm/anyllm"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "dealbot: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "dealbot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("dealbot starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "dealbot"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── LLM provider (optional) ───────────────────────────────────────────────
	provider, err := buildLLMProvider(cfg.LLM)
	if err != nil {
		slog.Error("failed to create LLM provider", "name", cfg.LLM.Name, "err", err)
		return 1
	}

	// ── CRM tool executor (optional) ──────────────────────────────────────────
	var executor *crm.Executor
	if cfg.CRM.APIKey != "" {
		var opts []crm.Option
		if cfg.CRM.BaseURL != "" {
			opts = append(opts, crm.WithBaseURL(cfg.CRM.BaseURL))
		}
		client, err := crm.NewClient(cfg.CRM.APIKey, opts...)
		if err != nil {
			slog.Error("failed to create CRM client", "err", err)
			return 1
		}
		executor = crm.NewExecutor(client)
		slog.Info("CRM tools enabled", "tools", len(executor.Catalog()))
	}

	// ── Deadlines and timezone ────────────────────────────────────────────────
	loc, err := time.LoadLocation(cfg.Reminder.Timezone)
	if err != nil {
		slog.Error("invalid timezone", "timezone", cfg.Reminder.Timezone, "err", err)
		return 1
	}
	deadlines, err := parseDeadlines(cfg.Reminder.Deadlines)
	if err != nil {
		slog.Error("invalid deadline configuration", "err", err)
		return 1
	}

	// ── Discord gateway ───────────────────────────────────────────────────────
	bot, err := chat.New(ctx, chat.Config{
		Token:     cfg.Discord.Token,
		ChannelID: cfg.Discord.ChannelID,
	})
	if err != nil {
		slog.Error("failed to connect to Discord", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord close error", "err", err)
		}
	}()

	// ── Conversation agent ────────────────────────────────────────────────────
	agentOpts := []agent.Option{
		agent.WithDeadlines(deadlines),
	}
	if executor != nil {
		agentOpts = append(agentOpts, agent.WithExecutor(executor))
	}
	if cfg.Article.UserAgent != "" {
		agentOpts = append(agentOpts, agent.WithFetcher(article.NewFetcher(article.WithUserAgent(cfg.Article.UserAgent))))
	}
	a := agent.New(bot, provider, agentOpts...)
	bot.OnMention(a.HandleMention)

	// ── Run group ─────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(gctx)
	})

	// ── Daily reminder (optional) ─────────────────────────────────────────────
	if cfg.Discord.ChannelID != "" {
		scheduler, cleanup, err := buildScheduler(gctx, cfg, bot, provider, deadlines, loc)
		if err != nil {
			slog.Error("failed to set up reminder scheduler", "err", err)
			return 1
		}
		defer cleanup()

		if err := scheduler.CheckMissed(gctx, time.Now()); err != nil {
			slog.Error("missed-reminder recovery failed", "err", err)
		}
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	// ── Metrics endpoint (optional) ───────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Server.MetricsAddr)
		})
	}

	slog.Info("dealbot ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildLLMProvider constructs the completion backend from the config entry.
// Returns (nil, nil) when no provider is configured; the agent then answers
// mentions with a configuration notice.
func buildLLMProvider(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "" {
		return nil, nil
	}
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	p, err := anyllm.New(entry.Name, entry.Model, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("LLM provider created", "name", entry.Name, "model", entry.Model)
	return p, nil
}

// buildScheduler wires the quote source, the sent-today ledger, and the
// scheduler itself. The returned cleanup closes the ledger's database pool
// when one was opened.
func buildScheduler(ctx context.Context, cfg *config.Config, bot *chat.Bot, provider llm.Provider, deadlines []reminder.Deadline, loc *time.Location) (*reminder.Scheduler, func(), error) {
	var quotes reminder.QuoteSource = reminder.DeterministicSource{}
	if cfg.Reminder.Quotes == config.QuoteGenerated {
		quotes = reminder.GeneratedSource{Provider: provider}
	}

	var ledger reminder.Ledger
	cleanup := func() {}
	if cfg.Reminder.PostgresDSN != "" {
		pg, err := reminder.NewPGLedger(ctx, cfg.Reminder.PostgresDSN, loc)
		if err != nil {
			return nil, nil, err
		}
		ledger = pg
		cleanup = pg.Close
		slog.Info("reminder ledger: postgres")
	} else {
		ledger = reminder.NewHistoryLedger(bot, cfg.Discord.ChannelID, loc)
		slog.Info("reminder ledger: channel history scan")
	}

	scheduler := reminder.NewScheduler(bot, cfg.Discord.ChannelID, deadlines, quotes, ledger, loc,
		reminder.WithHour(cfg.Reminder.Hour),
		reminder.WithCutoffHour(cfg.Reminder.CutoffHour),
	)
	return scheduler, cleanup, nil
}

// parseDeadlines converts the validated config entries into domain deadlines.
func parseDeadlines(entries []config.DeadlineConfig) ([]reminder.Deadline, error) {
	deadlines := make([]reminder.Deadline, 0, len(entries))
	for _, e := range entries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return nil, fmt.Errorf("deadline %q: %w", e.Name, err)
		}
		deadlines = append(deadlines, reminder.Deadline{Name: e.Name, Date: date})
	}
	return deadlines, nil
}

// serveMetrics runs the Prometheus scrape endpoint until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
