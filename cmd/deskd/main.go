// Command deskd runs the support-ticket triage daemon: REST API,
// messaging connectors, and scheduled metrics export around a single
// ticket-processing pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deskd-io/deskd/internal/agent"
	apiPkg "github.com/deskd-io/deskd/internal/api"
	"github.com/deskd-io/deskd/internal/config"
	"github.com/deskd-io/deskd/internal/connector"
	slackconn "github.com/deskd-io/deskd/internal/connector/slack"
	"github.com/deskd-io/deskd/internal/connector/telegram"
	"github.com/deskd-io/deskd/internal/guardrail"
	"github.com/deskd-io/deskd/internal/logbuf"
	"github.com/deskd-io/deskd/internal/metrics"
	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/internal/scheduler"
	"github.com/deskd-io/deskd/internal/search"
	"github.com/deskd-io/deskd/internal/workflow"
)

const retryMaxElapsed = 30 * time.Second

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logRing := logbuf.NewRing(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewTeeHandler(jsonHandler, logRing))

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("deskd starting", "id", cfg.Daemon.ID, "model", cfg.Provider.Model)

	// Completion provider with retry.
	var prov provider.Provider
	switch cfg.Provider.Type {
	case "anthropic":
		var opts []provider.AnthropicOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.Model != "" {
			opts = append(opts, provider.WithAnthropicModel(cfg.Provider.Model))
		}
		prov = provider.NewAnthropic(cfg.Provider.APIKey, opts...)
	default: // "openai" or empty
		var opts []provider.OpenAIOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.Model != "" {
			opts = append(opts, provider.WithModel(cfg.Provider.Model))
		}
		prov = provider.NewOpenAI(cfg.Provider.APIKey, opts...)
	}
	prov = provider.NewRetry(prov, retryMaxElapsed)
	logger.Info("provider initialized", "name", prov.Name())

	searcher := search.New(cfg.Search.BraveAPIKey)
	if cfg.Search.BraveAPIKey == "" {
		logger.Warn("no search API key, responses will not use web context")
	}

	// Metrics tracker, optionally backed by SQLite.
	trackerOpts := []metrics.TrackerOption{metrics.WithLogger(logger.With("component", "metrics"))}
	if cfg.Metrics.Persist {
		os.MkdirAll(cfg.Daemon.DataDir, 0o755)
		dbPath := cfg.Daemon.DataDir + "/interactions.db"
		store, err := metrics.NewSQLiteStore(dbPath)
		if err != nil {
			logger.Error("failed to open interaction store", "path", dbPath, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		trackerOpts = append(trackerOpts, metrics.WithStore(store))
	}
	tracker := metrics.NewTracker(trackerOpts...)
	if cfg.Metrics.Persist {
		if err := tracker.Hydrate(); err != nil {
			logger.Warn("could not hydrate metrics from store", "error", err)
		} else {
			logger.Info("metrics hydrated", "interactions", tracker.Count())
		}
	}

	orch, err := workflow.New(workflow.Params{
		Classifier:    agent.NewClassifier(prov),
		Technical:     agent.NewTechnical(prov, searcher),
		Billing:       agent.NewBilling(prov),
		General:       agent.NewGeneral(prov, searcher),
		ContentFilter: guardrail.NewContentFilter(cfg.Guardrails.ProhibitedTopics),
		Validator:     guardrail.NewResponseValidator(cfg.Guardrails.MinResponseLength, cfg.Guardrails.MaxResponseLength),
		Escalation:    guardrail.NewEscalationChecker(cfg.Guardrails.EscalationTriggers, cfg.Guardrails.ConfidenceThreshold),
		Tracker:       tracker,
		Logger:        logger.With("component", "workflow"),
	})
	if err != nil {
		logger.Error("failed to build workflow", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connectors share one handler: process the ticket, reply with the
	// pipeline's response.
	ticketHandler := func(ctx context.Context, t connector.InboundTicket) (string, error) {
		result, err := orch.ProcessTicket(ctx, t.Text)
		if err != nil {
			return "", err
		}
		logger.Info("connector ticket processed",
			"source", t.Source,
			"ticket", result.TicketID,
			"category", result.Category,
			"escalated", result.Escalated,
		)
		return result.Response, nil
	}

	if cfg.Connectors.Telegram != nil {
		tg, err := telegram.New(telegram.Config{
			Token:     cfg.Connectors.Telegram.Token,
			AllowFrom: cfg.Connectors.Telegram.AllowFrom,
		}, ticketHandler, logger.With("connector", "telegram"))
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "telegram", func() { tg.Start(ctx) })
	}

	if cfg.Connectors.Slack != nil {
		sl, err := slackconn.New(slackconn.Config{
			BotToken: cfg.Connectors.Slack.BotToken,
			AppToken: cfg.Connectors.Slack.AppToken,
			Channels: cfg.Connectors.Slack.Channels,
		}, ticketHandler, logger.With("connector", "slack"))
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "slack", func() { sl.Start(ctx) })
	}

	if cfg.Metrics.ExportSchedule != "" {
		sched := scheduler.New(logger.With("component", "scheduler"))
		err := sched.Add("metrics-export", cfg.Metrics.ExportSchedule, func(context.Context) error {
			return orch.ExportMetrics(cfg.Metrics.ExportPath)
		})
		if err != nil {
			logger.Error("failed to schedule metrics export", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "scheduler", func() { sched.Start(ctx) })
	}

	apiSrv := apiPkg.NewServer(orch, apiPkg.Config{
		Host:       cfg.API.Host,
		Port:       cfg.API.Port,
		Key:        cfg.API.Key,
		ExportPath: cfg.Metrics.ExportPath,
	}, logger.With("component", "api"), logRing)
	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	// Session-end export mirrors the scheduled one so a short-lived
	// session still leaves a metrics document behind.
	if tracker.Count() > 0 {
		if err := orch.ExportMetrics(cfg.Metrics.ExportPath); err != nil {
			logger.Error("final metrics export failed", "error", err)
		} else {
			logger.Info("metrics exported", "path", cfg.Metrics.ExportPath)
		}
	}
	logger.Info("deskd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
