package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/dentassist/internal/bus"
	"github.com/nextlevelbuilder/dentassist/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/dentassist/internal/config"
	"github.com/nextlevelbuilder/dentassist/internal/convo"
	"github.com/nextlevelbuilder/dentassist/internal/health"
	"github.com/nextlevelbuilder/dentassist/internal/pipeline"
	"github.com/nextlevelbuilder/dentassist/internal/providers"
	"github.com/nextlevelbuilder/dentassist/internal/store"
	"github.com/nextlevelbuilder/dentassist/internal/store/pg"
)

func runServe() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Durable conversation state: Postgres when a DSN is configured,
	// in-process memory otherwise.
	var convStore store.ConversationStore
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		db, err := pg.OpenDB(dsn)
		if err != nil {
			slog.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		convStore = pg.NewConversationStoreWithLimit(db, cfg.Pipeline.HistoryLimit)
		slog.Info("using postgres conversation store")
	} else {
		convStore = store.NewMemoryStore(cfg.Pipeline.HistoryLimit)
		slog.Info("using in-memory conversation store")
	}

	msgBus := bus.New()

	channel, err := whatsapp.New(cfg.WhatsApp, msgBus)
	if err != nil {
		slog.Error("failed to create whatsapp channel", "error", err)
		os.Exit(1)
	}

	provider := providers.NewOpenAIProvider("openai", cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.OpenAI.Model)
	transcriber := providers.NewWhisperTranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.OpenAI.TranscribeModel, "es")

	pipe, err := pipeline.New(pipeline.Options{
		Config:      cfg,
		Registry:    convo.NewMemoryRegistry(),
		Store:       convStore,
		Provider:    provider,
		Transcriber: transcriber,
		Channel:     channel,
		Router:      msgBus,
	})
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	healthSrv := health.NewServer(cfg.Health.Port, health.Probes{
		ChannelRunning: channel.IsRunning,
		QuotaUsed:      pipe.QuotaUsed,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := channel.Start(ctx); err != nil {
		slog.Error("failed to start whatsapp channel", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipe.Serve(gctx) })
	g.Go(func() error { return healthSrv.Start(gctx) })

	slog.Info("dentassist running",
		"version", Version,
		"bridge_url", cfg.WhatsApp.BridgeURL,
		"health_port", cfg.Health.Port)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("assistant stopped", "error", err)
		os.Exit(1)
	}

	channel.Stop(context.Background())
	slog.Info("shutdown complete")
}
