package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"correlationBot/internal/config"
	"correlationBot/internal/finance"
	"correlationBot/internal/logger"
	"correlationBot/internal/openai"
	"correlationBot/internal/risk"
	"correlationBot/internal/server"
	"correlationBot/internal/storage"
	"correlationBot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	log.Info().Str("path", cfg.DBPath).Msg("db: usage log ready")
	store := storage.NewStore(db)

	srv, err := newServer(cfg, newPipeline(cfg, log), store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram: init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

// newAnalyzer picks the analytics capability once, at startup.
func newAnalyzer(cfg *config.Config, log zerolog.Logger) finance.RiskAnalyzer {
	if cfg.RiskEnabled {
		return risk.NewHistorical(log)
	}
	return risk.Unsupported{}
}

func newPipeline(cfg *config.Config, log zerolog.Logger) *finance.Pipeline {
	return finance.NewPipeline(
		finance.NewYahooClient(log, finance.WithRateLimit(cfg.YahooRPS, cfg.FetchWorkers)),
		newAnalyzer(cfg, log),
		finance.PipelineConfig{
			Fetch:         finance.FetchOptions{Workers: cfg.FetchWorkers, Timeout: cfg.FetchTimeout},
			DefaultWindow: cfg.DefaultWindow,
			Confidence:    cfg.RiskConfidence,
		},
		log,
	)
}

// newServer mounts the HTTP API and, when a token is configured, the Telegram webhook.
func newServer(cfg *config.Config, pipeline *finance.Pipeline, store *storage.Store, log zerolog.Logger) (*server.Server, error) {
	defaults := finance.RequestDefaults{
		Window:       cfg.DefaultWindow,
		LookbackDays: cfg.DefaultLookbackDays,
		RiskFreeRate: cfg.RiskFreeRate,
	}

	var webhook http.HandlerFunc
	if cfg.TelegramEnabled() {
		deps := telegram.Deps{Runner: pipeline, Store: store, Defaults: defaults}
		if cfg.OpenAIKey != "" {
			deps.Commenter = openai.NewCommentator(cfg.OpenAIKey)
		}
		tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps, log)
		if err != nil {
			return nil, err
		}
		webhook = tg.WebhookHandler
	} else {
		log.Info().Msg("telegram: no token configured, bot disabled")
	}

	return server.New(pipeline, server.Options{
		Defaults:       defaults,
		Webhook:        webhook,
		Store:          store,
		AllowedOrigins: cfg.CORSOrigins,
	}, log), nil
}
