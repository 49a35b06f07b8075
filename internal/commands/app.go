package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/smart-finance/internal/advisor"
	"gitlab.com/yelinaung/smart-finance/internal/config"
	"gitlab.com/yelinaung/smart-finance/internal/database"
	"gitlab.com/yelinaung/smart-finance/internal/exchange"
	"gitlab.com/yelinaung/smart-finance/internal/extraction"
	"gitlab.com/yelinaung/smart-finance/internal/gemini"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/report"
	"gitlab.com/yelinaung/smart-finance/internal/repository"
	"gitlab.com/yelinaung/smart-finance/internal/store"
	"gitlab.com/yelinaung/smart-finance/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const telemetryFlushTimeout = 5 * time.Second

// needs lists what a command requires beyond storage.
type needs struct {
	ai       bool
	telegram bool
	// daemon commands keep logging on stdout; one-shot commands log to stderr.
	daemon bool
}

// app is the wired application for one command invocation.
type app struct {
	cfg     *config.Config
	ledger  *ledger.Service
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// run wires the application, runs fn and tears everything down. The
// context is cancelled on SIGINT or SIGTERM.
func (d deps) run(cmd *cobra.Command, n needs, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := d.open(ctx, cmd, n)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func (d deps) open(ctx context.Context, cmd *cobra.Command, n needs) (*app, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, err
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if !n.daemon {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	if err := logger.InitHashSalt(cfg.LogHashSalt); err != nil {
		return nil, err
	}

	if n.ai {
		if err := cfg.RequireGemini(); err != nil {
			return nil, err
		}
	}
	if n.telegram {
		if err := cfg.RequireTelegram(); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg}
	report.SetBaseCurrency(cfg.BaseCurrency)

	shutdown, err := telemetry.Setup(ctx, telemetry.OptionsFromConfig(cfg, Version))
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	a.closers = append(a.closers, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	})

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeBackend)

	st := store.New(backend)
	st.Load(ctx)

	var (
		ext ledger.Extractor
		adv ledger.Advisor
	)
	if cfg.GeminiAPIKey != "" {
		client, err := d.newAI(ctx, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		ext = newGateway(client, cfg)
		adv = advisor.New(client)
	} else {
		logger.Log.Warn().Msg("GEMINI_API_KEY not set, extraction and advice are disabled")
	}

	a.ledger = ledger.New(st, ext, adv)
	return a, nil
}

// openBackend opens the configured persistence backend. The returned
// func releases it.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Log.Warn().Msg("Using in-memory storage, expenses will not survive a restart")
		return store.NewMemoryBackend(), func() {}, nil

	case config.StoragePostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Log.Info().Msg("Database initialized successfully")
		repo := repository.NewPGDocumentRepository(pool)
		return store.NewDocumentBackend(repo, cfg.StorageKey), pool.Close, nil

	default:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunSQLiteMigrations(cfg.SQLitePath); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Log.Debug().Str("path", cfg.SQLitePath).Msg("SQLite database initialized")
		repo := repository.NewSQLiteDocumentRepository(db)
		return store.NewDocumentBackend(repo, cfg.StorageKey), func() { _ = db.Close() }, nil
	}
}

func newGeminiClient(ctx context.Context, cfg *config.Config) (AIClient, error) {
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey,
		gemini.WithModel(cfg.GeminiModel),
		gemini.WithTimeouts(gemini.Timeouts{
			Extraction: cfg.ExtractionTimeout,
			Advice:     cfg.AdviceTimeout,
			Voice:      cfg.VoiceTimeout,
		}),
		gemini.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newGateway(parser extraction.Parser, cfg *config.Config) *extraction.Gateway {
	opts := []extraction.Option{
		extraction.WithBaseCurrency(cfg.BaseCurrency),
		extraction.WithVoiceLanguage(cfg.VoiceLanguage),
	}
	if cfg.ExchangeRateEnabled {
		rates := exchange.NewFrankfurterClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateTimeout)
		opts = append(opts, extraction.WithConverter(exchange.NewCachedService(rates, cfg.ExchangeRateCacheTTL)))
	}
	return extraction.NewGateway(parser, opts...)
}
