package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/config"
	"github.com/aliuyar1234/printshop/internal/db"
	"github.com/aliuyar1234/printshop/internal/live"
	"github.com/aliuyar1234/printshop/internal/mail"
	"github.com/aliuyar1234/printshop/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the application state
type App struct {
	Config   *config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Services *Services
	Metrics  *metrics.Metrics
	Hub      *live.Hub
	Bus      live.Bus
	Mail     *mail.Worker

	redis  *redis.Client
	server *http.Server
	cancel context.CancelFunc
}

// New creates and initializes a new application instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize logger
	setupLogger(cfg.LogLevel, cfg.IsDev())

	log.Info().Msg("Initializing printshop application")
	log.Info().Interface("config", cfg.RedactedValues()).Msg("Configuration loaded")

	// Connect to database
	log.Info().Msg("Connecting to database...")
	pool, err := db.Connect(ctx, cfg.DBDSN, db.DefaultPoolSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("Database connection established")

	a := &App{Config: cfg, DB: pool}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}

	log.Info().Msg("Application initialized successfully")
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	// Run migrations if in dev mode
	if cfg.IsDev() {
		log.Info().Msg("Development mode: running migrations automatically")
		if err := db.RunMigrations(ctx, a.DB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		log.Info().Msg("Production mode: migrations must be run manually")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.Metrics = m

	// Change bus: Redis fans out across instances, memory serves one.
	if cfg.RedisURL != "" {
		client, err := live.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = client
		a.Bus = live.NewRedisBus(client)
		log.Info().Msg("Live updates use Redis")
	} else {
		a.Bus = live.NewMemoryBus()
		log.Info().Msg("Live updates use the in-process bus")
	}
	a.Hub = live.NewHub(live.WithGauge(m.LiveSubscriptions))

	a.Services = NewServices(a.DB, cfg, a.Bus, m)

	var sender mail.Sender = mail.LogSender{}
	if cfg.SESEnabled() {
		ses, err := mail.NewSESSender(ctx, cfg.SESRegion, cfg.MailFrom)
		if err != nil {
			return fmt.Errorf("failed to configure SES: %w", err)
		}
		sender = ses
		log.Info().Str("region", cfg.SESRegion).Msg("Mail delivery uses SES")
	} else {
		log.Warn().Msg("SES not configured: mail is logged, not delivered")
	}
	a.Mail = mail.NewWorker(a.DB, sender, m)

	var oidcProvider *auth.OIDC
	if cfg.OIDCEnabled() {
		oidcProvider, err = auth.NewOIDC(ctx, auth.OIDCConfig{
			Issuer:       cfg.OIDCIssuer,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL(),
		})
		if err != nil {
			return fmt.Errorf("failed to configure OIDC: %w", err)
		}
	}

	liveHandler := live.NewHandler(a.Hub, a.Services.LiveSources(), live.DefaultConfig(), []string{cfg.BaseURL})

	a.Router = NewRouter(RouterDeps{
		Config:   cfg,
		DB:       a.DB,
		Services: a.Services,
		Metrics:  m,
		Live:     liveHandler,
		OIDC:     oidcProvider,
	})
	return nil
}

// Start starts the HTTP server and the live hub. It blocks until the server stops.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		if err := a.Hub.Run(ctx, a.Bus); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Live hub stopped")
		}
	}()

	addr := a.Config.HTTPAddr
	log.Info().Str("addr", addr).Msg("Starting HTTP server")

	// No WriteTimeout: live subscriptions hold their connection open.
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests, ends live subscriptions and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down application")

	if a.cancel != nil {
		a.cancel()
	}
	if a.Hub != nil {
		n := a.Hub.CloseAll()
		log.Info().Int("subscriptions", n).Msg("Closed live subscriptions")
	}

	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	a.Close()
	return err
}

// Close releases the database pool and the Redis client.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
		a.redis = nil
	}
	if a.DB != nil {
		log.Info().Msg("Closing database connection")
		a.DB.Close()
		a.DB = nil
	}
}

// setupLogger configures the global logger
func setupLogger(level string, pretty bool) {
	// Set up pretty console output for development
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Set log level
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logger configured")
}
