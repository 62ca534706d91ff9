package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"carbonseed/internal/alerting"
	"carbonseed/internal/api"
	"carbonseed/internal/auth"
	"carbonseed/internal/bus"
	"carbonseed/internal/cache"
	"carbonseed/internal/config"
	"carbonseed/internal/db"
	"carbonseed/internal/ingest"
	"carbonseed/internal/mqttingest"
	"carbonseed/internal/notify"
	"carbonseed/internal/storage"
	"carbonseed/internal/telemetry"
	"carbonseed/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "carbonseed",
		Short:         "Industrial sensor ingestion and monitoring backend",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			pool, err := db.OpenPool(ctx, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the initial admin account and demo factory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			database, err := db.Connect(ctx, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close(database)

			return db.Seed(ctx, database)
		},
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and ingest bridges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTrace, traceMiddleware, err := telemetry.Init(ctx, version.Name, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTrace(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	pool, err := db.OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := db.Seed(ctx, database); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	var latest *cache.Latest
	if cfg.RedisAddr != "" {
		latest, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer latest.Close()
	} else {
		log.Warn().Msg("REDIS_ADDR not set, latest-reading cache disabled")
	}

	var events *bus.Bus
	if cfg.NATSURL != "" {
		events, err = bus.New(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer events.Close()
	} else {
		log.Warn().Msg("NATS_URL not set, event publishing disabled")
	}

	store, err := storage.NewClient(ctx, storage.Options{
		Endpoint:   cfg.S3Endpoint,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Region:     cfg.S3Region,
		DisableTLS: cfg.S3DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connect object storage: %w", err)
	}
	if store == nil {
		log.Warn().Msg("S3_ENDPOINT not set, report downloads disabled")
	}

	rules, err := alerting.LoadRules(cfg.AlertRulesFile)
	if err != nil {
		return fmt.Errorf("load alert rules: %w", err)
	}
	engine := alerting.NewEngine(rules)

	ingestSvc, err := ingest.NewService(database, engine, latest, events, log.Logger)
	if err != nil {
		return fmt.Errorf("build ingest service: %w", err)
	}

	tokens, err := auth.NewTokens(cfg.JWTSigningKey, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("build token issuer: %w", err)
	}

	app, err := api.New(
		&api.Store{DB: pool, ORM: database, S3: store, Bus: events, Cache: latest},
		tokens,
		ingestSvc,
		api.Config{
			ReportBucket:    cfg.ReportBucket,
			HeartbeatWindow: cfg.HeartbeatWindow,
			AllowedOrigins:  cfg.AllowedOrigins,
		},
		log.Logger,
	)
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	if cfg.MQTTBroker != "" {
		bridge, err := mqttingest.New(mqttingest.Options{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, ingestSvc, log.Logger)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("start mqtt bridge: %w", err)
		}
	}

	if cfg.AlertWebhook != "" && events != nil {
		hook := notify.NewWebhook(cfg.AlertWebhook, log.Logger)
		sub, err := hook.Start(ctx, events)
		if err != nil {
			return fmt.Errorf("start alert webhook: %w", err)
		}
		defer sub.Close()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Routes(traceMiddleware),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version.Version).Msg("starting carbonseed-api")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
