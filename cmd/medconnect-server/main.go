package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medconnect/medconnect/internal/config"
	"github.com/medconnect/medconnect/internal/domain/symptomcheck"
	"github.com/medconnect/medconnect/internal/platform/db"
	"github.com/medconnect/medconnect/internal/platform/middleware"
	"github.com/medconnect/medconnect/internal/platform/openapi"
	"github.com/medconnect/medconnect/internal/platform/tracing"
	"github.com/medconnect/medconnect/migrations"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "medconnect-server",
		Short:        "MedConnect symptom checker API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(kbCmd())
	root.AddCommand(predictCmd())
	return root
}

// newLogger writes JSON, or console output in development. Production drops
// debug events.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	level := zerolog.DebugLevel
	if cfg.IsProduction() {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, db.PoolConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		ConnectTimeout: 10 * time.Second,
		Schema:         cfg.DBSchema,
	})
}

// loadService builds the symptom-check service from the configured source.
// The pool is nil unless DATABASE_URL is set; callers close it.
func loadService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*symptomcheck.Service, *pgxpool.Pool, error) {
	var (
		pool *pgxpool.Pool
		repo symptomcheck.KnowledgeBaseRepository
		err  error
	)
	if cfg.DatabaseURL != "" {
		pool, err = openPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		repo = symptomcheck.NewKnowledgeBaseRepoPG(pool)
		logger.Info().Msg("connected to database")
	}

	kb, err := symptomcheck.LoadKnowledgeBase(ctx, cfg.KnowledgeBaseSource, cfg.KnowledgeBasePath, repo)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, fmt.Errorf("load knowledge base: %w", err)
	}
	logger.Info().
		Str("source", cfg.KnowledgeBaseSource).
		Int("conditions", kb.Len()).
		Int("symptoms", len(kb.Vocabulary())).
		Msg("knowledge base loaded")

	predictor := &symptomcheck.Predictor{
		Threshold: cfg.PredictionThreshold,
		Limit:     cfg.PredictionMaxResults,
	}
	return symptomcheck.NewService(kb, predictor), pool, nil
}

// newServer wires middleware and routes. dbCheck may be nil when no
// database is configured.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *symptomcheck.Service, dbCheck db.Pinger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Trace(nil))
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.RequestIDHeader, "If-None-Match"},
		ExposeHeaders: []string{middleware.RequestIDHeader, "ETag"},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if dbCheck != nil {
		e.GET("/health/db", db.HealthHandler(dbCheck))
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	symptomcheck.NewHandler(svc).RegisterRoutes(apiV1)
	openapi.NewGenerator(version, "").RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "medconnect-server",
		Environment: cfg.Env,
		Version:     version,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	}

	svc, pool, err := loadService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	var dbCheck db.Pinger
	if pool != nil {
		defer pool.Close()
		dbCheck = pool
	}

	e := newServer(cfg, logger, svc, dbCheck)
	e.Server.ReadHeaderTimeout = 10 * time.Second

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracing shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator, schema string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			schema := cfg.DBSchema
			if cmd.Flags().Changed("schema") {
				schema, _ = cmd.Flags().GetString("schema")
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return fn(ctx, db.NewMigrator(pool, migrations.FS), schema)
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
			count, err := m.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) to schema %s.\n", count, schema)
			return nil
		}),
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations (defaults to DB_SCHEMA)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: withMigrator(func(ctx context.Context, m *db.Migrator, schema string) error {
			statuses, err := m.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					appliedAt = s.AppliedAt.Format(time.DateTime)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
			}
			return w.Flush()
		}),
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations (defaults to DB_SCHEMA)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect and manage the symptom knowledge base",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			var (
				kb  *symptomcheck.KnowledgeBase
				err error
			)
			if file != "" {
				kb, err = symptomcheck.LoadKnowledgeBaseFile(file)
			} else {
				kb, err = symptomcheck.DefaultKnowledgeBase()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d conditions, %d symptoms\n", kb.Len(), len(kb.Vocabulary()))
			return nil
		},
	}
	validateCmd.Flags().String("file", "", "YAML knowledge base (default: the embedded one)")
	cmd.AddCommand(validateCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a YAML knowledge base and store it in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			var (
				kb  *symptomcheck.KnowledgeBase
				err error
			)
			if file != "" {
				kb, err = symptomcheck.LoadKnowledgeBaseFile(file)
			} else {
				kb, err = symptomcheck.DefaultKnowledgeBase()
			}
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := symptomcheck.NewKnowledgeBaseRepoPG(pool).Replace(ctx, kb); err != nil {
				return fmt.Errorf("import knowledge base: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d conditions, %d symptoms\n", kb.Len(), len(kb.Vocabulary()))
			return nil
		},
	}
	importCmd.Flags().String("file", "", "YAML knowledge base (default: the embedded one)")
	cmd.AddCommand(importCmd)

	return cmd
}

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Rank conditions for a set of symptoms",
		Example: `  medconnect-server predict --symptom "Fever" --symptom "Dry cough"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			symptoms, _ := cmd.Flags().GetStringArray("symptom")
			asJSON, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, pool, err := loadService(ctx, cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			a, err := svc.Assess(ctx, symptoms)
			if err != nil {
				return err
			}
			return writeAssessment(cmd.OutOrStdout(), a, asJSON)
		},
	}
	cmd.Flags().StringArray("symptom", nil, "Selected symptom label (repeatable)")
	cmd.Flags().Bool("json", false, "Print the assessment as JSON")
	return cmd
}

func writeAssessment(out io.Writer, a *symptomcheck.Assessment, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	if len(a.Predictions) == 0 {
		fmt.Fprintln(out, a.Message)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONDITION\tCONFIDENCE\tSEVERITY\tURGENCY")
	for _, p := range a.Predictions {
		fmt.Fprintf(w, "%s\t%d%%\t%s\t%s\n", p.Name, p.ConfidencePercent, p.Severity, p.Urgency)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if a.Advisory != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, a.Advisory)
	}
	return nil
}
