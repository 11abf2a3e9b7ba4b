package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/database"
	"github.com/at-ishikawa/studyprep/internal/server"
	"github.com/at-ishikawa/studyprep/schemas"
)

var configFile string

func main() {
	var (
		debugMode      bool
		migrateOnStart bool
	)
	rootCmd := &cobra.Command{
		Use:           "studyprep-server",
		Short:         "Review and assessment HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return run(cmd.Context(), migrateOnStart)
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	rootCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending database migrations before serving")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	})))
}

func run(ctx context.Context, migrateOnStart bool) error {
	app := bootstrap.New()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	return app.Run(ctx, func(ctx context.Context) error {
		services, err := bootstrap.NewServices(app, cfg, clock.System{})
		if err != nil {
			return err
		}
		if migrateOnStart {
			if _, err := database.Migrate(ctx, services.DB, schemas.Migrations, "migrations"); err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: newHandler(cfg, services, slog.Default()),
		}
		app.AddShutdownHook("http server", srv.Shutdown)

		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

// newHandler mounts both services behind the shared interceptors, h2c and CORS.
func newHandler(cfg *config.Config, services *bootstrap.Services, logger *slog.Logger) http.Handler {
	interceptors := connect.WithInterceptors(
		server.NewLoggingInterceptor(logger),
		server.NewIdentityInterceptor(),
		server.NewRateLimitInterceptor(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
	)

	mux := http.NewServeMux()
	mux.Handle(server.NewReviewServiceHandler(
		server.NewReviewHandler(services.Learning, services.Queue, services.Clock, cfg.Review.DailyLimit),
		interceptors,
	))
	mux.Handle(server.NewAssessmentServiceHandler(
		server.NewAssessmentHandler(services.Assessment, services.Clock),
		interceptors,
	))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := services.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return corsHandler(cfg.Server.CORS.AllowedOrigins).Handler(h2c.NewHandler(mux, &http2.Server{}))
}

func corsHandler(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms", server.UserIDHeader},
		MaxAge:         3600,
	})
}
