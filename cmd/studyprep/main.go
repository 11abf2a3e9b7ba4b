package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/config"
)

var (
	configFile string
	userID     string
)

func main() {
	rootCommand := newRootCommand()
	if err := rootCommand.Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
	os.Exit(0)
}

func newRootCommand() *cobra.Command {
	var debugMode bool
	rootCommand := &cobra.Command{
		Use:           "studyprep",
		Short:         "Spaced-repetition reviews and timed practice exams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	rootCommand.PersistentFlags().StringVar(&userID, "user", defaultUser(), "learner the reviews and sessions belong to")

	rootCommand.AddCommand(
		newReviewCommand(),
		newFlashcardCommand(),
		newExamCommand(),
		newContentCommand(),
		newMigrateCommand(),
	)
	return rootCommand
}

// setupLogger configures the default logger based on debug mode
func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}

func defaultUser() string {
	if u := os.Getenv("STUDYPREP_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// runWithServices loads the configuration, builds the services and runs fn until it returns
// or the process is interrupted.
func runWithServices(
	ctx context.Context,
	fn func(ctx context.Context, cfg *config.Config, services *bootstrap.Services) error,
) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := bootstrap.New()
	return app.Run(ctx, func(ctx context.Context) error {
		services, err := bootstrap.NewServices(app, cfg, clock.System{})
		if err != nil {
			return err
		}
		return fn(ctx, cfg, services)
	})
}
