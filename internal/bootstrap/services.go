package bootstrap

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/content"
	"github.com/at-ishikawa/studyprep/internal/database"
	"github.com/at-ishikawa/studyprep/internal/learning"
	"github.com/at-ishikawa/studyprep/internal/review"
)

const (
	providerDatabase = "database"
	providerREST     = "rest"
)

// Services holds the engine components shared by the CLI and the server.
type Services struct {
	DB         *sqlx.DB
	Clock      clock.Clock
	Content    content.Provider
	Learning   *learning.Service
	Queue      *review.Builder
	Assessment *assessment.Service
}

// NewServices opens the database, selects the content provider and builds the services.
// Connections are closed by the app's shutdown hooks.
func NewServices(app *App, cfg *config.Config, c clock.Clock) (*Services, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	app.AddCloser("database", db)

	provider, err := newProvider(app, cfg.Content, db)
	if err != nil {
		return nil, err
	}

	items := learning.NewDBItemRepository(db)
	learningService := learning.NewService(items, c)
	return &Services{
		DB:       db,
		Clock:    c,
		Content:  provider,
		Learning: learningService,
		Queue:    review.NewBuilder(items),
		Assessment: assessment.NewService(
			assessment.NewDBStore(db),
			provider,
			c,
			assessment.WithTimeLimitDefaults(cfg.Assessment.MinimumMinutes, cfg.Assessment.MinutesPerItem),
			assessment.WithDeadlineEnforcement(cfg.Assessment.EnforceDeadline),
			assessment.WithOutcomeRecorder(learningService),
		),
	}, nil
}

func newProvider(app *App, cfg config.ContentConfig, db *sqlx.DB) (content.Provider, error) {
	switch cfg.Provider {
	case providerDatabase, "":
		return content.NewDBProvider(db), nil
	case providerREST:
		provider := content.NewRESTProvider(
			cfg.BaseURL,
			cfg.APIKey,
			time.Duration(cfg.TimeoutSeconds)*time.Second,
			cfg.MaxRetries,
		)
		app.AddCloser("content client", provider)
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported content provider %q", cfg.Provider)
	}
}

// RunnerConfig derives the assessment runner settings from cfg.
func RunnerConfig(cfg config.AssessmentConfig) assessment.RunnerConfig {
	return assessment.RunnerConfig{
		AutosaveInterval: time.Duration(cfg.AutosaveIntervalSeconds) * time.Second,
	}
}
