package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/infrastructure/llm"
	"github.com/matthewd-so/The-Game-Gazette/internal/infrastructure/rawg"
	"github.com/matthewd-so/The-Game-Gazette/internal/infrastructure/reddit"
	"github.com/matthewd-so/The-Game-Gazette/internal/infrastructure/rss"
	"github.com/matthewd-so/The-Game-Gazette/internal/infrastructure/scheduler"
	"github.com/matthewd-so/The-Game-Gazette/internal/infrastructure/storage"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
	"github.com/matthewd-so/The-Game-Gazette/internal/usecase"
)

// Application wires configuration to the pipeline and its lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	pipeline *usecase.Pipeline
	driver   ports.Scheduler
}

// New connects the data store and builds the pipeline with all adapters.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Discussions: reddit.New(cfg.Reddit, nil, logger.With("component", "source.reddit")),
		News:        rss.New(cfg.Feeds, nil, logger.With("component", "source.rss")),
		Catalog:     rawg.New(cfg.Catalog, nil, logger.With("component", "source.rawg")),
		Generator:   llm.New(cfg.LLM),
		Articles:    storage.NewArticleRepository(pool),
		Runs:        storage.NewRunLogRepository(pool),
		Lock:        storage.NewAdvisoryLock(pool),
		Logger:      logger.With("component", "pipeline"),
		Pipeline:    cfg.Pipeline,
		LLM:         cfg.LLM,
	})

	return &Application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		pipeline: pipeline,
		driver:   scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
	}, nil
}

// Run executes a single pipeline pass, or blocks running on schedule when
// the scheduler is enabled.
func (a *Application) Run(ctx context.Context) error {
	if !a.cfg.Scheduler.Enabled {
		return a.runOnce(ctx)
	}

	job := func(trigger time.Time) {
		a.logger.Info("scheduled run triggered", "at", trigger)
		if err := a.runOnce(ctx); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	}

	if err := a.driver.Start(ctx, job); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.driver.Stop(stopCtx)
}

func (a *Application) runOnce(ctx context.Context) error {
	result, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("pipeline result",
		"articles_generated", result.ArticlesGenerated,
		"prompt_tokens", result.TotalPromptTokens,
		"completion_tokens", result.TotalCompletionTokens,
		"errors", len(result.Errors))
	return nil
}

// Close releases the database pool.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
