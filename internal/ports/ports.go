package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
)

// DiscussionSort selects which community-feed listing to pull.
type DiscussionSort string

const (
	SortHot DiscussionSort = "hot"
	SortTop DiscussionSort = "top"
)

// DiscussionSource pulls community discussion posts. Implementations must
// never fail: transport errors, timeouts, and malformed payloads all yield
// an empty slice so the orchestrator can proceed with partial research.
type DiscussionSource interface {
	FetchPosts(ctx context.Context, sort DiscussionSort, limit int) []domain.DiscussionPost
}

// NewsSource pulls syndicated news headlines. Same never-fail contract as
// DiscussionSource.
type NewsSource interface {
	FetchAll(ctx context.Context) []domain.NewsItem
}

// CatalogWindow selects which catalog listing to pull as research input.
type CatalogWindow string

const (
	WindowTrending    CatalogWindow = "trending"
	WindowNewReleases CatalogWindow = "new_releases"
	WindowUpcoming    CatalogWindow = "upcoming"
	WindowTopRated    CatalogWindow = "top_rated"
)

// GameCatalog resolves game metadata and imagery. FetchGames follows the
// never-fail research contract; Search and ByID may return errors because a
// failed single-game lookup is a recoverable per-story condition that the
// caller handles itself.
type GameCatalog interface {
	FetchGames(ctx context.Context, window CatalogWindow, count int) []domain.CatalogGame
	Search(ctx context.Context, query string, count int) ([]domain.CatalogGame, error)
	ByID(ctx context.Context, id int64) (domain.CatalogGame, error)
}

// GenerationOptions tune a single text-generation call.
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Generation is the model output plus its token-usage counters.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Model            string
}

// TextGenerator is the narrow language-model gateway: one persona prompt,
// one task prompt, generated text back. No retries, no JSON validation;
// both call sites have their own schemas and recovery strategies.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (Generation, error)
}

// ArticleRepository persists enriched drafts and answers the recency guard.
type ArticleRepository interface {
	Insert(ctx context.Context, article domain.ArticleRecord) error
	RecentTitles(ctx context.Context, since time.Time) ([]string, error)
}

// RunLogRepository owns the generation-log rows. Begin creates a running
// row before research starts; Finish applies the single terminal update.
// ReconcileStale marks rows abandoned by a force-killed run as failed.
type RunLogRepository interface {
	Begin(ctx context.Context, startedAt time.Time) (uuid.UUID, error)
	Finish(ctx context.Context, log domain.RunLog) error
	ReconcileStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RunLock serializes pipeline runs. Acquire returns a release func on
// success and an error when another run already holds the lock.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
