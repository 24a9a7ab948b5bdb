package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// ErrNoResearch is the fatal condition of a run that found nothing to work
// with: both the discussion and news sources came back empty. Catalog data
// alone cannot seed an edition.
var ErrNoResearch = errors.New("no research data available from discussion or news sources")

// ErrRunActive reports that another pipeline run holds the run lock.
var ErrRunActive = errors.New("another pipeline run is active")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Discussions ports.DiscussionSource
	News        ports.NewsSource
	Catalog     ports.GameCatalog
	Generator   ports.TextGenerator
	Articles    ports.ArticleRepository
	Runs        ports.RunLogRepository
	Lock        ports.RunLock
	Logger      *slog.Logger
	Pipeline    config.PipelineConfig
	LLM         config.LLMConfig
}

// Pipeline orchestrates one generation run: research fan-out, editorial
// selection, the sequential drafting loop, and the run-log bookkeeping.
type Pipeline struct {
	discussions ports.DiscussionSource
	news        ports.NewsSource
	catalog     ports.GameCatalog
	generator   ports.TextGenerator
	articles    ports.ArticleRepository
	runs        ports.RunLogRepository
	lock        ports.RunLock
	logger      *slog.Logger
	cfg         config.PipelineConfig
	llm         config.LLMConfig
	now         func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		discussions: deps.Discussions,
		news:        deps.News,
		catalog:     deps.Catalog,
		generator:   deps.Generator,
		articles:    deps.Articles,
		runs:        deps.Runs,
		lock:        deps.Lock,
		logger:      logger,
		cfg:         deps.Pipeline,
		llm:         deps.LLM,
		now:         time.Now,
	}
}

// Run executes one end-to-end generation pass. Partial success is success:
// the run completes as long as at least one article was created, with
// per-story failures collected into the result's error list.
func (p *Pipeline) Run(ctx context.Context) (domain.RunResult, error) {
	result := domain.RunResult{}

	if p.lock != nil {
		release, err := p.lock.Acquire(ctx)
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrRunActive, err)
		}
		defer release()
	}

	if reclaimed, err := p.runs.ReconcileStale(ctx, p.cfg.StaleRunThreshold()); err != nil {
		p.logger.Warn("reconcile stale runs", "error", err)
	} else if reclaimed > 0 {
		p.logger.Info("marked stale runs failed", "count", reclaimed)
	}

	startedAt := p.now()
	runID, err := p.runs.Begin(ctx, startedAt)
	if err != nil {
		return result, fmt.Errorf("create run log: %w", err)
	}

	p.logger.Info("run started", "run_id", runID)

	bundle := p.research(ctx)
	p.logger.Info("research complete",
		"discussion_posts", len(bundle.Discussions),
		"news_items", len(bundle.News),
		"catalog_games", len(bundle.Games))

	if bundle.Empty() {
		return p.fail(ctx, runID, startedAt, result, "", ErrNoResearch)
	}

	recentTitles := p.recentTitles(ctx, startedAt)

	selection, err := p.selectStories(ctx, bundle, recentTitles, &result)
	if err != nil {
		return p.fail(ctx, runID, startedAt, result, "", err)
	}

	p.logger.Info("editorial complete", "stories", len(selection.Briefs))

	cache := newGameCache(bundle.Games)
	for _, brief := range selection.Briefs {
		p.logger.Info("drafting story", "headline", brief.Headline, "category", brief.Category)

		if err := p.draftStory(ctx, brief, bundle, cache, &result); err != nil {
			p.logger.Warn("story failed", "game", brief.GameName, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("failed to write article for %q: %v", brief.GameName, err))
			continue
		}
		result.ArticlesGenerated++
	}

	status := domain.RunCompleted
	if result.ArticlesGenerated == 0 && len(result.Errors) > 0 {
		status = domain.RunFailed
	}

	if err := p.finish(ctx, runID, startedAt, status, result, selection.Notes); err != nil {
		p.logger.Error("finish run log", "run_id", runID, "error", err)
	}

	p.logger.Info("run finished",
		"status", status,
		"articles_generated", result.ArticlesGenerated,
		"errors", len(result.Errors))

	return result, nil
}

// research fans the source fetches out concurrently: both discussion
// listings, the news feeds, and one branch per configured catalog window.
// Each branch settles on its own; a failed or slow source contributes an
// empty slice rather than stalling the join.
func (p *Pipeline) research(ctx context.Context) domain.ResearchBundle {
	windows := p.catalogWindows()

	var (
		wg       sync.WaitGroup
		hot, top []domain.DiscussionPost
		news     []domain.NewsItem
	)
	gameSets := make([][]domain.CatalogGame, len(windows))

	wg.Add(3 + len(windows))
	go func() {
		defer wg.Done()
		hot = p.discussions.FetchPosts(ctx, ports.SortHot, 0)
	}()
	go func() {
		defer wg.Done()
		top = p.discussions.FetchPosts(ctx, ports.SortTop, 0)
	}()
	go func() {
		defer wg.Done()
		news = p.news.FetchAll(ctx)
	}()
	for i, window := range windows {
		go func(i int, window ports.CatalogWindow) {
			defer wg.Done()
			gameSets[i] = p.catalog.FetchGames(ctx, window, p.cfg.TrendingGames)
		}(i, window)
	}
	wg.Wait()

	return domain.ResearchBundle{
		Discussions: mergeDiscussions(hot, top),
		News:        news,
		Games:       mergeGames(gameSets),
	}
}

// catalogWindows resolves the configured window names, dropping unknown
// ones. An empty or fully invalid list falls back to trending.
func (p *Pipeline) catalogWindows() []ports.CatalogWindow {
	windows := make([]ports.CatalogWindow, 0, len(p.cfg.CatalogWindows))
	for _, raw := range p.cfg.CatalogWindows {
		switch w := ports.CatalogWindow(strings.ToLower(strings.TrimSpace(raw))); w {
		case ports.WindowTrending, ports.WindowNewReleases, ports.WindowUpcoming, ports.WindowTopRated:
			windows = append(windows, w)
		default:
			p.logger.Warn("unknown catalog window", "window", raw)
		}
	}
	if len(windows) == 0 {
		return []ports.CatalogWindow{ports.WindowTrending}
	}
	return windows
}

// mergeGames unions the window results in configuration order, dropping
// repeats of the same game across windows.
func mergeGames(sets [][]domain.CatalogGame) []domain.CatalogGame {
	var merged []domain.CatalogGame
	seen := map[string]struct{}{}
	for _, set := range sets {
		for _, g := range set {
			key := strconv.FormatInt(g.ID, 10)
			if g.ID == 0 {
				key = strings.ToLower(g.Name)
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, g)
		}
	}
	return merged
}

// mergeDiscussions combines the two listing queries, re-sorts by score,
// and drops cross-listing duplicates of the same story.
func mergeDiscussions(hot, top []domain.DiscussionPost) []domain.DiscussionPost {
	all := make([]domain.DiscussionPost, 0, len(hot)+len(top))
	all = append(all, hot...)
	all = append(all, top...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	seen := map[string]struct{}{}
	unique := all[:0]
	for _, post := range all {
		key := normalizeText(post.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, post)
	}
	return unique
}

// recentTitles feeds the recency guard. A guard failure degrades to an
// empty exclusion list; it must not kill the run.
func (p *Pipeline) recentTitles(ctx context.Context, startedAt time.Time) []string {
	since := startedAt.Add(-p.cfg.RecencyWindow())
	titles, err := p.articles.RecentTitles(ctx, since)
	if err != nil {
		p.logger.Warn("recency guard query failed", "error", err)
		return nil
	}
	return titles
}

// fail applies the terminal failed update and surfaces the cause to the
// trigger layer.
func (p *Pipeline) fail(ctx context.Context, runID uuid.UUID, startedAt time.Time, result domain.RunResult, notes string, cause error) (domain.RunResult, error) {
	result.Errors = append(result.Errors, cause.Error())

	if err := p.finish(ctx, runID, startedAt, domain.RunFailed, result, notes); err != nil {
		p.logger.Error("finish run log", "run_id", runID, "error", err)
	}
	return result, cause
}

func (p *Pipeline) finish(ctx context.Context, runID uuid.UUID, startedAt time.Time, status domain.RunStatus, result domain.RunResult, notes string) error {
	completedAt := p.now()
	return p.runs.Finish(ctx, domain.RunLog{
		ID:                runID,
		StartedAt:         startedAt,
		CompletedAt:       &completedAt,
		Status:            status,
		ArticlesGenerated: result.ArticlesGenerated,
		PromptTokens:      result.TotalPromptTokens,
		CompletionTokens:  result.TotalCompletionTokens,
		Errors:            result.Errors,
		Notes:             notes,
	})
}
