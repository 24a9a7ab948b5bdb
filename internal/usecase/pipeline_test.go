package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

type stubDiscussions struct {
	posts []domain.DiscussionPost
}

func (s *stubDiscussions) FetchPosts(_ context.Context, sort ports.DiscussionSort, _ int) []domain.DiscussionPost {
	if sort == ports.SortTop {
		return nil
	}
	return s.posts
}

type stubNews struct {
	items []domain.NewsItem
}

func (s *stubNews) FetchAll(context.Context) []domain.NewsItem { return s.items }

type stubCatalog struct {
	mu          sync.Mutex
	games       map[ports.CatalogWindow][]domain.CatalogGame
	windowCalls []ports.CatalogWindow
	searchBy    map[string][]domain.CatalogGame
	searchErr   error
	searchCalls []string
	byID        map[int64]domain.CatalogGame
}

func (s *stubCatalog) FetchGames(_ context.Context, window ports.CatalogWindow, _ int) []domain.CatalogGame {
	s.mu.Lock()
	s.windowCalls = append(s.windowCalls, window)
	s.mu.Unlock()
	return s.games[window]
}

func (s *stubCatalog) Search(_ context.Context, query string, _ int) ([]domain.CatalogGame, error) {
	s.searchCalls = append(s.searchCalls, query)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchBy[query], nil
}

func (s *stubCatalog) ByID(_ context.Context, id int64) (domain.CatalogGame, error) {
	game, ok := s.byID[id]
	if !ok {
		return domain.CatalogGame{}, fmt.Errorf("game %d not found", id)
	}
	return game, nil
}

type generatorCall struct {
	system string
	user   string
}

type stubGenerator struct {
	responses []ports.Generation
	errs      []error
	calls     []generatorCall
}

func (s *stubGenerator) Generate(_ context.Context, system, user string, _ ports.GenerationOptions) (ports.Generation, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, generatorCall{system: system, user: user})

	if idx < len(s.errs) && s.errs[idx] != nil {
		return ports.Generation{}, s.errs[idx]
	}
	if idx >= len(s.responses) {
		return ports.Generation{}, fmt.Errorf("unexpected generation call %d", idx)
	}
	return s.responses[idx], nil
}

type memArticles struct {
	inserted  []domain.ArticleRecord
	insertErr func(domain.ArticleRecord) error
	recent    []string
	recentErr error
}

func (m *memArticles) Insert(_ context.Context, a domain.ArticleRecord) error {
	if m.insertErr != nil {
		if err := m.insertErr(a); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, a)
	return nil
}

func (m *memArticles) RecentTitles(context.Context, time.Time) ([]string, error) {
	return m.recent, m.recentErr
}

type memRuns struct {
	begun      int
	reconciled int
	finished   []domain.RunLog
}

func (m *memRuns) Begin(context.Context, time.Time) (uuid.UUID, error) {
	m.begun++
	return uuid.New(), nil
}

func (m *memRuns) Finish(_ context.Context, log domain.RunLog) error {
	m.finished = append(m.finished, log)
	return nil
}

func (m *memRuns) ReconcileStale(context.Context, time.Duration) (int64, error) {
	m.reconciled++
	return 0, nil
}

type stubLock struct {
	err      error
	acquired int
	released int
}

func (s *stubLock) Acquire(context.Context) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.acquired++
	return func() { s.released++ }, nil
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		StoryTarget:           10,
		TrendingGames:         20,
		RecencyWindowDays:     7,
		DiscussionPromptLimit: 40,
		NewsPromptLimit:       30,
		StaleRunMinutes:       120,
	}
}

func editorialJSON(stories ...string) string {
	return fmt.Sprintf(`{"stories":[%s],"editorial_notes":"solid slate today"}`, strings.Join(stories, ","))
}

func storyJSON(game, category string, priority int) string {
	return fmt.Sprintf(`{"headline_idea":"%s story","category":"%s","game_name":"%s","game_catalog_id":null,"angle":"the community angle","source_context":"big thread","priority":%d}`,
		game, category, game, priority)
}

func writerJSON(title string) string {
	return fmt.Sprintf(`{"title":"%s","excerpt":"One compelling sentence.","content":"Intro.\n\nBody.","estimated_read_time":4}`, title)
}

func researchFixtures() (*stubDiscussions, *stubNews, *stubCatalog) {
	discussions := &stubDiscussions{posts: []domain.DiscussionPost{
		{Title: "Game X patch breaks everything", Score: 5000, CommentCount: 800, Community: "gaming", Permalink: "https://reddit.example/gamex"},
	}}
	news := &stubNews{items: []domain.NewsItem{
		{Source: "OutletA", Title: "Game X patch notes", Link: "https://outleta.example/patch"},
	}}
	catalog := &stubCatalog{games: map[ports.CatalogWindow][]domain.CatalogGame{
		ports.WindowTrending: {
			{ID: 42, Name: "Game X", Slug: "game-x", ImageURL: "http://img/x.png", Platforms: []string{"PC"}, Genres: []string{"RPG"}, Developers: []string{"Studio Y"}, Publishers: []string{"Publisher Z"}},
		},
	}}
	return discussions, news, catalog
}

func newTestPipeline(discussions ports.DiscussionSource, news ports.NewsSource, catalog ports.GameCatalog, gen ports.TextGenerator, articles ports.ArticleRepository, runs ports.RunLogRepository, lock ports.RunLock) *Pipeline {
	return NewPipeline(PipelineDeps{
		Discussions: discussions,
		News:        news,
		Catalog:     catalog,
		Generator:   gen,
		Articles:    articles,
		Runs:        runs,
		Lock:        lock,
		Pipeline:    testConfig(),
		LLM: config.LLMConfig{
			EditorModel:       "editor-model",
			WriterModel:       "writer-model",
			EditorMaxTokens:   4096,
			WriterMaxTokens:   4096,
			EditorTemperature: 0.8,
			WriterTemperature: 0.7,
		},
	})
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Game X", "news", 1)), PromptTokens: 10, CompletionTokens: 20, Model: "editor-model"},
		{Text: `{"title":"Game X Patch Sparks Backlash","excerpt":"...","content":"Intro.\n\nBody.","estimated_read_time":3}`, PromptTokens: 30, CompletionTokens: 40, Model: "writer-model"},
	}}
	articles := &memArticles{}
	runs := &memRuns{}
	lock := &stubLock{}

	p := newTestPipeline(discussions, news, catalog, gen, articles, runs, lock)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.ArticlesGenerated != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TotalPromptTokens != 40 || result.TotalCompletionTokens != 60 {
		t.Fatalf("token totals wrong: %+v", result)
	}

	if len(articles.inserted) != 1 {
		t.Fatalf("expected 1 inserted article, got %d", len(articles.inserted))
	}
	a := articles.inserted[0]

	if a.HeroImage != "http://img/x.png" {
		t.Fatalf("hero image not resolved: %q", a.HeroImage)
	}
	wantContent := "Intro.\n\n![Game X](http://img/x.png)\n\nBody."
	if a.Content != wantContent {
		t.Fatalf("content = %q, want %q", a.Content, wantContent)
	}
	if !strings.HasPrefix(a.Slug, "game-x-patch-sparks-backlash-") {
		t.Fatalf("unexpected slug: %s", a.Slug)
	}
	if a.Status != domain.StatusDraft {
		t.Fatalf("unexpected status: %s", a.Status)
	}
	if a.ReadTime != 3 {
		t.Fatalf("read time lost: %d", a.ReadTime)
	}
	if a.Developer != "Studio Y" || a.Publisher != "Publisher Z" || a.GameSlug != "game-x" || a.CatalogID != 42 {
		t.Fatalf("game metadata not merged: %+v", a)
	}
	if len(a.SourceURLs) != 2 ||
		a.SourceURLs[0] != "https://reddit.example/gamex" ||
		a.SourceURLs[1] != "https://outleta.example/patch" {
		t.Fatalf("unexpected source urls: %v", a.SourceURLs)
	}
	if a.Model != "writer-model" || a.PromptTokens != 30 || a.CompletionTokens != 40 {
		t.Fatalf("provenance wrong: %+v", a)
	}

	// Game X came from the trending cache, so no live search may fire.
	if len(catalog.searchCalls) != 0 {
		t.Fatalf("unexpected catalog searches: %v", catalog.searchCalls)
	}

	if len(runs.finished) != 1 {
		t.Fatalf("expected 1 terminal log update, got %d", len(runs.finished))
	}
	log := runs.finished[0]
	if log.Status != domain.RunCompleted || log.ArticlesGenerated != 1 {
		t.Fatalf("unexpected run log: %+v", log)
	}
	if log.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if log.Notes != "solid slate today" {
		t.Fatalf("editorial notes not recorded: %q", log.Notes)
	}

	if lock.acquired != 1 || lock.released != 1 {
		t.Fatalf("lock not acquired/released exactly once: %+v", lock)
	}
}

func TestRunNoResearchIsFatal(t *testing.T) {
	t.Parallel()

	discussions := &stubDiscussions{}
	news := &stubNews{}
	catalog := &stubCatalog{games: map[ports.CatalogWindow][]domain.CatalogGame{
		ports.WindowTrending: {{Name: "Game X"}},
	}}
	gen := &stubGenerator{}
	runs := &memRuns{}

	p := newTestPipeline(discussions, news, catalog, gen, &memArticles{}, runs, nil)
	_, err := p.Run(context.Background())
	if !errors.Is(err, ErrNoResearch) {
		t.Fatalf("expected ErrNoResearch, got %v", err)
	}

	if len(gen.calls) != 0 {
		t.Fatalf("editorial stage ran despite empty research: %d calls", len(gen.calls))
	}

	if len(runs.finished) != 1 || runs.finished[0].Status != domain.RunFailed {
		t.Fatalf("run log not marked failed: %+v", runs.finished)
	}
	if len(runs.finished[0].Errors) == 0 {
		t.Fatal("failed log carries no error message")
	}
}

func TestRunPartialSuccess(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()

	stories := make([]string, 5)
	for i := range stories {
		stories[i] = storyJSON("Game X", "news", i+1)
	}

	responses := []ports.Generation{{Text: editorialJSON(stories...), PromptTokens: 10, CompletionTokens: 10}}
	for i := 0; i < 5; i++ {
		text := writerJSON(fmt.Sprintf("Story %d", i+1))
		if i == 2 {
			text = "the model rambled instead of producing JSON"
		}
		responses = append(responses, ports.Generation{Text: text, PromptTokens: 5, CompletionTokens: 5, Model: "writer-model"})
	}

	gen := &stubGenerator{responses: responses}
	articles := &memArticles{}
	runs := &memRuns{}

	p := newTestPipeline(discussions, news, catalog, gen, articles, runs, nil)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.ArticlesGenerated != 4 {
		t.Fatalf("expected 4 articles, got %d", result.ArticlesGenerated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if len(articles.inserted) != 4 {
		t.Fatalf("expected 4 inserts, got %d", len(articles.inserted))
	}

	if runs.finished[0].Status != domain.RunCompleted {
		t.Fatalf("partial success must complete, got %s", runs.finished[0].Status)
	}
}

func TestRunEditorialParseFailureIsFatal(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: "no json anywhere", PromptTokens: 10, CompletionTokens: 10},
	}}
	runs := &memRuns{}

	p := newTestPipeline(discussions, news, catalog, gen, &memArticles{}, runs, nil)
	result, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal error from editorial parse failure")
	}

	if runs.finished[0].Status != domain.RunFailed {
		t.Fatalf("run log not failed: %+v", runs.finished[0])
	}
	// Usage from the failed editorial call still counts toward totals.
	if result.TotalPromptTokens != 10 || result.TotalCompletionTokens != 10 {
		t.Fatalf("token totals lost: %+v", result)
	}
}

func TestRunGatewayFailureDuringEditorialIsFatal(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{errs: []error{errors.New("quota exhausted")}}
	runs := &memRuns{}

	p := newTestPipeline(discussions, news, catalog, gen, &memArticles{}, runs, nil)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected fatal error from gateway failure")
	}

	if runs.finished[0].Status != domain.RunFailed {
		t.Fatalf("run log not failed: %+v", runs.finished[0])
	}
}

func TestRunLockHeldAbortsBeforeLogging(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	runs := &memRuns{}
	lock := &stubLock{err: errors.New("held elsewhere")}

	p := newTestPipeline(discussions, news, catalog, &stubGenerator{}, &memArticles{}, runs, lock)
	if _, err := p.Run(context.Background()); !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}

	if runs.begun != 0 {
		t.Fatal("run log created despite failed lock acquisition")
	}
}

func TestRunUncachedGameTriggersSearch(t *testing.T) {
	t.Parallel()

	discussions, news, _ := researchFixtures()
	catalog := &stubCatalog{
		games: map[ports.CatalogWindow][]domain.CatalogGame{
			ports.WindowTrending: {{Name: "Something Else", ImageURL: "http://img/other.png"}},
		},
		searchBy: map[string][]domain.CatalogGame{
			"Game X": {{ID: 42, Name: "Game X", Slug: "game-x", ImageURL: "http://img/x.png"}},
		},
	}
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Game X", "news", 1))},
		{Text: writerJSON("Game X Deep Dive"), Model: "writer-model"},
	}}
	articles := &memArticles{}

	p := newTestPipeline(discussions, news, catalog, gen, articles, &memRuns{}, nil)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(catalog.searchCalls) != 1 || catalog.searchCalls[0] != "Game X" {
		t.Fatalf("expected one search for Game X, got %v", catalog.searchCalls)
	}
	if articles.inserted[0].HeroImage != "http://img/x.png" {
		t.Fatalf("search result image not used: %q", articles.inserted[0].HeroImage)
	}
}

func TestRunReviewWithoutScoreStoresNil(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Game X", "reviews", 1))},
		{Text: `{"title":"Game X Review","excerpt":"...","content":"Verdict inside.","review_pros":["tight combat"],"estimated_read_time":6}`, Model: "writer-model"},
	}}
	articles := &memArticles{}

	p := newTestPipeline(discussions, news, catalog, gen, articles, &memRuns{}, nil)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	a := articles.inserted[0]
	if a.Category != domain.CategoryReviews {
		t.Fatalf("unexpected category: %s", a.Category)
	}
	if a.Review.Score != nil {
		t.Fatalf("expected nil review score, got %v", *a.Review.Score)
	}
	if len(a.Review.Pros) != 1 {
		t.Fatalf("review pros lost: %v", a.Review.Pros)
	}
}

func TestRunInsertFailureIsPerStory(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Game X", "news", 1), storyJSON("Game X", "features", 2))},
		{Text: writerJSON("First")},
		{Text: writerJSON("Second")},
	}}

	articles := &memArticles{insertErr: func(a domain.ArticleRecord) error {
		if a.Title == "First" {
			return errors.New("unique violation")
		}
		return nil
	}}
	runs := &memRuns{}

	p := newTestPipeline(discussions, news, catalog, gen, articles, runs, nil)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.ArticlesGenerated != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if runs.finished[0].Status != domain.RunCompleted {
		t.Fatalf("expected completed, got %s", runs.finished[0].Status)
	}
}

func TestRunDraftsInPriorityOrder(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Second Game", "news", 2), storyJSON("Game X", "news", 1))},
		{Text: writerJSON("A")},
		{Text: writerJSON("B")},
	}}

	p := newTestPipeline(discussions, news, catalog, gen, &memArticles{}, &memRuns{}, nil)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !strings.Contains(gen.calls[1].user, "about Game X") {
		t.Fatalf("priority 1 story not drafted first:\n%s", gen.calls[1].user)
	}
	if !strings.Contains(gen.calls[2].user, "about Second Game") {
		t.Fatalf("priority 2 story not drafted second:\n%s", gen.calls[2].user)
	}
}

func TestRunPassesRecentTitlesToEditor(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Game X", "news", 1))},
		{Text: writerJSON("Fresh Take")},
	}}
	articles := &memArticles{recent: []string{"Game X Patch Sparks Backlash"}}

	p := newTestPipeline(discussions, news, catalog, gen, articles, &memRuns{}, nil)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !strings.Contains(gen.calls[0].user, "Game X Patch Sparks Backlash") {
		t.Fatal("recency exclusion list missing from editorial prompt")
	}
}

func TestRunEditorSkipsStoriesWithoutGameName(t *testing.T) {
	t.Parallel()

	discussions, news, catalog := researchFixtures()
	noGame := `{"headline_idea":"Industry vibes","category":"opinion","game_name":"","angle":"x","source_context":"y","priority":1}`
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(noGame, storyJSON("Game X", "news", 2))},
		{Text: writerJSON("Only Story")},
	}}
	articles := &memArticles{}

	p := newTestPipeline(discussions, news, catalog, gen, articles, &memRuns{}, nil)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.ArticlesGenerated != 1 || len(articles.inserted) != 1 {
		t.Fatalf("expected exactly the named-game story, got %+v", result)
	}
}

func TestRunFetchesConfiguredCatalogWindows(t *testing.T) {
	t.Parallel()

	discussions, news, _ := researchFixtures()
	catalog := &stubCatalog{games: map[ports.CatalogWindow][]domain.CatalogGame{
		ports.WindowTrending: {{ID: 42, Name: "Game X", ImageURL: "http://img/x.png"}},
		ports.WindowUpcoming: {{ID: 42, Name: "Game X"}, {ID: 7, Name: "Game Y"}},
	}}
	gen := &stubGenerator{responses: []ports.Generation{
		{Text: editorialJSON(storyJSON("Game X", "news", 1))},
		{Text: writerJSON("Window Mix")},
	}}

	cfg := testConfig()
	cfg.CatalogWindows = []string{"trending", "upcoming", "paid_promos"}

	p := NewPipeline(PipelineDeps{
		Discussions: discussions,
		News:        news,
		Catalog:     catalog,
		Generator:   gen,
		Articles:    &memArticles{},
		Runs:        &memRuns{},
		Pipeline:    cfg,
		LLM:         config.LLMConfig{EditorModel: "editor-model", WriterModel: "writer-model"},
	})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	fetched := map[ports.CatalogWindow]int{}
	for _, w := range catalog.windowCalls {
		fetched[w]++
	}
	if fetched[ports.WindowTrending] != 1 || fetched[ports.WindowUpcoming] != 1 {
		t.Fatalf("configured windows not fetched: %v", catalog.windowCalls)
	}
	if len(catalog.windowCalls) != 2 {
		t.Fatalf("unknown window reached the catalog: %v", catalog.windowCalls)
	}

	prompt := gen.calls[0].user
	if !strings.Contains(prompt, "Game Y") {
		t.Fatal("second window's games missing from editorial prompt")
	}
	if strings.Count(prompt, "- Game X (") != 1 {
		t.Fatalf("cross-window duplicate not merged:\n%s", prompt)
	}
}

func TestMergeGamesDeduplicatesAcrossWindows(t *testing.T) {
	t.Parallel()

	merged := mergeGames([][]domain.CatalogGame{
		{{ID: 42, Name: "Game X"}, {ID: 7, Name: "Game Y"}},
		{{ID: 42, Name: "Game X"}, {Name: "Unlisted Gem"}},
		{{Name: "unlisted gem"}},
	})

	if len(merged) != 3 {
		t.Fatalf("expected 3 unique games, got %d: %+v", len(merged), merged)
	}
	if merged[0].ID != 42 || merged[1].ID != 7 || merged[2].Name != "Unlisted Gem" {
		t.Fatalf("unexpected merge order: %+v", merged)
	}
}

func TestMergeDiscussionsDeduplicates(t *testing.T) {
	t.Parallel()

	hot := []domain.DiscussionPost{
		{Title: "Game X Patch Breaks Everything", Score: 5000},
		{Title: "Indie gem discovered", Score: 300},
	}
	top := []domain.DiscussionPost{
		{Title: "game x patch breaks everything!", Score: 4000},
		{Title: "Studio layoffs", Score: 2000},
	}

	merged := mergeDiscussions(hot, top)
	if len(merged) != 3 {
		t.Fatalf("expected 3 unique posts, got %d", len(merged))
	}
	if merged[0].Score != 5000 || merged[1].Score != 2000 || merged[2].Score != 300 {
		t.Fatalf("unexpected order: %+v", merged)
	}
}
