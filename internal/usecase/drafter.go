package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/llmjson"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
	"github.com/matthewd-so/The-Game-Gazette/internal/prompts"
)

// gameCache keeps catalog games already fetched within the run, keyed by
// lower-cased name. A hit means the drafter skips the live search for that
// story.
type gameCache struct {
	games map[string]domain.CatalogGame
}

func newGameCache(games []domain.CatalogGame) *gameCache {
	c := &gameCache{games: make(map[string]domain.CatalogGame, len(games))}
	for _, g := range games {
		c.store(g)
	}
	return c
}

func (c *gameCache) store(g domain.CatalogGame) {
	c.games[strings.ToLower(g.Name)] = g
}

// lookup matches by substring containment in both directions so "Elden
// Ring" finds "Elden Ring: Shadow of the Erdtree" and vice versa. Among
// multiple matches an image-bearing entry wins, then the longest cached
// name, then the lexicographically smallest, so resolution does not depend
// on map iteration order.
func (c *gameCache) lookup(name string) (domain.CatalogGame, bool) {
	key := strings.ToLower(name)

	var best domain.CatalogGame
	var bestName string
	found := false

	for cached, game := range c.games {
		if !strings.Contains(key, cached) && !strings.Contains(cached, key) {
			continue
		}
		if !found || betterMatch(game, cached, best, bestName) {
			best, bestName, found = game, cached, true
		}
	}
	return best, found
}

func betterMatch(candidate domain.CatalogGame, candidateName string, current domain.CatalogGame, currentName string) bool {
	candidateImage := candidate.ImageURL != ""
	currentImage := current.ImageURL != ""
	if candidateImage != currentImage {
		return candidateImage
	}
	if len(candidateName) != len(currentName) {
		return len(candidateName) > len(currentName)
	}
	return candidateName < currentName
}

// writerPayload mirrors the JSON contract the writer prompt demands.
// Review fields stay pointers/nil when the model omits them, which it may
// even for the reviews category.
type writerPayload struct {
	Title             string   `json:"title"`
	Excerpt           string   `json:"excerpt"`
	Content           string   `json:"content"`
	ReviewScore       *float64 `json:"review_score"`
	ReviewPros        []string `json:"review_pros"`
	ReviewCons        []string `json:"review_cons"`
	ReviewVerdict     string   `json:"review_verdict"`
	EstimatedReadTime int      `json:"estimated_read_time"`
}

// resolveGame finds metadata for a brief: in-run cache, then live name
// search, then direct id lookup, then nothing. Lookup errors are per-story
// warnings, never run-fatal.
func (p *Pipeline) resolveGame(ctx context.Context, brief domain.StoryBrief, cache *gameCache) *domain.CatalogGame {
	if game, ok := cache.lookup(brief.GameName); ok {
		return &game
	}

	if results, err := p.catalog.Search(ctx, brief.GameName, 3); err != nil {
		p.logger.Warn("catalog search failed", "game", brief.GameName, "error", err)
	} else if len(results) > 0 {
		game := results[0]
		cache.store(game)
		return &game
	}

	if brief.CatalogID != 0 {
		game, err := p.catalog.ByID(ctx, brief.CatalogID)
		if err != nil {
			p.logger.Warn("catalog id lookup failed", "game", brief.GameName, "id", brief.CatalogID, "error", err)
		} else {
			cache.store(game)
			return &game
		}
	}

	return nil
}

// draftStory writes, enriches, and persists one article. Every error path
// is a per-story failure: the caller records it and moves on.
func (p *Pipeline) draftStory(ctx context.Context, brief domain.StoryBrief, bundle domain.ResearchBundle, cache *gameCache, result *domain.RunResult) error {
	game := p.resolveGame(ctx, brief, cache)

	heroImage := ""
	if game != nil {
		heroImage = game.ImageURL
	}

	gen, err := p.generator.Generate(ctx,
		prompts.WriterSystem,
		prompts.WriterUser(brief, prompts.GameDetails(game, brief), heroImage),
		ports.GenerationOptions{
			Model:       p.llm.WriterModel,
			MaxTokens:   p.llm.WriterMaxTokens,
			Temperature: p.llm.WriterTemperature,
		})
	if err != nil {
		return fmt.Errorf("writer generation: %w", err)
	}

	result.TotalPromptTokens += gen.PromptTokens
	result.TotalCompletionTokens += gen.CompletionTokens

	var payload writerPayload
	if err := llmjson.Decode(gen.Text, &payload); err != nil {
		return fmt.Errorf("writer response: %w", err)
	}

	draft := domain.DraftArticle{
		Title:    payload.Title,
		Excerpt:  payload.Excerpt,
		Content:  payload.Content,
		Category: brief.Category,
		Review: domain.ReviewBlock{
			Score:   payload.ReviewScore,
			Pros:    payload.ReviewPros,
			Cons:    payload.ReviewCons,
			Verdict: payload.ReviewVerdict,
		},
		ReadTime: payload.EstimatedReadTime,
	}

	now := p.now()
	record := domain.ArticleRecord{
		Title:            draft.Title,
		Slug:             uniqueSlug(draft.Title, now),
		Excerpt:          draft.Excerpt,
		Content:          injectHeroImage(draft.Content, brief.GameName, heroImage),
		Category:         draft.Category,
		Status:           domain.StatusDraft,
		ReadTime:         draft.ReadTime,
		HeroImage:        heroImage,
		GameName:         brief.GameName,
		GameSlug:         Slugify(brief.GameName),
		CatalogID:        brief.CatalogID,
		Review:           draft.Review,
		Model:            gen.Model,
		PromptTokens:     gen.PromptTokens,
		CompletionTokens: gen.CompletionTokens,
		SourceURLs:       sourceLinks(bundle, brief.GameName),
		CreatedAt:        now,
	}

	if game != nil {
		record.HeroImageAlt = game.Name + " screenshot"
		if game.Slug != "" {
			record.GameSlug = game.Slug
		}
		if game.ID != 0 {
			record.CatalogID = game.ID
		}
		record.Platforms = game.Platforms
		record.Genres = game.Genres
		record.ReleaseDate = game.ReleaseDate
		if len(game.Developers) > 0 {
			record.Developer = game.Developers[0]
		}
		if len(game.Publishers) > 0 {
			record.Publisher = game.Publishers[0]
		}
	} else {
		record.HeroImageAlt = brief.GameName + " image"
	}

	if err := p.articles.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert article %q: %w", draft.Title, err)
	}
	return nil
}
