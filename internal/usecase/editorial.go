package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/llmjson"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
	"github.com/matthewd-so/The-Game-Gazette/internal/prompts"
)

// storyPayload mirrors the JSON contract the editor prompt demands.
type storyPayload struct {
	HeadlineIdea  string `json:"headline_idea"`
	Category      string `json:"category"`
	GameName      string `json:"game_name"`
	GameCatalogID int64  `json:"game_catalog_id"`
	Angle         string `json:"angle"`
	SourceContext string `json:"source_context"`
	Priority      int    `json:"priority"`
}

type editorialResponse struct {
	Stories        []storyPayload `json:"stories"`
	EditorialNotes string         `json:"editorial_notes"`
}

// Selection is the editorial stage's output: briefs in drafting order plus
// the editor's reasoning for the run log.
type Selection struct {
	Briefs []domain.StoryBrief
	Notes  string
}

// selectStories runs the editor persona over the aggregated research and
// parses the response into story briefs. Any failure here is fatal to the
// run: without a story list there is no further work.
func (p *Pipeline) selectStories(ctx context.Context, bundle domain.ResearchBundle, recentTitles []string, result *domain.RunResult) (Selection, error) {
	posts := bundle.Discussions
	if limit := p.cfg.DiscussionPromptLimit; limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	news := bundle.News
	if limit := p.cfg.NewsPromptLimit; limit > 0 && len(news) > limit {
		news = news[:limit]
	}

	user := prompts.EditorUser(posts, news, bundle.Games, recentTitles, p.cfg.StoryTarget)

	gen, err := p.generator.Generate(ctx, prompts.EditorSystem, user, ports.GenerationOptions{
		Model:       p.llm.EditorModel,
		MaxTokens:   p.llm.EditorMaxTokens,
		Temperature: p.llm.EditorTemperature,
	})
	if err != nil {
		return Selection{}, fmt.Errorf("editorial generation: %w", err)
	}

	result.TotalPromptTokens += gen.PromptTokens
	result.TotalCompletionTokens += gen.CompletionTokens

	var resp editorialResponse
	if err := llmjson.Decode(gen.Text, &resp); err != nil {
		return Selection{}, fmt.Errorf("editorial response: %w", err)
	}

	briefs := make([]domain.StoryBrief, 0, len(resp.Stories))
	for _, s := range resp.Stories {
		if strings.TrimSpace(s.GameName) == "" {
			p.logger.Warn("editor selected story without a game name", "headline", s.HeadlineIdea)
			continue
		}

		category := domain.Category(strings.ToLower(strings.TrimSpace(s.Category)))
		if !category.Valid() {
			category = domain.CategoryNews
		}

		briefs = append(briefs, domain.StoryBrief{
			Headline:      s.HeadlineIdea,
			Category:      category,
			GameName:      s.GameName,
			CatalogID:     s.GameCatalogID,
			Angle:         s.Angle,
			SourceContext: s.SourceContext,
			Priority:      s.Priority,
		})
	}

	if len(briefs) == 0 {
		return Selection{}, errors.New("editorial selected no usable stories")
	}

	// The priority ordinal is advisory: drafting honors it when present
	// but the selector does not reorder beyond a stable sort.
	sort.SliceStable(briefs, func(i, j int) bool { return briefs[i].Priority < briefs[j].Priority })

	if p.cfg.StoryTarget > 0 && len(briefs) > p.cfg.StoryTarget {
		briefs = briefs[:p.cfg.StoryTarget]
	}

	return Selection{Briefs: briefs, Notes: resp.EditorialNotes}, nil
}
