// Package prompts holds the editorial and writer personas plus the builders
// that turn research material into task prompts.
package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
)

// EditorSystem is the persona for the story-selection pass.
const EditorSystem = `You are the Editor-in-Chief of "The Game Gazette," a wildly popular AI-powered video game magazine known for its entertaining, honest, and insightful coverage. Think of yourself as a mix between a seasoned gaming journalist and a witty internet personality.

Your job: review today's trending community posts, gaming news headlines, and game data, then pick the most INTERESTING stories. You have impeccable taste for what gamers actually want to read about.

Story selection rules:
- Pick stories that are genuinely trending RIGHT NOW in the community and gaming news
- Mix it up: some news, some opinion/hot takes, some reviews, some features
- Prioritize stories with high community engagement (upvotes, comments)
- Include at least 1-2 controversial or spicy takes - gamers love debate
- Every story MUST be tied to a specific real game when possible (we need game images)
- NO boring press releases - find the INTERESTING angle
- Avoid duplicating stories we've already covered

IMPORTANT: Respond ONLY with valid JSON. No markdown, no code blocks, no extra text.`

// WriterSystem is the persona for the article-drafting pass.
const WriterSystem = `You are the star writer at "The Game Gazette." You're known for your charismatic, engaging writing style that makes even routine game news feel exciting. Your voice is:

- **Conversational and witty** - like talking to a knowledgeable friend at a bar, not reading a corporate press release
- **Opinionated but fair** - you have strong takes but back them up with reasoning
- **Internet-savvy** - you get meme culture, community discourse, and gaming vibes without being cringe
- **Genuinely passionate** - your love for games comes through in every paragraph
- **Specific and detailed** - you name specific mechanics, studios, comparisons to other games

Writing rules:
- Start with a HOOK that grabs attention in the first sentence
- Use short paragraphs (2-3 sentences max) for readability
- Include specific details, numbers, comparisons - not vague fluff
- Reference what the community is saying (forums, social media reactions)
- Use markdown headers (##) to break up sections
- Include **bold text** for emphasis on key points
- Articles should be 600-1000 words
- NEVER use clickbait that doesn't deliver - if the headline promises something, the article must address it
- Write like a human with personality, not a corporate blog

For REVIEWS:
- Be honest and specific about what works and what doesn't
- Compare to similar games readers might know
- Score 0-10 with decimals (7.5, 8.3, etc.) - don't be afraid of the full range
- Most games are 5-8. Only truly exceptional games get 9+. Bad games get below 5.
- Pros and cons should be specific, not generic ("combat feels sluggish after hour 30" not "gameplay could be better")

IMPORTANT: Respond ONLY with valid JSON. No markdown code blocks, no extra text.`

// FormatPost renders one discussion post as an editorial prompt line.
func FormatPost(p domain.DiscussionPost) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [r/%s] %q (%d upvotes, %d comments)", p.Community, p.Title, p.Score, p.CommentCount)
	if p.Flair != "" {
		fmt.Fprintf(&b, " [%s]", p.Flair)
	}
	if p.Body != "" {
		fmt.Fprintf(&b, "\n  Context: %s", truncate(p.Body, 200))
	}
	return b.String()
}

// FormatGameLine renders one catalog game as an editorial prompt line.
func FormatGameLine(g domain.CatalogGame) string {
	released := g.ReleaseDate
	if released == "" {
		released = "TBA"
	}
	critic := "N/A"
	if g.CriticScore > 0 {
		critic = fmt.Sprintf("%d", g.CriticScore)
	}
	return fmt.Sprintf("- %s (%s) | Rating: %.1f/5 | Metacritic: %s | Platforms: %s | Genres: %s",
		g.Name, released, g.UserRating, critic, joinOr(g.Platforms, "N/A"), joinOr(g.Genres, "N/A"))
}

// EditorUser assembles the story-selection prompt from labeled research
// material and the recency-guard exclusion list.
func EditorUser(posts []domain.DiscussionPost, news []domain.NewsItem, games []domain.CatalogGame, recentTitles []string, storyTarget int) string {
	var b strings.Builder

	b.WriteString("Here's what's trending in gaming today:\n\n")

	b.WriteString("## TOP COMMUNITY POSTS (sorted by upvotes)\n")
	for _, p := range posts {
		b.WriteString(FormatPost(p))
		b.WriteByte('\n')
	}

	b.WriteString("\n## GAMING NEWS HEADLINES\n")
	for _, n := range news {
		fmt.Fprintf(&b, "[%s] %s\n", n.Source, n.Title)
	}

	b.WriteString("\n## TRENDING GAMES RIGHT NOW\n")
	for _, g := range games {
		b.WriteString(FormatGameLine(g))
		b.WriteByte('\n')
	}

	b.WriteString("\n## STORIES WE ALREADY PUBLISHED (don't repeat these)\n")
	if len(recentTitles) == 0 {
		b.WriteString("None yet\n")
	}
	for _, t := range recentTitles {
		fmt.Fprintf(&b, "- %s\n", t)
	}

	fmt.Fprintf(&b, `
---

Pick exactly %d stories for today's edition. For each, provide a specific angle that makes it INTERESTING (not just "Game X announced" but "Why Game X's announcement has the community losing its mind").

Respond with this exact JSON structure:
{
  "stories": [
    {
      "headline_idea": "string - a punchy, attention-grabbing working headline",
      "category": "news|reviews|previews|features|opinion",
      "game_name": "string - the specific game this is about (REQUIRED - we need this for images)",
      "game_catalog_id": null,
      "angle": "string - the specific hook that makes this story interesting. Reference the discussion or news that inspired it.",
      "source_context": "string - brief summary of the post or news article this is based on",
      "priority": 1
    }
  ],
  "editorial_notes": "string - brief reasoning for today's selections"
}`, storyTarget)

	return b.String()
}

// GameDetails builds the game-metadata block for the writer prompt. A nil
// game produces an explicit limited-data note so the writer degrades
// gracefully instead of fabricating specifics.
func GameDetails(game *domain.CatalogGame, brief domain.StoryBrief) string {
	if game == nil {
		return fmt.Sprintf("Name: %s\nCategory: %s\nNote: Limited game data available, write based on the news angle.",
			brief.GameName, brief.Category)
	}

	released := game.ReleaseDate
	if released == "" {
		released = "TBA"
	}
	critic := "N/A"
	if game.CriticScore > 0 {
		critic = fmt.Sprintf("%d", game.CriticScore)
	}
	description := "N/A"
	if game.Description != "" {
		description = truncate(game.Description, 500)
	}

	return fmt.Sprintf(`Name: %s
Release Date: %s
Rating: %.1f/5
Metacritic: %s
Platforms: %s
Genres: %s
Developers: %s
Publishers: %s
Description: %s`,
		game.Name, released, game.UserRating, critic,
		joinOr(game.Platforms, "N/A"), joinOr(game.Genres, "N/A"),
		joinOr(game.Developers, "N/A"), joinOr(game.Publishers, "N/A"),
		description)
}

// WriterUser assembles the drafting prompt for a single story brief.
func WriterUser(brief domain.StoryBrief, gameDetails, heroImage string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a %s article about %s.\n\n", brief.Category, brief.GameName)
	fmt.Fprintf(&b, "**Angle/Hook:** %s\n\n", brief.Angle)
	fmt.Fprintf(&b, "**What inspired this story:** %s\n\n", brief.SourceContext)
	fmt.Fprintf(&b, "**Game Details:**\n%s\n\n", gameDetails)
	if heroImage != "" {
		fmt.Fprintf(&b, "**Game Image URL (embed this in the article using markdown):** %s\n\n", heroImage)
	}

	b.WriteString(`Respond with this exact JSON structure:
{
  "title": "string - punchy headline, 50-80 chars, makes people want to click",
  "excerpt": "string - one compelling sentence that hooks the reader, 100-150 chars",
  "content": "string - full article in markdown. MUST include the game image using ![alt](url) syntax near the top of the article. Use ## headers, **bold**, short paragraphs. Reference community reactions.",
`)
	if brief.Category == domain.CategoryReviews {
		b.WriteString(`  "review_score": number (0-10 with one decimal, e.g. 7.5. Be honest - most games land 5-8),
  "review_pros": ["specific pro 1", "specific pro 2", "specific pro 3"],
  "review_cons": ["specific con 1", "specific con 2"],
  "review_verdict": "string - one punchy sentence verdict, 20-40 words",
`)
	}
	b.WriteString(`  "estimated_read_time": number
}`)

	return b.String()
}

// truncate caps s at max bytes without splitting a multibyte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
