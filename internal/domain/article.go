package domain

import "time"

// Category classifies an article within the magazine.
type Category string

const (
	CategoryNews     Category = "news"
	CategoryReviews  Category = "reviews"
	CategoryPreviews Category = "previews"
	CategoryFeatures Category = "features"
	CategoryOpinion  Category = "opinion"
)

// Valid reports whether the category is one of the published sections.
func (c Category) Valid() bool {
	switch c {
	case CategoryNews, CategoryReviews, CategoryPreviews, CategoryFeatures, CategoryOpinion:
		return true
	}
	return false
}

// StoryBrief is an editorially selected article concept. It lives only
// inside a single pipeline run and is never persisted.
type StoryBrief struct {
	Headline      string
	Category      Category
	GameName      string
	CatalogID     int64
	Angle         string
	SourceContext string
	Priority      int
}

// ReviewBlock carries the review-only fields of a draft. The writer model
// may omit any of them even for the reviews category, so Score is a pointer.
type ReviewBlock struct {
	Score   *float64
	Pros    []string
	Cons    []string
	Verdict string
}

// DraftArticle is the writer model's output before enrichment and storage.
type DraftArticle struct {
	Title    string
	Excerpt  string
	Content  string
	Category Category
	Review   ReviewBlock
	ReadTime int
}

// ArticleStatus marks where a record sits in the editorial workflow. The
// pipeline only ever creates drafts; publication happens elsewhere.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
)

// ArticleRecord is the persisted superset of a draft: game metadata, AI
// provenance, and source attribution merged in during enrichment.
type ArticleRecord struct {
	Title        string
	Slug         string
	Excerpt      string
	Content      string
	Category     Category
	Status       ArticleStatus
	ReadTime     int
	HeroImage    string
	HeroImageAlt string

	GameName    string
	GameSlug    string
	CatalogID   int64
	Platforms   []string
	Genres      []string
	ReleaseDate string
	Developer   string
	Publisher   string

	Review ReviewBlock

	Model            string
	PromptTokens     int
	CompletionTokens int
	SourceURLs       []string

	CreatedAt time.Time
}
