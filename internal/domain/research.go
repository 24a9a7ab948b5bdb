package domain

import "time"

// DiscussionPost is a normalized community-feed item used as research input.
type DiscussionPost struct {
	Title        string
	Community    string
	URL          string
	Permalink    string
	Score        int
	CommentCount int
	Author       string
	Body         string
	Flair        string
	CreatedAt    time.Time
}

// NewsItem is a normalized syndicated-feed headline.
type NewsItem struct {
	Source      string
	Title       string
	Link        string
	PublishedAt time.Time
	Snippet     string
}

// CatalogGame is a normalized game-metadata record from the external catalog.
type CatalogGame struct {
	ID          int64
	Name        string
	Slug        string
	ImageURL    string
	ReleaseDate string
	CriticScore int
	UserRating  float64
	Platforms   []string
	Genres      []string
	Developers  []string
	Publishers  []string
	Description string
}

// ResearchBundle aggregates one run's worth of research signals. It feeds
// the editorial prompt and the source-attribution heuristic; nothing in it
// is persisted.
type ResearchBundle struct {
	Discussions []DiscussionPost
	News        []NewsItem
	Games       []CatalogGame
}

// Empty reports whether the bundle lacks the signals the editorial stage
// needs. Catalog games alone are not enough to select stories from.
func (b ResearchBundle) Empty() bool {
	return len(b.Discussions) == 0 && len(b.News) == 0
}
