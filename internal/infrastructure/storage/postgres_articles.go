package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// Querier is the subset of pgxpool.Pool the repositories need; tests
// substitute a fake.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ArticleRepository persists enriched drafts into the articles table.
type ArticleRepository struct {
	db Querier
}

var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository wires a pgx pool (or compatible querier).
func NewArticleRepository(db Querier) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Insert stores one draft record. Nullable columns (hero image, game
// metadata, review fields, source URLs) are written as NULL when absent so
// downstream consumers can tell missing from empty.
func (r *ArticleRepository) Insert(ctx context.Context, a domain.ArticleRecord) error {
	query, args, err := builder.
		Insert("articles").
		Columns(
			"title", "slug", "excerpt", "content", "category", "status",
			"hero_image", "hero_image_alt",
			"game_name", "game_slug", "game_catalog_id",
			"game_platforms", "game_genres", "game_release_date",
			"game_developer", "game_publisher",
			"review_score", "review_pros", "review_cons", "review_verdict",
			"ai_model", "ai_prompt_tokens", "ai_completion_tokens", "source_urls",
			"estimated_read_time",
		).
		Values(
			a.Title, a.Slug, a.Excerpt, a.Content, string(a.Category), string(a.Status),
			nullString(a.HeroImage), nullString(a.HeroImageAlt),
			nullString(a.GameName), nullString(a.GameSlug), nullInt(a.CatalogID),
			nullStrings(a.Platforms), nullStrings(a.Genres), nullString(a.ReleaseDate),
			nullString(a.Developer), nullString(a.Publisher),
			a.Review.Score, nullStrings(a.Review.Pros), nullStrings(a.Review.Cons), nullString(a.Review.Verdict),
			nullString(a.Model), a.PromptTokens, a.CompletionTokens, nullStrings(a.SourceURLs),
			a.ReadTime,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article %q: %w", a.Slug, err)
	}
	return nil
}

// RecentTitles returns titles of articles created at or after the cutoff,
// feeding the recency guard's exclusion list.
func (r *ArticleRepository) RecentTitles(ctx context.Context, since time.Time) ([]string, error) {
	query, args, err := builder.
		Select("title").
		From("articles").
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return titles, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nullStrings(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}
