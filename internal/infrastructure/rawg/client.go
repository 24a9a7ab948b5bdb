// Package rawg implements the game-catalog adapter against the RAWG API.
package rawg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// Client resolves game metadata and imagery. Trending (a research fetch)
// swallows failures into an empty result; Search and ByID surface errors
// because the caller treats a failed single-game lookup as a recoverable
// per-story condition.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.GameCatalog = (*Client)(nil)

// New builds a client from configuration.
func New(cfg config.CatalogConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		logger:  logger,
		now:     time.Now,
	}
}

type gamePayload struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	BackgroundImage string  `json:"background_image"`
	Released        string  `json:"released"`
	Metacritic      int     `json:"metacritic"`
	Rating          float64 `json:"rating"`
	Platforms       []struct {
		Platform struct {
			Name string `json:"name"`
		} `json:"platform"`
	} `json:"platforms"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Developers []struct {
		Name string `json:"name"`
	} `json:"developers"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	DescriptionRaw string `json:"description_raw"`
}

type listPayload struct {
	Results []gamePayload `json:"results"`
}

// FetchGames pulls one catalog listing window. Unrecognized windows fall
// back to trending.
func (c *Client) FetchGames(ctx context.Context, window ports.CatalogWindow, count int) []domain.CatalogGame {
	switch window {
	case ports.WindowNewReleases:
		return c.NewReleases(ctx, count)
	case ports.WindowUpcoming:
		return c.Upcoming(ctx, count)
	case ports.WindowTopRated:
		return c.TopRated(ctx, count)
	default:
		return c.Trending(ctx, count)
	}
}

// Trending returns games added most over the trailing thirty days. Failures
// yield an empty slice; a missing catalog is not fatal to research.
func (c *Client) Trending(ctx context.Context, count int) []domain.CatalogGame {
	today := c.now().UTC()
	monthAgo := today.AddDate(0, 0, -30)

	games, err := c.list(ctx, url.Values{
		"dates":     {monthAgo.Format("2006-01-02") + "," + today.Format("2006-01-02")},
		"ordering":  {"-added"},
		"page_size": {strconv.Itoa(count)},
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("fetch trending games", "error", err)
		}
		return nil
	}
	return games
}

// NewReleases returns games released over the trailing week, newest first.
func (c *Client) NewReleases(ctx context.Context, count int) []domain.CatalogGame {
	today := c.now().UTC()
	weekAgo := today.AddDate(0, 0, -7)

	games, err := c.list(ctx, url.Values{
		"dates":     {weekAgo.Format("2006-01-02") + "," + today.Format("2006-01-02")},
		"ordering":  {"-released"},
		"page_size": {strconv.Itoa(count)},
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("fetch new releases", "error", err)
		}
		return nil
	}
	return games
}

// Upcoming returns the most anticipated games of the next three months.
func (c *Client) Upcoming(ctx context.Context, count int) []domain.CatalogGame {
	today := c.now().UTC()
	horizon := today.AddDate(0, 3, 0)

	games, err := c.list(ctx, url.Values{
		"dates":     {today.Format("2006-01-02") + "," + horizon.Format("2006-01-02")},
		"ordering":  {"-added"},
		"page_size": {strconv.Itoa(count)},
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("fetch upcoming games", "error", err)
		}
		return nil
	}
	return games
}

// TopRated returns the best-reviewed games of the trailing two years.
func (c *Client) TopRated(ctx context.Context, count int) []domain.CatalogGame {
	today := c.now().UTC()
	twoYearsAgo := today.AddDate(-2, 0, 0)

	games, err := c.list(ctx, url.Values{
		"dates":     {twoYearsAgo.Format("2006-01-02") + "," + today.Format("2006-01-02")},
		"ordering":  {"-metacritic"},
		"page_size": {strconv.Itoa(count)},
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("fetch top rated games", "error", err)
		}
		return nil
	}
	return games
}

// Search looks a game up by name.
func (c *Client) Search(ctx context.Context, query string, count int) ([]domain.CatalogGame, error) {
	return c.list(ctx, url.Values{
		"search":    {query},
		"page_size": {strconv.Itoa(count)},
	})
}

// ByID fetches full details for a single game.
func (c *Client) ByID(ctx context.Context, id int64) (domain.CatalogGame, error) {
	var payload gamePayload
	if err := c.get(ctx, fmt.Sprintf("/games/%d", id), url.Values{}, &payload); err != nil {
		return domain.CatalogGame{}, err
	}
	return toDomain(payload), nil
}

func (c *Client) list(ctx context.Context, params url.Values) ([]domain.CatalogGame, error) {
	var payload listPayload
	if err := c.get(ctx, "/games", params, &payload); err != nil {
		return nil, err
	}

	games := make([]domain.CatalogGame, 0, len(payload.Results))
	for _, g := range payload.Results {
		games = append(games, toDomain(g))
	}
	return games, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

func toDomain(g gamePayload) domain.CatalogGame {
	platforms := make([]string, 0, len(g.Platforms))
	for _, p := range g.Platforms {
		platforms = append(platforms, p.Platform.Name)
	}
	genres := make([]string, 0, len(g.Genres))
	for _, genre := range g.Genres {
		genres = append(genres, genre.Name)
	}
	developers := make([]string, 0, len(g.Developers))
	for _, d := range g.Developers {
		developers = append(developers, d.Name)
	}
	publishers := make([]string, 0, len(g.Publishers))
	for _, p := range g.Publishers {
		publishers = append(publishers, p.Name)
	}

	return domain.CatalogGame{
		ID:          g.ID,
		Name:        g.Name,
		Slug:        g.Slug,
		ImageURL:    g.BackgroundImage,
		ReleaseDate: g.Released,
		CriticScore: g.Metacritic,
		UserRating:  g.Rating,
		Platforms:   platforms,
		Genres:      genres,
		Developers:  developers,
		Publishers:  publishers,
		Description: g.DescriptionRaw,
	}
}
