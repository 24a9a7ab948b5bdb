// Package reddit implements the community-discussion source adapter.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// Client fetches discussion posts from the public listing API. Per the
// research contract it never returns an error: every failure degrades to
// an empty result so the pipeline can proceed with partial data.
type Client struct {
	baseURL   string
	userAgent string
	subs      []string
	topSubs   []string
	perSub    int
	maxPosts  int
	http      *http.Client
	logger    *slog.Logger
}

var _ ports.DiscussionSource = (*Client)(nil)

// New builds a client from configuration.
func New(cfg config.RedditConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		subs:      cfg.Subreddits,
		topSubs:   cfg.TopSubreddits,
		perSub:    cfg.PostsPerSubreddit,
		maxPosts:  cfg.MaxPosts,
		http:      httpClient,
		logger:    logger,
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title         string  `json:"title"`
				Subreddit     string  `json:"subreddit"`
				URL           string  `json:"url"`
				Permalink     string  `json:"permalink"`
				Score         int     `json:"score"`
				NumComments   int     `json:"num_comments"`
				Author        string  `json:"author"`
				Selftext      string  `json:"selftext"`
				CreatedUTC    float64 `json:"created_utc"`
				Stickied      bool    `json:"stickied"`
				Over18        bool    `json:"over_18"`
				LinkFlairText string  `json:"link_flair_text"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchPosts fans out over the configured subreddits for the given sort
// mode, then sorts by score, dedups near-identical titles, and caps the
// result to bound downstream prompt size.
func (c *Client) FetchPosts(ctx context.Context, sortMode ports.DiscussionSort, limit int) []domain.DiscussionPost {
	subs := c.subs
	if sortMode == ports.SortTop && len(c.topSubs) > 0 {
		subs = c.topSubs
	}

	var (
		mu  sync.Mutex
		all []domain.DiscussionPost
		wg  sync.WaitGroup
	)

	for _, sub := range subs {
		wg.Add(1)
		go func(sub string) {
			defer wg.Done()
			posts := c.fetchSubreddit(ctx, sub, sortMode)
			mu.Lock()
			all = append(all, posts...)
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	seen := map[string]struct{}{}
	unique := all[:0]
	for _, p := range all {
		key := titleKey(p.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, p)
	}

	if limit <= 0 || limit > c.maxPosts {
		limit = c.maxPosts
	}
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

func (c *Client) fetchSubreddit(ctx context.Context, sub string, sortMode ports.DiscussionSort) []domain.DiscussionPost {
	url := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&t=day", c.baseURL, sub, sortMode, c.perSub)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.warn("build request", sub, err)
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("fetch subreddit", sub, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.warn("fetch subreddit", sub, fmt.Errorf("status %s", resp.Status))
		return nil
	}

	var payload listing
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.warn("decode listing", sub, err)
		return nil
	}

	posts := make([]domain.DiscussionPost, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		d := child.Data
		if d.Stickied || d.Over18 {
			continue
		}
		body := capBytes(d.Selftext, maxBodyLen)
		posts = append(posts, domain.DiscussionPost{
			Title:        d.Title,
			Community:    d.Subreddit,
			URL:          d.URL,
			Permalink:    "https://reddit.com" + d.Permalink,
			Score:        d.Score,
			CommentCount: d.NumComments,
			Author:       d.Author,
			Body:         body,
			Flair:        d.LinkFlairText,
			CreatedAt:    time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts
}

const maxBodyLen = 500

// capBytes truncates s to at most max bytes without splitting a multibyte
// rune.
func capBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// titleKey normalizes a title for near-duplicate detection across
// subreddits reposting the same story.
func titleKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if len(key) > 50 {
		key = key[:50]
	}
	return key
}

func (c *Client) warn(msg, sub string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "subreddit", sub, "error", err)
	}
}
