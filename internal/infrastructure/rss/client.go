// Package rss implements the syndicated-news source adapter on top of
// gofeed.
package rss

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

const (
	itemsPerFeed = 10
	maxItems     = 50
	snippetLen   = 300
)

// Client aggregates configured news feeds. Like the discussion adapter it
// never returns an error: a dead or malformed feed contributes nothing.
type Client struct {
	feeds  []config.FeedConfig
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.NewsSource = (*Client)(nil)

// New builds a client from configuration.
func New(feeds []config.FeedConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = "TheGameGazette/1.0"

	return &Client{feeds: feeds, parser: parser, logger: logger}
}

// FetchAll fans out over every configured feed, takes the freshest items
// from each, and returns them sorted most recent first.
func (c *Client) FetchAll(ctx context.Context) []domain.NewsItem {
	var (
		mu  sync.Mutex
		all []domain.NewsItem
		wg  sync.WaitGroup
	)

	for _, feed := range c.feeds {
		wg.Add(1)
		go func(feed config.FeedConfig) {
			defer wg.Done()
			items := c.fetchFeed(ctx, feed)
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(feed)
	}
	wg.Wait()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})

	if len(all) > maxItems {
		all = all[:maxItems]
	}
	return all
}

func (c *Client) fetchFeed(ctx context.Context, feed config.FeedConfig) []domain.NewsItem {
	parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("fetch feed", "feed", feed.Name, "error", err)
		}
		return nil
	}

	items := parsed.Items
	if len(items) > itemsPerFeed {
		items = items[:itemsPerFeed]
	}

	result := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = "Untitled"
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		result = append(result, domain.NewsItem{
			Source:      feed.Name,
			Title:       title,
			Link:        item.Link,
			PublishedAt: published,
			Snippet:     snippet(item.Description),
		})
	}
	return result
}

// snippet strips HTML markup out of a feed description and truncates the
// plain text. Feed descriptions routinely embed full markup.
func snippet(description string) string {
	if description == "" {
		return ""
	}

	text := description
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(text), " ")
	if len(text) > snippetLen {
		cut := snippetLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
