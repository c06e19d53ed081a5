package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/finbrief/pkg/models"
)

// RSSSource represents a configured RSS news feed.
type RSSSource struct {
	Name   string
	RSSURL string
}

// DefaultRSSSources lists technology news RSS feeds used when none are
// configured.
var DefaultRSSSources = []RSSSource{
	{
		Name:   "TechCrunch",
		RSSURL: "https://techcrunch.com/feed/",
	},
	{
		Name:   "The Verge",
		RSSURL: "https://www.theverge.com/rss/index.xml",
	},
	{
		Name:   "Ars Technica",
		RSSURL: "https://feeds.arstechnica.com/arstechnica/index",
	},
}

// newsAPIBaseURL is the NewsAPI endpoint root.
const newsAPIBaseURL = "https://newsapi.org/v2"

// News fetches headlines from NewsAPI and configured RSS sources.
type News struct {
	apiKey   string
	category string
	language string
	baseURL  string
	sources  []RSSSource
	cache    *Cache
	limiter  *RateLimiter
	parser   *gofeed.Parser
}

// NewsOption configures the news source.
type NewsOption func(*News)

// WithNewsBaseURL sets a custom NewsAPI base URL (used in tests).
func WithNewsBaseURL(url string) NewsOption {
	return func(n *News) { n.baseURL = strings.TrimRight(url, "/") }
}

// WithRSSSources sets the RSS feeds consulted in addition to NewsAPI.
func WithRSSSources(sources []RSSSource) NewsOption {
	return func(n *News) { n.sources = sources }
}

// WithNewsCategory sets the NewsAPI top-headlines category.
func WithNewsCategory(category string) NewsOption {
	return func(n *News) { n.category = category }
}

// NewNews creates a news source. An empty apiKey disables the NewsAPI
// endpoint; RSS sources are still consulted.
func NewNews(apiKey string, opts ...NewsOption) *News {
	parser := gofeed.NewParser()
	// gofeed's default client has no timeout; an unresponsive feed
	// would wedge the sequential poll loop indefinitely.
	parser.Client = HTTPClient

	n := &News{
		apiKey:   apiKey,
		category: "technology",
		language: "en",
		baseURL:  newsAPIBaseURL,
		sources:  DefaultRSSSources,
		cache:    NewCache(5 * time.Minute),
		limiter:  NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:   parser,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "News" }

// --- NewsAPI types ---

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
	Code         string           `json:"code,omitempty"`
	Message      string           `json:"message,omitempty"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// --- Public methods ---

// Headlines returns up to limit recent headlines, NewsAPI results
// first, then RSS results newest-first. Failed sources are skipped;
// an error is returned only when every source failed.
func (n *News) Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("news:headlines:%d", limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	var (
		mu      sync.Mutex
		primary []models.NewsArticle
		rss     []models.NewsArticle
		fetched int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	if n.apiKey != "" {
		g.Go(func() error {
			got, err := n.fetchNewsAPI(gctx, limit)
			if err != nil {
				// Non-critical: skip failed source.
				return nil
			}
			mu.Lock()
			primary = got
			fetched++
			mu.Unlock()
			return nil
		})
	}

	for _, src := range n.sources {
		src := src
		g.Go(func() error {
			got, err := n.fetchRSS(gctx, src)
			if err != nil {
				return nil
			}
			mu.Lock()
			rss = append(rss, got...)
			fetched++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if fetched == 0 {
		return nil, fmt.Errorf("all news sources failed")
	}

	sortArticlesByDate(rss)
	articles := append(primary, rss...)

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.cache.Set(cacheKey, articles)
	return articles, nil
}

// --- Internal helpers ---

// fetchNewsAPI queries the NewsAPI top-headlines endpoint.
func (n *News) fetchNewsAPI(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 20 {
		limit = 5
	}

	q := url.Values{}
	q.Set("category", n.category)
	q.Set("language", n.language)
	q.Set("pageSize", fmt.Sprintf("%d", limit))

	reqURL := fmt.Sprintf("%s/top-headlines?%s", n.baseURL, q.Encode())
	body, _, err := doGet(ctx, reqURL, map[string]string{
		"X-Api-Key": n.apiKey,
		"Accept":    "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("newsapi top-headlines: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse newsapi response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s: %s", resp.Code, resp.Message)
	}

	articles := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		na := models.NewsArticle{
			Title:   a.Title,
			URL:     a.URL,
			Source:  coalesce(a.Source.Name, "NewsAPI"),
			Summary: cleanHTML(a.Description),
		}
		if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			na.PublishedAt = ts
		}
		articles = append(articles, na)
	}
	return articles, nil
}

// fetchRSS parses an RSS feed and returns articles.
func (n *News) fetchRSS(ctx context.Context, src RSSSource) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(src.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		a := models.NewsArticle{
			Title:   item.Title,
			URL:     item.Link,
			Source:  src.Name,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// sortArticlesByDate sorts articles by published date (newest first).
// Simple insertion sort — fine for small slices.
func sortArticlesByDate(articles []models.NewsArticle) {
	for i := 1; i < len(articles); i++ {
		key := articles[i]
		j := i - 1
		for j >= 0 && articles[j].PublishedAt.Before(key.PublishedAt) {
			articles[j+1] = articles[j]
			j--
		}
		articles[j+1] = key
	}
}
