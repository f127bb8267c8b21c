// Package news is the NewsAPI top-headlines client behind the news panel.
package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/pulse-dashboard/internal/provider"
)

// DefaultBaseURL is the public NewsAPI root.
const DefaultBaseURL = "https://newsapi.org"

// PageSize is how many articles one page requests.
const PageSize = 12

// DefaultCategory is shown before the user picks one.
const DefaultCategory = "General"

// Country is fixed: the dashboard shows US headlines.
const Country = "us"

// Categories lists the selectable categories in display order.
var Categories = []string{"General", "Sports", "Business", "Entertainment", "Health", "Science", "Technology"}

var quotaMatcher = provider.MustMatcher(
	"status == 'error' && (code == 'rateLimited' || code == 'apiKeyExhausted')",
	"message",
)

// NormalizeCategory maps any casing of a known category to its display
// form. ok is false for unknown categories; "" maps to DefaultCategory.
func NormalizeCategory(category string) (string, bool) {
	if category == "" {
		return DefaultCategory, true
	}
	for _, c := range Categories {
		if strings.EqualFold(c, category) {
			return c, true
		}
	}
	return "", false
}

// Article is one headline.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl"`
	Author      string    `json:"author"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Key identifies an article for selection.
func Key(a Article) string {
	return a.URL
}

// Client talks to NewsAPI.
type Client struct {
	fetcher *provider.Fetcher
	baseURL string
	apiKey  string
}

// NewClient creates a client. An empty baseURL means DefaultBaseURL.
func NewClient(f *provider.Fetcher, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: f, baseURL: baseURL, apiKey: apiKey}
}

// Fetch loads one page of headlines for a category.
func (c *Client) Fetch(ctx context.Context, category string, page int) provider.Outcome[provider.ResultSet[Article]] {
	if page < 1 {
		page = 1
	}
	category, ok := NormalizeCategory(category)
	if !ok {
		category = DefaultCategory
	}

	u, err := provider.Endpoint(c.baseURL, "v2/top-headlines", url.Values{
		"country":  {Country},
		"category": {strings.ToLower(category)},
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(PageSize)},
	})
	if err != nil {
		return provider.Transport[provider.ResultSet[Article]](err)
	}

	// The key goes in a header so it never appears in a URL.
	header := http.Header{"X-Api-Key": {c.apiKey}}

	o := provider.GetJSON[headlines](ctx, c.fetcher, u, header, quotaMatcher)
	if !o.Ok() {
		return provider.Retag[headlines, provider.ResultSet[Article]](o)
	}
	rs, err := mapHeadlines(o.Value)
	if err != nil {
		return provider.Malformed[provider.ResultSet[Article]](err)
	}
	return provider.OK(rs)
}

type headlines struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []rawArticle `json:"articles"`
}

type rawArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
}

// mapHeadlines drops articles without a title, description or image, which
// the source feed includes routinely.
func mapHeadlines(h headlines) (provider.ResultSet[Article], error) {
	if h.Status != "ok" {
		if h.Message != "" {
			return provider.ResultSet[Article]{}, fmt.Errorf("news: status %q: %s", h.Status, h.Message)
		}
		return provider.ResultSet[Article]{}, fmt.Errorf("news: unexpected status %q", h.Status)
	}

	items := make([]Article, 0, len(h.Articles))
	for _, a := range h.Articles {
		if a.Title == "" || a.Description == "" || a.URLToImage == "" {
			continue
		}
		author := a.Author
		if author == "" {
			author = "Unknown"
		}
		items = append(items, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			Author:      author,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return provider.ResultSet[Article]{Items: items, Total: h.TotalResults}, nil
}

// TotalPages is ceil(totalResults / PageSize).
func TotalPages(totalResults int) int {
	if totalResults <= 0 {
		return 0
	}
	return (totalResults + PageSize - 1) / PageSize
}

// PageWindow returns the page buttons around current: at most two on each
// side, clamped to [1, totalPages].
func PageWindow(current, totalPages int) []int {
	lo := max(1, current-2)
	hi := min(totalPages, current+2)
	if hi < lo {
		return nil
	}
	pages := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		pages = append(pages, p)
	}
	return pages
}
