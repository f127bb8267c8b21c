// Package github is the GitHub REST client behind the repositories panel.
//
// Listing is paged ten repositories at a time. Selecting a repository loads
// its recent commits, contributors and stats concurrently (all-or-nothing),
// then the language breakdown on a best-effort basis.
package github

import (
	"cmp"
	"context"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/pulse-dashboard/internal/provider"
)

// DefaultBaseURL is the public GitHub REST root.
const DefaultBaseURL = "https://api.github.com"

// PerPage is both the repository page size and the number of commits shown.
const PerPage = 10

var quotaMatcher = provider.MustMatcher("contains(message || '', 'rate limit')", "message")

// HTTPClient returns the client GitHub requests go through. With a token it
// is an oauth2 client that sets "Authorization: Bearer <token>" on every
// request; without one, anonymous access (60 requests/hour) over base.
func HTTPClient(ctx context.Context, token string, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if token == "" {
		return base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// Repo is one listed repository.
type Repo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
}

// Key identifies a repository for selection.
func Key(r Repo) string {
	return strconv.FormatInt(r.ID, 10)
}

// Commit is a recent commit, message trimmed to its first line.
type Commit struct {
	SHA      string    `json:"sha"`
	ShortSHA string    `json:"shortSha"`
	Message  string    `json:"message"`
	Author   string    `json:"author"`
	Date     time.Time `json:"date"`
	URL      string    `json:"url"`
}

// Contributor is one contributor and their commit count.
type Contributor struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatarUrl"`
	Contributions int    `json:"contributions"`
}

// Stats are repository counters.
type Stats struct {
	OpenIssues    int       `json:"openIssues"`
	Watchers      int       `json:"watchers"`
	Network       int       `json:"network"`
	DefaultBranch string    `json:"defaultBranch"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Language is one entry of the language breakdown.
type Language struct {
	Name    string  `json:"name"`
	Bytes   int64   `json:"bytes"`
	Percent float64 `json:"percent"` // one decimal
}

// Detail is what a selected repository shows.
// LanguagesError is set when the breakdown failed; the rest is still valid.
type Detail struct {
	Repo           Repo          `json:"repo"`
	Commits        []Commit      `json:"commits"`
	Contributors   []Contributor `json:"contributors"`
	Stats          Stats         `json:"stats"`
	Languages      []Language    `json:"languages"`
	LanguagesError string        `json:"languagesError,omitempty"`
}

// Client talks to the GitHub REST API.
type Client struct {
	fetcher *provider.Fetcher
	baseURL string
}

// NewClient creates a client. Authentication, when any, lives in the
// fetcher's http.Client (see HTTPClient).
func NewClient(f *provider.Fetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: f, baseURL: baseURL}
}

var apiHeader = http.Header{
	"Accept":               {"application/vnd.github+json"},
	"X-Github-Api-Version": {"2022-11-28"},
}

// Repos lists one page of a user's public repositories.
// GitHub gives no total, so Total stays zero.
func (c *Client) Repos(ctx context.Context, user string, page int) provider.Outcome[provider.ResultSet[Repo]] {
	user = strings.TrimSpace(user)
	if user == "" {
		return provider.OK(provider.ResultSet[Repo]{})
	}
	if page < 1 {
		page = 1
	}

	u, err := provider.Endpoint(c.baseURL, "users/"+url.PathEscape(user)+"/repos", url.Values{
		"per_page": {strconv.Itoa(PerPage)},
		"page":     {strconv.Itoa(page)},
	})
	if err != nil {
		return provider.Transport[provider.ResultSet[Repo]](err)
	}

	o := provider.GetJSON[[]rawRepo](ctx, c.fetcher, u, apiHeader, quotaMatcher)
	if !o.Ok() {
		return provider.Retag[[]rawRepo, provider.ResultSet[Repo]](o)
	}
	items := make([]Repo, 0, len(o.Value))
	for _, r := range o.Value {
		items = append(items, r.toRepo())
	}
	return provider.OK(provider.ResultSet[Repo]{Items: items})
}

// Detail loads everything shown for a selected repository.
func (c *Client) Detail(ctx context.Context, repo Repo) provider.Outcome[Detail] {
	base := "repos/" + url.PathEscape(repo.Owner) + "/" + url.PathEscape(repo.Name)

	commitsURL, err := provider.Endpoint(c.baseURL, base+"/commits", url.Values{"per_page": {strconv.Itoa(PerPage)}})
	if err != nil {
		return provider.Transport[Detail](err)
	}
	// Same base as commitsURL, so these cannot fail.
	contributorsURL, _ := provider.Endpoint(c.baseURL, base+"/contributors", nil)
	repoURL, _ := provider.Endpoint(c.baseURL, base, nil)
	languagesURL, _ := provider.Endpoint(c.baseURL, base+"/languages", nil)

	var (
		commits      provider.Outcome[[]rawCommit]
		contributors provider.Outcome[[]rawContributor]
		stats        provider.Outcome[rawRepo]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		commits = provider.GetJSON[[]rawCommit](gctx, c.fetcher, commitsURL, apiHeader, quotaMatcher)
		return commits.AsError()
	})
	g.Go(func() error {
		contributors = provider.GetJSON[[]rawContributor](gctx, c.fetcher, contributorsURL, apiHeader, quotaMatcher)
		return contributors.AsError()
	})
	g.Go(func() error {
		stats = provider.GetJSON[rawRepo](gctx, c.fetcher, repoURL, apiHeader, quotaMatcher)
		return stats.AsError()
	})
	if err := g.Wait(); err != nil {
		return provider.FromError[Detail](err)
	}

	d := Detail{
		Repo:         repo,
		Commits:      mapCommits(commits.Value),
		Contributors: mapContributors(contributors.Value),
		Stats:        stats.Value.toStats(),
	}

	langs := provider.GetJSON[map[string]int64](ctx, c.fetcher, languagesURL, apiHeader, quotaMatcher)
	if langs.Ok() {
		d.Languages = LanguageShares(langs.Value)
	} else {
		d.LanguagesError = langs.Message()
	}
	return provider.OK(d)
}

type rawRepo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	WatchersCount   int       `json:"watchers_count"`
	NetworkCount    int       `json:"network_count"`
	DefaultBranch   string    `json:"default_branch"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r rawRepo) toRepo() Repo {
	return Repo{
		ID:          r.ID,
		Name:        r.Name,
		Owner:       r.Owner.Login,
		Description: r.Description,
		URL:         r.HTMLURL,
		Language:    r.Language,
		Stars:       r.StargazersCount,
		Forks:       r.ForksCount,
	}
}

func (r rawRepo) toStats() Stats {
	return Stats{
		OpenIssues:    r.OpenIssuesCount,
		Watchers:      r.WatchersCount,
		Network:       r.NetworkCount,
		DefaultBranch: r.DefaultBranch,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type rawCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type rawContributor struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
}

func mapCommits(raw []rawCommit) []Commit {
	out := make([]Commit, 0, len(raw))
	for _, c := range raw {
		msg, _, _ := strings.Cut(c.Commit.Message, "\n")
		short := c.SHA
		if len(short) > 7 {
			short = short[:7]
		}
		out = append(out, Commit{
			SHA:      c.SHA,
			ShortSHA: short,
			Message:  msg,
			Author:   c.Commit.Author.Name,
			Date:     c.Commit.Author.Date,
			URL:      c.HTMLURL,
		})
	}
	return out
}

func mapContributors(raw []rawContributor) []Contributor {
	out := make([]Contributor, 0, len(raw))
	for _, c := range raw {
		out = append(out, Contributor(c))
	}
	return out
}

// LanguageShares turns GitHub's bytes-per-language map into percentages
// rounded to one decimal, largest first.
func LanguageShares(bytes map[string]int64) []Language {
	var total int64
	for _, n := range bytes {
		total += n
	}
	if total == 0 {
		return []Language{}
	}

	out := make([]Language, 0, len(bytes))
	for name, n := range bytes {
		pct := float64(n) / float64(total) * 100
		out = append(out, Language{
			Name:    name,
			Bytes:   n,
			Percent: math.Round(pct*10) / 10,
		})
	}
	slices.SortFunc(out, func(a, b Language) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
