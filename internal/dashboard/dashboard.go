// Package dashboard assembles the tab shell and the four feature panels
// that make up the signed-in view.
package dashboard

import (
	"context"
	"log/slog"

	"github.com/sakif/pulse-dashboard/internal/panel"
	"github.com/sakif/pulse-dashboard/internal/provider"
	"github.com/sakif/pulse-dashboard/internal/provider/github"
	"github.com/sakif/pulse-dashboard/internal/provider/news"
	"github.com/sakif/pulse-dashboard/internal/provider/stock"
	"github.com/sakif/pulse-dashboard/internal/provider/weather"
	"github.com/sakif/pulse-dashboard/internal/tabs"
)

// Panel types, one per tab.
type (
	WeatherPanel = panel.Panel[weather.Query, weather.Report, panel.None]
	NewsPanel    = panel.Panel[string, news.Article, panel.None]
	StockPanel   = panel.Panel[string, stock.Match, stock.Series]
	GitHubPanel  = panel.Panel[string, github.Repo, github.Detail]
)

// WeatherSource is satisfied by *weather.Client.
type WeatherSource interface {
	Fetch(ctx context.Context, q weather.Query, page int) provider.Outcome[provider.ResultSet[weather.Report]]
}

// NewsSource is satisfied by *news.Client.
type NewsSource interface {
	Fetch(ctx context.Context, category string, page int) provider.Outcome[provider.ResultSet[news.Article]]
}

// StockSource is satisfied by *stock.Client.
type StockSource interface {
	Search(ctx context.Context, keywords string, page int) provider.Outcome[provider.ResultSet[stock.Match]]
	Detail(ctx context.Context, m stock.Match) provider.Outcome[stock.Series]
}

// GitHubSource is satisfied by *github.Client.
type GitHubSource interface {
	Repos(ctx context.Context, user string, page int) provider.Outcome[provider.ResultSet[github.Repo]]
	Detail(ctx context.Context, repo github.Repo) provider.Outcome[github.Detail]
}

// Sources are the remote data behind the panels.
type Sources struct {
	Weather WeatherSource
	News    NewsSource
	Stock   StockSource
	GitHub  GitHubSource
}

// Dashboard is the state shown while signed in.
type Dashboard struct {
	Tabs    *tabs.Router
	Weather *WeatherPanel
	News    *NewsPanel
	Stock   *StockPanel
	GitHub  *GitHubPanel

	logger *slog.Logger
}

// New builds the dashboard with the default tabs.
func New(src Sources, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		Tabs: tabs.New(tabs.Default...),
		Weather: panel.New(panel.Config[weather.Query, weather.Report, panel.None]{
			Name:   "weather",
			Fetch:  src.Weather.Fetch,
			Key:    weather.Key,
			Logger: logger,
		}),
		News: panel.New(panel.Config[string, news.Article, panel.None]{
			Name:   "news",
			Fetch:  src.News.Fetch,
			Key:    news.Key,
			Logger: logger,
		}),
		Stock: panel.New(panel.Config[string, stock.Match, stock.Series]{
			Name:   "stock",
			Fetch:  src.Stock.Search,
			Key:    stock.Key,
			Detail: src.Stock.Detail,
			Logger: logger,
		}),
		GitHub: panel.New(panel.Config[string, github.Repo, github.Detail]{
			Name:   "github",
			Fetch:  src.GitHub.Repos,
			Key:    github.Key,
			Detail: src.GitHub.Detail,
			Logger: logger,
		}),
		logger: logger,
	}
}

// Reset returns every panel and the tab order to their initial state.
// Called on logout: the shell unmounts and nothing of it survives.
func (d *Dashboard) Reset() {
	d.Tabs.Reset()
	d.Weather.Reset()
	d.News.Reset()
	d.Stock.Reset()
	d.GitHub.Reset()
	d.logger.Debug("dashboard state reset")
}
