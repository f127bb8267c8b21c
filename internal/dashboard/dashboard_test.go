package dashboard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pulse-dashboard/internal/provider"
	"github.com/sakif/pulse-dashboard/internal/provider/github"
	"github.com/sakif/pulse-dashboard/internal/provider/news"
	"github.com/sakif/pulse-dashboard/internal/provider/stock"
	"github.com/sakif/pulse-dashboard/internal/provider/weather"
)

type fakeWeather struct{}

func (fakeWeather) Fetch(_ context.Context, q weather.Query, _ int) provider.Outcome[provider.ResultSet[weather.Report]] {
	return provider.OK(provider.ResultSet[weather.Report]{Items: []weather.Report{{Place: weather.Place{Name: q.City}}}, Total: 1})
}

type fakeNews struct{}

func (fakeNews) Fetch(_ context.Context, category string, page int) provider.Outcome[provider.ResultSet[news.Article]] {
	return provider.OK(provider.ResultSet[news.Article]{Items: []news.Article{{Title: category, URL: "https://n/1"}}, Total: 30})
}

type fakeStock struct{}

func (fakeStock) Search(_ context.Context, kw string, _ int) provider.Outcome[provider.ResultSet[stock.Match]] {
	return provider.OK(provider.ResultSet[stock.Match]{Items: []stock.Match{{Symbol: "IBM"}}})
}

func (fakeStock) Detail(_ context.Context, m stock.Match) provider.Outcome[stock.Series] {
	return provider.OK(stock.Series{Symbol: m.Symbol})
}

type fakeGitHub struct{}

func (fakeGitHub) Repos(_ context.Context, user string, _ int) provider.Outcome[provider.ResultSet[github.Repo]] {
	return provider.OK(provider.ResultSet[github.Repo]{Items: []github.Repo{{ID: 1, Name: "alpha", Owner: user}}})
}

func (fakeGitHub) Detail(_ context.Context, r github.Repo) provider.Outcome[github.Detail] {
	return provider.OK(github.Detail{Repo: r})
}

func newTestDashboard() *Dashboard {
	return New(Sources{
		Weather: fakeWeather{},
		News:    fakeNews{},
		Stock:   fakeStock{},
		GitHub:  fakeGitHub{},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDashboard_PanelsAreWired(t *testing.T) {
	d := newTestDashboard()
	ctx := context.Background()

	assert.Equal(t, "London", d.Weather.Search(ctx, weather.ForCity("London")).Items[0].Place.Name)
	assert.Equal(t, "Sports", d.News.Search(ctx, "Sports").Items[0].Title)

	d.Stock.Search(ctx, "ib")
	sv, err := d.Stock.Select(ctx, "IBM")
	require.NoError(t, err)
	require.NotNil(t, sv.Detail)
	assert.Equal(t, "IBM", sv.Detail.Symbol)

	d.GitHub.Search(ctx, "octo")
	gv, err := d.GitHub.Select(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, gv.Detail)
	assert.Equal(t, "octo", gv.Detail.Repo.Owner)
}

func TestDashboard_ResetClearsEverything(t *testing.T) {
	d := newTestDashboard()
	ctx := context.Background()

	d.Tabs.Select(2)
	d.Weather.Search(ctx, weather.ForCity("London"))
	d.News.Search(ctx, "Health")
	d.Stock.Search(ctx, "ib")
	d.GitHub.Search(ctx, "octo")

	d.Reset()

	assert.Equal(t, "weather", d.Tabs.Active().ID)
	assert.Empty(t, d.Weather.View().Items)
	assert.Empty(t, d.News.View().Items)
	assert.Empty(t, d.Stock.View().Items)
	assert.Empty(t, d.GitHub.View().Items)
	assert.Equal(t, "", d.GitHub.View().Query)
}
