// Package weather is the OpenWeather client behind the weather panel.
//
// A lookup is either a city name or a coordinate pair. Current conditions
// and air quality are fetched together and joined all-or-nothing; the
// administrative region ("state") is best effort.
package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/provider"
)

// DefaultBaseURL is the public OpenWeather API root.
const DefaultBaseURL = "https://api.openweathermap.org"

// StateNotAvailable fills Place.State when no region is known.
const StateNotAvailable = "Not available"

const iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

// OpenWeather answers an exhausted key with {"cod":429,"message":"..."};
// cod is a number on some endpoints and a string on others.
var quotaMatcher = provider.MustMatcher("cod == `429` || cod == '429'", "message")

var aqiLabels = [...]string{"Good", "Fair", "Moderate", "Poor", "Very Poor"}

// Query selects a location. The zero value is an empty query.
type Query struct {
	City     string  `json:"city,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	ByCoords bool    `json:"byCoords,omitempty"`
}

// ForCity builds a city query.
func ForCity(city string) Query {
	return Query{City: city}
}

// ForCoords builds a coordinate query.
func ForCoords(lat, lon float64) Query {
	return Query{Lat: lat, Lon: lon, ByCoords: true}
}

// Empty reports a query with nothing to look up.
func (q Query) Empty() bool {
	return !q.ByCoords && q.City == ""
}

// Place is where a report applies.
type Place struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Pollutants are concentrations in μg/m3.
type Pollutants struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

// Report is the weather panel's single item.
type Report struct {
	Place        Place      `json:"place"`
	Condition    string     `json:"condition"`
	Description  string     `json:"description"`
	IconURL      string     `json:"iconUrl,omitempty"`
	TempC        float64    `json:"tempC"`
	FeelsLikeC   float64    `json:"feelsLikeC"`
	PressureHPa  int        `json:"pressureHpa"`
	Humidity     int        `json:"humidity"`
	VisibilityKm float64    `json:"visibilityKm"`
	WindSpeed    float64    `json:"windSpeed"`
	Sunrise      time.Time  `json:"sunrise"`
	Sunset       time.Time  `json:"sunset"`
	AQI          int        `json:"aqi"`
	AQILabel     string     `json:"aqiLabel"`
	Pollutants   Pollutants `json:"pollutants"`
}

// Key identifies a report for selection.
func Key(r Report) string {
	return r.Place.Name
}

// Client talks to OpenWeather.
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

// Fetch resolves q and returns a one-item result set. The page argument is
// ignored: a lookup has exactly one page.
func (c *Client) Fetch(ctx context.Context, q Query, _ int) provider.Outcome[provider.ResultSet[Report]] {
	if q.Empty() {
		return provider.OK(provider.ResultSet[Report]{})
	}

	place := Place{Lat: q.Lat, Lon: q.Lon}
	if !q.ByCoords {
		geo := c.geocode(ctx, q.City)
		if !geo.Ok() {
			return provider.Retag[Place, provider.ResultSet[Report]](geo)
		}
		place = geo.Value
	}

	weatherURL, err := c.endpoint("data/2.5/weather", place, nil)
	if err != nil {
		return provider.Transport[provider.ResultSet[Report]](err)
	}
	airURL, err := c.endpoint("data/2.5/air_pollution", place, nil)
	if err != nil {
		return provider.Transport[provider.ResultSet[Report]](err)
	}
	reverseURL, err := c.endpoint("geo/1.0/reverse", place, url.Values{"limit": {"1"}})
	if err != nil {
		return provider.Transport[provider.ResultSet[Report]](err)
	}

	var (
		current provider.Outcome[currentWeather]
		air     provider.Outcome[airPollution]
		region  provider.Outcome[[]geoPlace]
	)

	// Conditions and air quality are all-or-nothing. The reverse lookup
	// never fails the group.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		current = provider.GetJSON[currentWeather](gctx, c.fetcher, weatherURL, nil, quotaMatcher)
		return current.AsError()
	})
	g.Go(func() error {
		air = provider.GetJSON[airPollution](gctx, c.fetcher, airURL, nil, quotaMatcher)
		return air.AsError()
	})
	if place.State == "" {
		g.Go(func() error {
			region = provider.GetJSON[[]geoPlace](gctx, c.fetcher, reverseURL, nil, quotaMatcher)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return provider.FromError[provider.ResultSet[Report]](err)
	}

	if region.Ok() && len(region.Value) > 0 {
		r := region.Value[0]
		if place.Name == "" {
			place.Name = r.Name
		}
		if place.Country == "" {
			place.Country = r.Country
		}
		place.State = r.State
	}

	report, err := buildReport(place, current.Value, air.Value)
	if err != nil {
		return provider.Malformed[provider.ResultSet[Report]](err)
	}
	return provider.OK(provider.ResultSet[Report]{Items: []Report{report}, Total: 1})
}

func (c *Client) geocode(ctx context.Context, city string) provider.Outcome[Place] {
	u, err := provider.Endpoint(c.baseURL, "geo/1.0/direct", url.Values{
		"q":     {city},
		"limit": {"5"},
		"appid": {c.apiKey},
	})
	if err != nil {
		return provider.Transport[Place](err)
	}

	o := provider.GetJSON[[]geoPlace](ctx, c.fetcher, u, nil, quotaMatcher)
	if !o.Ok() {
		return provider.Retag[[]geoPlace, Place](o)
	}
	if len(o.Value) == 0 {
		return provider.Malformed[Place](apperror.NotFound("city", city))
	}

	first := o.Value[0]
	return provider.OK(Place{
		Name:    first.Name,
		State:   first.State,
		Country: first.Country,
		Lat:     first.Lat,
		Lon:     first.Lon,
	})
}

func (c *Client) endpoint(path string, p Place, extra url.Values) (*url.URL, error) {
	q := url.Values{
		"lat":   {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(p.Lon, 'f', -1, 64)},
		"appid": {c.apiKey},
	}
	for k, v := range extra {
		q[k] = v
	}
	return provider.Endpoint(c.baseURL, path, q)
}

// Raw OpenWeather shapes. Only the fields the report uses are declared.

type geoPlace struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

type currentWeather struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

type airPollution struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components Pollutants `json:"components"`
	} `json:"list"`
}

// buildReport is the pure mapping from the two joined payloads.
func buildReport(place Place, cw currentWeather, ap airPollution) (Report, error) {
	if cw.Main == nil {
		return Report{}, fmt.Errorf("weather: response has no main block")
	}
	if len(ap.List) == 0 {
		return Report{}, fmt.Errorf("weather: air pollution response has no entries")
	}

	if place.Name == "" {
		place.Name = cw.Name
	}
	if place.Country == "" {
		place.Country = cw.Sys.Country
	}
	if place.State == "" {
		place.State = StateNotAvailable
	}

	r := Report{
		Place:        place,
		TempC:        KelvinToCelsius(cw.Main.Temp),
		FeelsLikeC:   KelvinToCelsius(cw.Main.FeelsLike),
		PressureHPa:  cw.Main.Pressure,
		Humidity:     cw.Main.Humidity,
		VisibilityKm: float64(cw.Visibility) / 1000,
		WindSpeed:    cw.Wind.Speed,
		Sunrise:      time.Unix(cw.Sys.Sunrise, 0).UTC(),
		Sunset:       time.Unix(cw.Sys.Sunset, 0).UTC(),
		AQI:          ap.List[0].Main.AQI,
		AQILabel:     AQILabel(ap.List[0].Main.AQI),
		Pollutants:   ap.List[0].Components,
	}
	if len(cw.Weather) > 0 {
		w := cw.Weather[0]
		r.Condition = w.Main
		r.Description = w.Description
		if w.Icon != "" {
			r.IconURL = fmt.Sprintf(iconURLFormat, w.Icon)
		}
	}
	return r, nil
}

// KelvinToCelsius converts and rounds to two decimals.
func KelvinToCelsius(k float64) float64 {
	return math.Round((k-273.15)*100) / 100
}

// AQILabel names an OpenWeather air quality index (1..5).
func AQILabel(aqi int) string {
	if aqi < 1 || aqi > len(aqiLabels) {
		return "Unknown"
	}
	return aqiLabels[aqi-1]
}
