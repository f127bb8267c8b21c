package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/provider/weather"
)

// HandleWeatherView serves GET /api/weather
func (h *PanelHandler) HandleWeatherView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Weather.View())
}

// HandleWeatherSearch serves POST /api/weather?q=London or ?lat=51.5&lon=-0.12
func (h *PanelHandler) HandleWeatherSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseWeatherQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.dash.Weather.Search(fetchContext(r), q))
}

func parseWeatherQuery(r *http.Request) (weather.Query, error) {
	params := r.URL.Query()
	if city := strings.TrimSpace(params.Get("q")); city != "" {
		return weather.ForCity(city), nil
	}

	latRaw, lonRaw := params.Get("lat"), params.Get("lon")
	if latRaw == "" && lonRaw == "" {
		return weather.Query{}, apperror.ValidationFailed("q", "Enter a city name or coordinates")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Query{}, apperror.ValidationFailed("lat", "Latitude must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Query{}, apperror.ValidationFailed("lon", "Longitude must be a number between -180 and 180")
	}
	return weather.ForCoords(lat, lon), nil
}
