package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

var testQuota = MustMatcher("message != null && contains(message, 'rate limit')", "message")

func newTestFetcher(timeout time.Duration) *Fetcher {
	return NewFetcher("test", nil, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"ok", 200, `{"name":"a","count":2}`, KindOK, ""},
		{"quota on 403", 403, `{"message":"API rate limit exceeded for 1.2.3.4"}`, KindQuotaExceeded, "API rate limit exceeded for 1.2.3.4"},
		{"quota on 200", 200, `{"message":"you hit the rate limit"}`, KindQuotaExceeded, "you hit the rate limit"},
		{"not found", 404, `{"message":"Not Found"}`, KindTransport, "provider returned HTTP 404: Not Found"},
		{"server error without json", 502, `<html>bad gateway</html>`, KindTransport, "provider returned HTTP 502"},
		{"no content", 204, ``, KindOK, ""},
		{"not json", 200, `<html>`, KindMalformed, ""},
		{"wrong shape", 200, `{"name":5}`, KindMalformed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Decode[payload](&Response{Status: tt.status, Body: []byte(tt.body)}, testQuota)

			assert.Equal(t, tt.kind, o.Kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, o.Message())
			}
		})
	}
}

func TestDecode_ValueOnSuccess(t *testing.T) {
	o := Decode[payload](&Response{Status: 200, Body: []byte(`{"name":"a","count":2}`)}, nil)

	require.True(t, o.Ok())
	assert.Equal(t, payload{Name: "a", Count: 2}, o.Value)
}

func TestGetJSON_AgainstServer(t *testing.T) {
	var gotAccept, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"octocat","count":3}`)
	}))
	defer srv.Close()

	f := newTestFetcher(time.Second)
	u, err := Endpoint(srv.URL, "/users/x", url.Values{"page": {"2"}})
	require.NoError(t, err)

	o := GetJSON[payload](context.Background(), f, u, http.Header{"Authorization": {"Bearer t"}}, testQuota)

	require.True(t, o.Ok(), o.Message())
	assert.Equal(t, "octocat", o.Value.Name)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, "page=2", gotQuery)
}

func TestGetJSON_TimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newTestFetcher(50 * time.Millisecond)

	o := GetJSON[payload](context.Background(), f, mustURL(t, srv.URL), nil, nil)

	assert.Equal(t, KindTransport, o.Kind)
}

func TestFetcher_ErrorsDoNotLeakQuery(t *testing.T) {
	f := newTestFetcher(time.Second)
	u := mustURL(t, "http://127.0.0.1:1/data?appid=secret-key")

	_, err := f.Get(context.Background(), u, nil)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	var uerr *url.Error
	assert.True(t, errors.As(err, &uerr))
}

func TestEndpoint(t *testing.T) {
	u, err := Endpoint("https://api.example.com/v2/", "top-headlines", url.Values{"country": {"us"}, "page": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v2/top-headlines?country=us&page=1", u.String())

	_, err = Endpoint("://bad", "x", nil)
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://api.example.com/query", redact(mustURL(t, "https://user:pw@api.example.com/query?apikey=k")))
}
