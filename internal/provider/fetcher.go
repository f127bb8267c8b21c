package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// maxBodyBytes bounds how much of a provider response we read.
const maxBodyBytes = 8 << 20

// DefaultTimeout bounds a single provider request when none is configured.
const DefaultTimeout = 10 * time.Second

// Response is a raw provider response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fetcher issues read-only GET requests to one provider.
//
// Every provider is read-only: there is no method to send a body. API keys
// travel in the query string for some providers, so the fetcher logs only
// scheme, host and path, never the raw query.
type Fetcher struct {
	name    string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a fetcher. A nil client means http.DefaultClient.
func NewFetcher(name string, client *http.Client, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		name:    name,
		client:  client,
		timeout: timeout,
		logger:  logger.With(slog.String("provider", name)),
	}
}

// Name is the provider name used in logs.
func (f *Fetcher) Name() string {
	return f.name
}

// Get performs one GET and reads the whole body.
// A returned error is always a transport failure.
func (f *Fetcher) Get(ctx context.Context, u *url.URL, header http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", f.name, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("provider request failed",
			slog.String("endpoint", redact(u)),
			slog.String("error", scrub(err, u).Error()),
		)
		return nil, fmt.Errorf("%s: request failed: %w", f.name, scrub(err, u))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", f.name, err)
	}

	f.logger.Debug("provider request completed",
		slog.String("endpoint", redact(u)),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.Int("bytes", len(body)),
	)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// GetJSON fetches u and maps the response with Decode.
func GetJSON[T any](ctx context.Context, f *Fetcher, u *url.URL, header http.Header, quota *Matcher) Outcome[T] {
	resp, err := f.Get(ctx, u, header)
	if err != nil {
		return Transport[T](err)
	}
	return Decode[T](resp, quota)
}

// Decode is the pure mapping from a raw response to an Outcome.
//
// Order matters: the quota matcher runs before the status check because some
// providers report an exhausted quota with HTTP 200 (Alpha Vantage) and
// others with 403/429 (GitHub, OpenWeather).
func Decode[T any](resp *Response, quota *Matcher) Outcome[T] {
	if resp.Status == http.StatusNoContent {
		var zero T
		return OK(zero)
	}

	var doc any
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		if !resp.OK() {
			return Transport[T](&StatusError{Status: resp.Status})
		}
		return Malformed[T](fmt.Errorf("response is not JSON: %w", err))
	}

	if quota.Match(doc) {
		return QuotaExceeded[T](quota.Message(doc))
	}

	if !resp.OK() {
		return Transport[T](&StatusError{Status: resp.Status, Message: messageOf(doc)})
	}

	var v T
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return Malformed[T](fmt.Errorf("unexpected response shape: %w", err))
	}
	return OK(v)
}

// messageOf pulls the conventional "message" field out of an error body.
func messageOf(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["message"].(string)
	return s
}

// redact drops the query string (which may hold an API key).
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}

// scrub replaces a *url.Error's URL so the key does not leak into logs or
// panel messages.
func scrub(err error, u *url.URL) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: redact(u), Err: uerr.Err}
	}
	return err
}

// Endpoint joins base and path and sets the query.
func Endpoint(base, path string, query url.Values) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("provider: invalid base URL %q: %w", base, err)
	}
	u = u.JoinPath(path)
	u.RawQuery = query.Encode()
	return u, nil
}
