// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root: every dependency (database, credential
// store, session guard, provider clients, dashboard, handlers) is created
// in New and handed down, so nothing below this package reaches for
// globals or the environment.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → sqlite.DB → credentials.Store ─┐
//	  → session.Guard ─────────────────┼→ service.AuthService → handler.AuthHandler
//	  → auth.TokenService ─────────────┘
//	  → provider clients → dashboard.Dashboard → handler.TabsHandler / PanelHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/config"
	"github.com/sakif/pulse-dashboard/internal/credentials"
	"github.com/sakif/pulse-dashboard/internal/dashboard"
	"github.com/sakif/pulse-dashboard/internal/handler"
	"github.com/sakif/pulse-dashboard/internal/middleware"
	"github.com/sakif/pulse-dashboard/internal/provider"
	"github.com/sakif/pulse-dashboard/internal/provider/github"
	"github.com/sakif/pulse-dashboard/internal/provider/news"
	"github.com/sakif/pulse-dashboard/internal/provider/stock"
	"github.com/sakif/pulse-dashboard/internal/provider/weather"
	sqliteRepo "github.com/sakif/pulse-dashboard/internal/repository/sqlite"
	"github.com/sakif/pulse-dashboard/internal/service"
	"github.com/sakif/pulse-dashboard/internal/session"
)

// Server represents the HTTP server and all its dependencies.
// It owns the database connection and closes it on shutdown.
type Server struct {
	router http.Handler
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// Handlers are the route targets NewRouter mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	Tabs   *handler.TabsHandler
	Panels *handler.PanelHandler
}

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the database and wires every layer.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	store := credentials.NewStore(db, auth.NewPasswordService(), logger)
	guard := session.NewGuard(logger)
	dash := dashboard.New(NewSources(context.Background(), cfg.Providers, logger), logger)
	authService := service.NewAuthService(store, guard, tokens, dash, logger)

	h := Handlers{
		Auth:   handler.NewAuthHandler(authService, tokens.TTL(), cfg.HTTP.CookieSecure, logger),
		Tabs:   handler.NewTabsHandler(dash.Tabs, logger),
		Panels: handler.NewPanelHandler(dash, logger),
	}

	return &Server{
		router: NewRouter(h, tokens, guard, db, logger),
		config: cfg,
		logger: logger,
		db:     db,
	}, nil
}

// NewSources builds the provider clients from configuration.
//
// Every provider gets its own Fetcher so log lines and timeouts are per
// provider. GitHub requests go through an oauth2 client when a token is
// configured; ctx only carries the base client into oauth2.
func NewSources(ctx context.Context, cfg config.ProvidersConfig, logger *slog.Logger) dashboard.Sources {
	base := &http.Client{Transport: http.DefaultTransport}

	return dashboard.Sources{
		Weather: weather.NewClient(
			provider.NewFetcher("openweather", base, cfg.Timeout, logger),
			cfg.OpenWeatherURL, cfg.OpenWeatherKey),
		News: news.NewClient(
			provider.NewFetcher("newsapi", base, cfg.Timeout, logger),
			cfg.NewsAPIURL, cfg.NewsAPIKey),
		Stock: stock.NewClient(
			provider.NewFetcher("alphavantage", base, cfg.Timeout, logger),
			cfg.AlphaVantageURL, cfg.AlphaVantageKey),
		GitHub: github.NewClient(
			provider.NewFetcher("github", github.HTTPClient(ctx, cfg.GitHubToken, base), cfg.Timeout, logger),
			cfg.GitHubURL),
	}
}

// NewRouter mounts middleware and routes.
//
// ROUTES:
//
//	GET  /healthz                     liveness + storage ping
//	GET  /api/session                 current mount (login | dashboard)
//	POST /api/auth/register|login|logout
//	--- session required ---
//	GET  /api/tabs                    tab order + active tab
//	POST /api/tabs/{id}/select
//	GET|POST /api/weather
//	GET|POST /api/news, POST /api/news/page/{n}, POST /api/news/more
//	GET|POST /api/stock, POST /api/stock/select/{symbol}
//	GET|POST /api/github, POST /api/github/page/{n}, POST /api/github/more,
//	POST /api/github/select/{id}
//
// MIDDLEWARE ORDER: RequestID first so the logger can read it, Recoverer
// inside the logger so a recovered panic is logged as a 500.
func NewRouter(h Handlers, tokens *auth.TokenService, guard auth.SessionValidator, db Pinger, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", handleHealth(db, logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.Auth.HandleSession)
		r.Post("/auth/register", h.Auth.HandleRegister)
		r.Post("/auth/login", h.Auth.HandleLogin)
		r.Post("/auth/logout", h.Auth.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(tokens, guard))

			r.Get("/tabs", h.Tabs.HandleView)
			r.Post("/tabs/{id}/select", h.Tabs.HandleSelect)

			r.Get("/weather", h.Panels.HandleWeatherView)
			r.Post("/weather", h.Panels.HandleWeatherSearch)

			r.Get("/news", h.Panels.HandleNewsView)
			r.Post("/news", h.Panels.HandleNewsCategory)
			r.Post("/news/page/{n}", h.Panels.HandleNewsPage)
			r.Post("/news/more", h.Panels.HandleNewsMore)

			r.Get("/stock", h.Panels.HandleStockView)
			r.Post("/stock", h.Panels.HandleStockSearch)
			r.Post("/stock/select/{symbol}", h.Panels.HandleStockSelect)

			r.Get("/github", h.Panels.HandleGitHubView)
			r.Post("/github", h.Panels.HandleGitHubSearch)
			r.Post("/github/page/{n}", h.Panels.HandleGitHubPage)
			r.Post("/github/more", h.Panels.HandleGitHubMore)
			r.Post("/github/select/{id}", h.Panels.HandleGitHubSelect)
		})
	})

	return r
}

func handleHealth(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(ctx); err != nil {
			logger.Error("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}` + "\n"))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests
// within HTTP.ShutdownTimeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	// WriteTimeout must outlast the slowest panel fetch (a GitHub detail
	// is two sequential provider round-trips).
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2*s.config.Providers.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.HTTP.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
