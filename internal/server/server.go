// Package server exposes the site over HTTP: server-rendered pages, the
// load-more API, the sitemap and operational endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"newsroom/web/internal/content"
	"newsroom/web/internal/database"
	"newsroom/web/internal/feed"
	"newsroom/web/internal/server/api"
	"newsroom/web/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options wires the server to its stores.
type Options struct {
	Content *content.Gateway
	Feed    *feed.Aggregator
	// News serves /news from a periodically refreshed snapshot. When nil
	// the ticker is read on every request.
	News *feed.Revalidator
	// DB is pinged by the health check when set.
	DB *database.DB

	Images         view.ImageBuilder
	SiteURL        string
	VisualEditing  bool
	NewsRevalidate time.Duration
}

// Server renders the site.
type Server struct {
	opts     Options
	pages    map[string]*template.Template
	renderer view.Renderer
	router   *mux.Router
	now      func() time.Time
}

// New parses the templates and registers every route.
func New(opts Options) (*Server, error) {
	if opts.Content == nil || opts.Feed == nil {
		return nil, errors.New("server: content gateway and feed aggregator are required")
	}
	if opts.NewsRevalidate <= 0 {
		opts.NewsRevalidate = 300 * time.Second
	}

	s := &Server{
		opts:     opts,
		renderer: view.Renderer{Images: opts.Images},
		router:   mux.NewRouter(),
		now:      time.Now,
	}
	if err := s.loadTemplates(); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	static, _ := fs.Sub(staticFS, "static")
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	loadMore := api.NewLoadMoreHandler(s.opts.Content, s)

	s.router.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/sitemap.xml", s.handleSitemap).Methods(http.MethodGet)
	s.router.HandleFunc("/api/articles/more", loadMore.GetMore).Methods(http.MethodGet)
	s.router.HandleFunc("/news", s.handleNews).Methods(http.MethodGet)
	s.router.HandleFunc("/category/{category}", s.handleCategory).Methods(http.MethodGet)
	s.router.HandleFunc("/posts/{slug}", s.handlePost).Methods(http.MethodGet)
	s.router.HandleFunc("/{category}/{slug}", s.handleCategoryArticle).Methods(http.MethodGet)
	s.router.HandleFunc("/{slug}", s.handlePage).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handleHome).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
}

// Handler returns the router behind the request logging chain.
func (s *Server) Handler(logger zerolog.Logger) http.Handler {
	// Set up middleware chain for logging and request tracking
	h := hlog.NewHandler(logger)(s.router)
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)
	return h
}

// RunServer starts the HTTP server with graceful shutdown support.
// It handles OS signals for clean termination.
func RunServer(s *Server, listenAddr string, logger zerolog.Logger) error {
	// Add service identifier to the logger
	logger = logger.With().Str("service", "newsroom-web").Logger()

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           s.Handler(logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("Web server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK,
// or 503 when the feed database does not answer.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Health check request received")

	if s.opts.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.DB.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("Health check database ping failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write([]byte("OK"))
	if err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	} else {
		log.Debug().Int("bytes_written", n).Msg("Health check response sent")
	}
}
