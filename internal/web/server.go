package web

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tim-schilling/publicworks/internal/analysis"
	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/debug"
	"github.com/tim-schilling/publicworks/internal/metrics"
	"github.com/tim-schilling/publicworks/internal/store"
	"github.com/tim-schilling/publicworks/internal/web/handlers"
	"github.com/tim-schilling/publicworks/internal/web/middleware"
)

// Server is the dashboard query API
type Server struct {
	config     *config.Config
	store      store.Store
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
}

// NewServer creates a server answering queries from s
func NewServer(cfg *config.Config, s store.Store) *Server {
	server := &Server{
		config: cfg,
		store:  s,
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      server.handler,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	handlerConfig := &handlers.Config{ExportEnabled: s.config.ExportEnabled}
	engine := analysis.NewEngine(s.store)
	apiHandler := &handlers.APIHandler{Engine: engine, Store: s.store, Config: handlerConfig}
	exportHandler := &handlers.ExportHandler{Engine: engine, Config: handlerConfig}

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/aggregate", apiHandler.Aggregate).Methods("GET")
	api.HandleFunc("/chart", apiHandler.Chart).Methods("GET")
	api.HandleFunc("/options", apiHandler.Options).Methods("GET")
	api.HandleFunc("/stats", apiHandler.GetStats).Methods("GET")

	if s.config.ExportEnabled {
		api.HandleFunc("/export", exportHandler.ExportData).Methods("GET")
	}

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// Wrapped outside the router so preflight requests never reach route matching.
	s.handler = middleware.CORS(s.config.Web.AllowedOrigin)(middleware.RequestLogging()(s.router))
}

// Start serves until ctx is cancelled or the process is interrupted, then
// shuts down gracefully and closes the store.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := debug.Logger()
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if err := s.store.Close(); err != nil {
		log.WithError(err).Error("store close")
	}

	log.Info("Server stopped")
	return serveErr
}
