package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lychee-technology/swatches/factory"
	"github.com/lychee-technology/swatches/internal"
	"go.uber.org/zap"
)

// Server represents the HTTP server over the swatch services
type Server struct {
	engine     regenerationRunner
	events     productRegenerator
	storefront swatchReader
	fields     termFieldEditor
	health     func(ctx context.Context) error
	token      string
	logger     *zap.Logger
	mux        *http.ServeMux
	runs       sync.WaitGroup
}

// NewServer creates a new Server instance
func NewServer(engine regenerationRunner, events productRegenerator, storefront swatchReader, fields termFieldEditor, token string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:     engine,
		events:     events,
		storefront: storefront,
		fields:     fields,
		token:      token,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST "+apiPrefix+"/update", s.requireToken(s.handleStartUpdate))
	s.mux.HandleFunc("GET "+apiPrefix+"/update", s.requireToken(s.handleProgress))
	s.mux.HandleFunc("POST "+apiPrefix+"/bulk", s.requireToken(s.handleBulk))
	s.mux.HandleFunc("POST "+apiPrefix+"/events", s.requireToken(s.handleEvent))
	s.mux.HandleFunc("POST "+apiPrefix+"/products/{id}/regenerate", s.requireToken(s.handleRegenerateProduct))
	s.mux.HandleFunc("GET "+apiPrefix+"/products/{id}/swatches", s.requireToken(s.handleSwatches))
	s.mux.HandleFunc("POST "+apiPrefix+"/terms/{taxonomy}/{termID}", s.requireToken(s.handleSaveTerm))
	s.mux.HandleFunc("GET "+apiPrefix+"/terms/{taxonomy}/{termID}/column", s.requireToken(s.handleTermColumn))
	s.mux.HandleFunc("GET "+apiPrefix+"/terms/{taxonomy}/{termID}/form", s.requireToken(s.handleTermForm))
}

// Wait blocks until every background pass started over HTTP has returned.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func main() {
	cfg, err := factory.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	logger, err := factory.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := factory.NewPool(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	plugin, err := factory.New(ctx, cfg, factory.PostgresStores(pool), factory.WithLogger(logger))
	if err != nil {
		sugar.Fatalf("failed to assemble swatch services: %v", err)
	}
	if err := plugin.Installer.Initialize(ctx); err != nil {
		sugar.Fatalf("failed to initialize settings: %v", err)
	}

	if cfg.Server.APIToken == "" {
		sugar.Warn("API_TOKEN is empty, admin endpoints are unauthenticated")
	}

	server := NewServer(plugin.Engine, plugin.Events, plugin.Storefront, plugin.Fields, cfg.Server.APIToken, logger.Named("http"))
	server.health = func(ctx context.Context) error {
		return internal.PostgresHealthCheck(ctx, pool, 2*time.Second)
	}
	server.RegisterRoutes()

	if cfg.Server.RunWorker {
		go func() {
			if err := plugin.Dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Errorw("work dispatcher stopped", "err", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("http shutdown", "err", err)
		}
	}()

	sugar.Infow("starting server", "port", cfg.Server.Port, "worker", cfg.Server.RunWorker)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("server error: %v", err)
	}
	server.Wait()
	sugar.Info("server stopped")
}
