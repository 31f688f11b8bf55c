package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamcoop/adjudication/adjudication"
	"github.com/liamcoop/adjudication/companyengine"
	"github.com/liamcoop/adjudication/internal/config"
	"github.com/liamcoop/adjudication/internal/logger"
	"github.com/liamcoop/adjudication/rules"
	_ "github.com/lib/pq"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

type Server struct {
	db         *sql.DB
	companies  CompanyDirectory
	engines    *companyengine.Manager
	calculator *adjudication.Calculator
	router     *chi.Mux
}

// NewServer connects to the configured storage and loads every company's rules
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	cacheConfig := rules.CacheConfig{TTL: cfg.RuleCacheTTL}

	if cfg.InMemory() {
		logger.Warn("DATABASE_URL not set, review rules are kept in memory")
		engines, err := companyengine.NewManager(companyengine.InMemoryStores(), cacheConfig)
		if err != nil {
			return nil, err
		}
		return newServer(nil, newMemoryDirectory(), engines, adjudication.NewCalculator(cfg.Formula)), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	engines, err := companyengine.NewManager(func(companyID string) rules.RuleStore {
		return rules.NewPostgresRuleStore(db, companyID)
	}, cacheConfig)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := newServer(db, newPostgresDirectory(db), engines, adjudication.NewCalculator(cfg.Formula))
	if err := s.loadCompanies(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func newServer(db *sql.DB, companies CompanyDirectory, engines *companyengine.Manager, calculator *adjudication.Calculator) *Server {
	s := &Server{
		db:         db,
		companies:  companies,
		engines:    engines,
		calculator: calculator,
	}
	s.setupRoutes()
	return s
}

func (s *Server) loadCompanies(ctx context.Context) error {
	logger.Info("Loading companies from database...")

	companies, err := s.companies.List(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}

	if err := s.engines.LoadCompanies(ids); err != nil {
		return fmt.Errorf("failed to load companies: %w", err)
	}

	logger.Info("Loaded companies", "count", len(ids))
	return nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/adjudications", s.handleAdjudicate)
		r.Post("/adjudications/compare", s.handleCompare)
		r.Post("/claims/prepare", s.handlePrepareClaim)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Post("/", s.handleCreateCompany)

			r.Route("/{companyId}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteCompany)
				r.Post("/reload", s.handleReloadCompany)

				r.Post("/rules", s.handleCreateRule)
				r.Get("/rules", s.handleListRules)
				r.Get("/rules/{ruleId}", s.handleGetRule)
				r.Put("/rules/{ruleId}", s.handleUpdateRule)
				r.Delete("/rules/{ruleId}", s.handleDeleteRule)
			})
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the database connection, if any
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Setup(context.Background(), logger.OptionsFromEnv()); err != nil {
		logger.Warn("logger setup", "error", err)
	}

	server, err := NewServer(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", cfg.Addr(), "formula", cfg.Formula.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
}
