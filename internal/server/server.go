package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/config"
	"github.com/jonathan/cv-match/internal/cvfile"
	"github.com/jonathan/cv-match/internal/db"
	"github.com/jonathan/cv-match/internal/llm"
	"github.com/jonathan/cv-match/internal/pipeline"
	"github.com/jonathan/cv-match/internal/server/middleware"
	"github.com/jonathan/cv-match/internal/stages"
)

// Config holds server configuration and dependencies.
type Config struct {
	Port        int
	DatabaseURL string
	// DataRoot is the base directory for artifact storage. Each user's
	// artifacts live under their own subdirectory.
	DataRoot   string
	Client     llm.Client
	Runner     *stages.RunnerConfig
	Logger     *zap.Logger
	UseBrowser bool
}

// Server is the HTTP server.
type Server struct {
	httpServer *http.Server
	db         *db.DB
	dataRoot   string
	client     llm.Client
	runnerCfg  *stages.RunnerConfig
	log        *zap.Logger
	useBrowser bool

	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
}

// New creates a server instance. The database connection is established
// eagerly so a bad DATABASE_URL fails at startup rather than on the first
// request.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Server{
		db:         database,
		dataRoot:   cfg.DataRoot,
		client:     cfg.Client,
		runnerCfg:  cfg.Runner,
		log:        log,
		useBrowser: cfg.UseBrowser,
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	s.userService = NewUserService(database, passwordConfig)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // pipeline runs are slow
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// userStore returns the artifact store rooted at the authenticated user's
// directory. Every request derives its store from the JWT user ID, so one
// user's artifacts are never visible to another.
func (s *Server) userStore(userID uuid.UUID) *artifact.Store {
	return artifact.NewStore(filepath.Join(s.dataRoot, userID.String()))
}

// userPipeline wires a pipeline over the user's store. The provider client
// and runner settings are shared; the store, cache, and selector are not.
func (s *Server) userPipeline(userID uuid.UUID) (*pipeline.Orchestrator, *artifact.Store) {
	store := s.userStore(userID)
	cache := artifact.NewCache(store, nil)
	runner := stages.NewRunner(s.client, cache, s.log, s.runnerCfg)
	return pipeline.NewOrchestrator(cvfile.NewSelector(store), runner, cache, s.log), store
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	requireAuth := middleware.Auth(s.jwtService.AsTokenValidator())

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.Handle("PUT /auth/password", requireAuth(http.HandlerFunc(s.authHandler.UpdatePassword)))

	mux.Handle("POST /analyze", requireAuth(http.HandlerFunc(s.handleAnalyze)))
	mux.Handle("POST /analyze/rerun", requireAuth(http.HandlerFunc(s.handleAnalyzeRerun)))
	mux.Handle("POST /analyze/batch", requireAuth(http.HandlerFunc(s.handleAnalyzeBatch)))

	mux.Handle("GET /companies/{company}/artifacts", requireAuth(http.HandlerFunc(s.handleListArtifacts)))
	mux.Handle("GET /companies/{company}/artifacts/{stage}", requireAuth(http.HandlerFunc(s.handleGetArtifact)))

	mux.Handle("GET /runs", requireAuth(http.HandlerFunc(s.handleListRuns)))
	mux.Handle("GET /runs/{id}", requireAuth(http.HandlerFunc(s.handleGetRun)))

	return mux
}

// Start begins listening and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.db.Close()
	s.log.Info("server stopped")
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
