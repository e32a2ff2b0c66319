package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/config"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"github.com/wayBiggger/way-bigger-sub000/storage"
)

// ProjectGenerator produces fresh projects for every domain of a level.
type ProjectGenerator interface {
	GenerateAllDomainsForLevel(ctx context.Context, level models.Level) ([]models.Project, error)
}

// ActiveProjectReader reads the durable store of generated projects.
type ActiveProjectReader interface {
	GetActiveProjectsByLevel(level models.Level) ([]models.GeneratedProject, error)
}

// Dependencies are the collaborators the HTTP layer serves from. CloudCache
// and Store are optional and must be left as nil interfaces when absent.
type Dependencies struct {
	LocalCache storage.ProjectCache
	CloudCache storage.ProjectCache
	Store      ActiveProjectReader
	Generator  ProjectGenerator
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Dependencies) (Server, error) {
	if deps.LocalCache == nil {
		return Server{}, fmt.Errorf("api: local cache is required")
	}
	if deps.Generator == nil {
		return Server{}, fmt.Errorf("api: project generator is required")
	}

	port := config.GetString(c, "PORT", "4000")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	startupTime := time.Now()

	router := newRouter(deps, withConfig(c), withStartupTime(startupTime))

	// Get timeout values from config with sensible defaults
	readTimeout := config.GetSeconds(c, "READ_TIMEOUT_SECONDS", 30*time.Second)
	writeTimeout := config.GetSeconds(c, "WRITE_TIMEOUT_SECONDS", 300*time.Second)
	idleTimeout := config.GetSeconds(c, "IDLE_TIMEOUT_SECONDS", 120*time.Second)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	var router router
	for _, opt := range opts {
		opt(&router)
	}
	if router.startupTime.IsZero() {
		router.startupTime = time.Now()
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(corsMiddleware())

	handlers := initializeHandlers(deps, router.startupTime)

	setupRoutes(chiRouter, handlers)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
