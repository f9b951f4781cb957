// Package worker hosts the HTTP service fronting the memory pipeline.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memkeep/memkeep/internal/config"
	"github.com/memkeep/memkeep/internal/db/sqlite"
	"github.com/memkeep/memkeep/internal/dedup"
	"github.com/memkeep/memkeep/internal/project"
	"github.com/memkeep/memkeep/internal/worker/queue"
	"github.com/memkeep/memkeep/internal/worker/sdk"
	"github.com/memkeep/memkeep/internal/worker/sse"
)

// Service wires the store, the processing pipeline and the HTTP surface
// together.
type Service struct {
	version    string
	instanceID string
	config     *config.Config

	store            *sqlite.Store
	sessionStore     *sqlite.SessionStore
	observationStore *sqlite.ObservationStore
	summaryStore     *sqlite.SummaryStore
	promptStore      *sqlite.PromptStore

	resolver    *project.Resolver
	detector    *dedup.Detector
	queue       *queue.Queue
	broadcaster *sse.Broadcaster

	router     *chi.Mux
	httpServer *http.Server

	ctx       context.Context
	cancel    context.CancelFunc
	ready     atomic.Bool
	startTime time.Time
	log       zerolog.Logger
}

// New assembles a Service around an opened store. The generator is
// required; a nil embedder disables vector dedup.
func New(version string, cfg *config.Config, store *sqlite.Store, generator sdk.Generator, embedder sdk.Embedder) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	sessionStore := sqlite.NewSessionStore(store)
	observationStore := sqlite.NewObservationStore(store)
	summaryStore := sqlite.NewSummaryStore(store)
	promptStore := sqlite.NewPromptStore(store)

	detector := dedup.New(observationStore)
	broadcaster := sse.NewBroadcaster()

	processor := queue.NewProcessor(
		sessionStore,
		observationStore,
		summaryStore,
		generator,
		embedder,
		detector,
		time.Duration(cfg.DedupWindowMinutes)*time.Minute,
		broadcaster,
	)

	svc := &Service{
		version:          version,
		instanceID:       uuid.NewString(),
		config:           cfg,
		store:            store,
		sessionStore:     sessionStore,
		observationStore: observationStore,
		summaryStore:     summaryStore,
		promptStore:      promptStore,
		resolver:         project.NewResolver(),
		detector:         detector,
		queue:            queue.New(processor.Process),
		broadcaster:      broadcaster,
		router:           chi.NewRouter(),
		ctx:              ctx,
		cancel:           cancel,
		startTime:        time.Now(),
		log:              log.With().Str("component", "worker").Logger(),
	}

	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/events", s.broadcaster.ServeHTTP)

	s.router.Post("/observation", s.handleObservation)
	s.router.Post("/summary", s.handleSummary)
	s.router.Post("/prompt", s.handlePrompt)
	s.router.Post("/complete", s.handleComplete)

	s.router.Get("/context", s.handleContext)
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/timeline", s.handleTimeline)
	s.router.Get("/decisions", s.handleDecisions)
	s.router.Get("/find_by_file", s.handleFindByFile)
	s.router.Get("/observation_by_id", s.handleObservationByID)
	s.router.Get("/projects", s.handleProjects)

	s.router.Delete("/session", s.handleDeleteSession)
}

// Router exposes the route table, mainly for tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start binds the listener and serves until Shutdown. Blocks.
func (s *Service) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.WorkerPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
	}

	s.ready.Store(true)
	s.log.Info().
		Str("addr", addr).
		Str("version", s.version).
		Str("instanceId", s.instanceID).
		Msg("Worker listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for the pipeline to
// drain within the configured grace period. Queued work still pending
// when the grace period expires is dropped.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.cancel()

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}

	if err := s.queue.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Pending reports the number of queued pipeline messages.
func (s *Service) Pending() int {
	return s.queue.Pending()
}
