package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hot-seat/internal/broadcast"
	"hot-seat/internal/metrics"
	"hot-seat/internal/progression"
	"hot-seat/internal/store"
)

type Options struct {
	Orchestrator *progression.Orchestrator
	Feed         *store.Feed
	Broadcaster  broadcast.Broadcaster
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

type Server struct {
	orch     *progression.Orchestrator
	hub      *wsHub
	metrics  *metrics.Metrics
	log      *zap.Logger
	validate *validator.Validate
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("server")
	return &Server{
		orch:     opts.Orchestrator,
		hub:      newWSHub(opts.Feed, opts.Broadcaster, opts.Metrics, log),
		metrics:  opts.Metrics,
		log:      log,
		validate: newValidator(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/delete-player", s.handleDeletePlayer)
	r.Get("/ws/rooms/{roomID}", s.handleWebsocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Post("/rooms", s.handleCreateRoom)
		r.Post("/rooms/join", s.handleJoinRoom)
		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/", s.handleGameState)
			r.Post("/start", s.handleStartGame)
			r.Post("/finish-voting", s.handleFinishVoting)
			r.Post("/resume", s.handleResume)
			r.Post("/slideshow", s.handleSlideshow)
		})
		r.Route("/turns/{turnID}", func(r chi.Router) {
			r.Get("/", s.handleGetTurn)
			r.Post("/category", s.handleSelectCategory)
			r.Post("/scenario", s.handleSelectScenario)
			r.Post("/answers", s.handleSubmitAnswer)
			r.Post("/advance", s.handleAdvanceTurn)
		})
		r.Post("/answers/{answerID}/votes", s.handleSubmitVote)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Type: "not_found", Message: "endpoint not found"}})
	})
	return r
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.hub.Close()
}
