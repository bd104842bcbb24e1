package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/config"
	"github.com/dgallion1/billdoc/internal/session"
	"github.com/dgallion1/billdoc/internal/stats"
)

// Server is the HTTP front end for billdoc.
type Server struct {
	router    chi.Router
	sessions  *session.Store
	assembler *assembler.Assembler
	stats     *stats.Generation
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Store, asm *assembler.Assembler, gen *stats.Generation, log *slog.Logger, cfg config.Config) *Server {
	if gen == nil {
		gen = stats.NewGeneration(time.Hour)
	}
	s := &Server{
		sessions:  sessions,
		assembler: asm,
		stats:     gen,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(accessLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleForm)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Put("/slots/{slot}", s.handleUploadSlot)
			r.Get("/slots/{slot}/preview", s.handleSlotPreview)
			r.Post("/generate", s.handleGenerate)
			r.Get("/document", s.handleDocument)
		})
		r.Get("/api/stats/generate", s.handleGenerateStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
