package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/JIVTESH28/facewatch/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Gallery, s.deps.Embedder, s.deps.Identities, s.config.Gallery.Path)
	matchHandler := handlers.NewMatchHandler(s.deps.Gallery, s.deps.Embedder, s.deps.Palette, s.config.Recognizer.Threshold)
	liveHandler := handlers.NewLiveHandler(s.deps.Session)
	askHandler := handlers.NewAskHandler(s.deps.Gallery, s.deps.Provider)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Gallery
		r.Post("/identities", identitiesHandler.Enroll)
		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/{id}", identitiesHandler.Get)
		r.Delete("/identities", identitiesHandler.Reset)
		r.Post("/identities/similar", identitiesHandler.Similar)

		// Single-shot matching
		r.Post("/match", matchHandler.Match)

		// Live recognition session
		r.Post("/live/start", liveHandler.Start)
		r.Post("/live/stop", liveHandler.Stop)
		r.Post("/live/clear", liveHandler.Clear)
		r.Get("/live/state", liveHandler.State)
		r.Get("/live/frame", liveHandler.Frame)
		r.Get("/live/events", liveHandler.Events)

		// Enrollment log Q&A
		r.Post("/ask", askHandler.Ask)
	})
}
