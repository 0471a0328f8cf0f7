package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-whitelist/internal/constants"
	"github.com/kozaktomas/face-whitelist/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	whitelistHandler := handlers.NewWhitelistHandler(s.wl, s.jobManager, s.config.Whitelist.ID, s.config.Whitelist.Folder, s.log)
	recognizeHandler := handlers.NewRecognizeHandler(s.wl, s.bell, s.log)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Build jobs (long-running, streamed)
		r.Get("/whitelist", whitelistHandler.Get)
		r.Post("/whitelist/build", whitelistHandler.StartBuild)
		r.Get("/whitelist/build/{jobId}", whitelistHandler.BuildStatus)
		r.Get("/whitelist/build/{jobId}/events", whitelistHandler.BuildEvents)
		r.Delete("/whitelist/build/{jobId}", whitelistHandler.CancelBuild)

		// Synchronous workflows
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(constants.RequestTimeout))

			r.Post("/persons", whitelistHandler.AddPerson)
			r.Delete("/persons/{name}", whitelistHandler.RemovePerson)
			r.Post("/images", whitelistHandler.AddImage)
			r.Delete("/images", whitelistHandler.RemoveImage)
			r.Post("/recognize", recognizeHandler.Recognize)
			r.Post("/doorbell", recognizeHandler.Ring)
		})
	})
}
