package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", app.HealthHandler)
	r.Handle("/metrics", app.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/detect", app.DetectHandler)
		r.Post("/crop-faces", app.CropFacesHandler)
		r.Post("/snapshot", app.SnapshotHandler)
		r.Get("/stats", app.StatsHandler)
		r.Get("/export", app.ExportHandler)
		r.Get("/export.csv", app.ExportCSVHandler)
		r.Get("/frames/{name}", app.FrameHandler)
		r.Delete("/frames/{name}", app.FrameDeleteHandler)

		r.Route("/monitor", func(r chi.Router) {
			r.Post("/start", app.MonitorStartHandler)
			r.Post("/stop", app.MonitorStopHandler)
			r.Get("/status", app.MonitorStatusHandler)
			r.Get("/ws", app.Hub.HandleWS)
		})
	})

	fileServer := http.FileServer(http.Dir("./web/static"))
	r.Handle("/static/*", http.StripPrefix("/static", fileServer))

	return r
}
