package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"quizsphere/internal/app"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	ReportFormat   app.ReportFormat
}

// NewRouter mounts the REST API, the websocket endpoint and the health check.
func NewRouter(service *app.AssessmentService, opts RouterOptions) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ReportFormat == "" {
		opts.ReportFormat = app.FormatJSON
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	ws := NewWSHandler(service, opts.ReportFormat)
	r.Get("/ws", ws.ServeWS)

	api := &API{service: service, format: opts.ReportFormat}
	r.Route("/api", func(ar chi.Router) {
		ar.Use(middleware.Logger)
		ar.Get("/reports", api.history)
		ar.Post("/sessions", api.begin)
		ar.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Get("/", api.snapshot)
			sr.Delete("/", api.abandon)
			sr.Post("/answer", api.answer)
			sr.Post("/navigate", api.navigate)
			sr.Post("/next", api.next)
			sr.Post("/previous", api.previous)
			sr.Post("/submit", api.submit)
			sr.Get("/report", api.report)
		})
	})
	return r
}
