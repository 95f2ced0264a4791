package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// RequestLogLevel is the level successful requests are logged at.
	RequestLogLevel slog.Level
}

func NewRouter(opts RouterOptions, reportHandler ReportHandler, presenceHandler PresenceHandler, eventHandler EventHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.RequestLogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Punch file uploads
		r.Post("/analyses", reportHandler.Analyze)
		r.Post("/employees", reportHandler.ListEmployees)
		r.Post("/rest-days/detect", reportHandler.DetectRestDays)

		r.Route("/reports/{id}", func(r chi.Router) {
			r.Get("/", reportHandler.GetReport)
			r.Get("/download", reportHandler.DownloadReport)
			r.Post("/modifications", reportHandler.ApplyModifications)
		})
		r.Get("/modifications/{employee}", reportHandler.ListModifications)

		r.Route("/employees/{employee}/config", func(r chi.Router) {
			r.Get("/", presenceHandler.GetEmployeeConfig)
			r.Put("/", presenceHandler.UpdateEmployeeConfig)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", presenceHandler.ListHolidays)
			r.Post("/", presenceHandler.CreateHoliday)
		})

		r.Route("/leave-periods", func(r chi.Router) {
			r.Get("/", presenceHandler.ListLeavePeriods)
			r.Post("/", presenceHandler.CreateLeavePeriod)
		})

		r.Get("/events", eventHandler.StreamReports)
	})
	return r
}
