package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"outfitgen/internal/http/handlers"
	"outfitgen/internal/infra"
	"outfitgen/internal/middleware"
)

// NewRouter assembles the API surface around the handler container.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-outfit", app.GenerateOutfit)
		r.Post("/rate-outfit", app.RateOutfit)
		r.Get("/options", app.Options)
	})

	return r
}
