package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"genbridge/internal/http/handlers"
	"genbridge/internal/infra"
	"genbridge/internal/middleware"
)

// Options tunes the router's middleware chain.
type Options struct {
	Logger             infra.Logger
	APIToken           string
	RateLimitPerMinute int
}

// NewRouter assembles the public HTTP surface. The provider callback sits
// outside the bearer-auth group: its credential is the per-task token minted
// at submit time, not our API token.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
	)
	if opts.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/provider/callback", app.ProviderCallback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(opts.APIToken))
		r.Get("/v1/models", app.ListModels)
		r.Route("/v1/generations", func(r chi.Router) {
			r.Post("/", app.CreateGeneration)
			r.Get("/{task_id}", app.GetGeneration)
		})
	})

	return r
}
