package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/reelwork/marketplace/internal/api/handlers"
	mw "github.com/reelwork/marketplace/internal/api/middleware"
	"github.com/reelwork/marketplace/pkg/metrics"
)

type Dependencies struct {
	Authenticator  *mw.Authenticator
	Metrics        *metrics.Metrics
	Limiter        *mw.KeyLimiter
	AllowedOrigins []string

	HealthHandler   *handlers.HealthHandler
	AuthHandler     *handlers.AuthHandler
	JobsHandler     *handlers.JobsHandler
	MessagesHandler *handlers.MessagesHandler
	UsersHandler    *handlers.UsersHandler
	PaymentsHandler *handlers.PaymentsHandler
	EventsHandler   *handlers.EventsHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(chimid.RealIP)
	r.Use(mw.Recovery)
	r.Use(mw.Logging(dep.Metrics))
	r.Use(mw.CORS(dep.AllowedOrigins))
	r.Use(mw.RateLimit(dep.Limiter))
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Resolves the principal when credentials are present; routes that
		// need one add RequireAuth.
		api.Use(dep.Authenticator.Authenticate)

		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)
			ar.With(mw.RequireAuth).Get("/me", dep.AuthHandler.Me)
		})

		api.Route("/jobs", func(jr chi.Router) {
			jr.Get("/", dep.JobsHandler.List)
			jr.Get("/{id}", dep.JobsHandler.Get)

			jr.Group(func(protected chi.Router) {
				protected.Use(mw.RequireAuth)
				protected.Post("/", dep.JobsHandler.Create)
				protected.Delete("/{id}", dep.JobsHandler.Delete)
				protected.Post("/{id}/apply", dep.JobsHandler.Apply)
				protected.Post("/{id}/close", dep.JobsHandler.Close)
				protected.Get("/{id}/applications", dep.JobsHandler.Applications)
			})
		})

		api.Route("/users", func(ur chi.Router) {
			ur.Get("/{id}", dep.UsersHandler.Get)

			ur.Group(func(protected chi.Router) {
				protected.Use(mw.RequireAuth)
				protected.Patch("/profile", dep.UsersHandler.UpdateSelf)
				protected.Put("/{id}", dep.UsersHandler.Update)
				protected.Delete("/{id}", dep.UsersHandler.Delete)
			})
		})

		api.Route("/payments", func(pr chi.Router) {
			// authenticated by Stripe-Signature
			pr.Put("/", dep.PaymentsHandler.Webhook)

			pr.Group(func(protected chi.Router) {
				protected.Use(mw.RequireAuth)
				protected.Post("/", dep.PaymentsHandler.Create)
				protected.Get("/", dep.PaymentsHandler.List)
			})
		})

		api.Group(func(protected chi.Router) {
			protected.Use(mw.RequireAuth)

			protected.Get("/messages", dep.MessagesHandler.List)
			protected.Post("/messages", dep.MessagesHandler.Create)

			protected.Get("/events/stream", dep.EventsHandler.Stream)
		})
	})

	return r
}
