package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"vigil/internal/auth"
	"vigil/internal/config"
	"vigil/internal/http/handler"
	mw "vigil/internal/http/middleware"
)

// Services are the application services the routes call into.
type Services struct {
	DB            *gorm.DB
	JWT           *auth.JWT
	Marketing     handler.MarketingSender
	Jobs          handler.JobStore
	Translations  handler.TranslationService
	Subscriptions handler.SubscriptionService
}

func NewRouter(cfg config.Config, s Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: s.DB, JWT: s.JWT}
	r.Post("/auth/login", ah.Login)

	subs := &handler.SubscriptionHandler{Svc: s.Subscriptions}
	r.Post("/subscriptions/verify", subs.Verify)
	r.Put("/subscriptions/preferences", subs.Preferences)
	r.Post("/unsubscribe", subs.Unsubscribe)

	mh := &handler.MarketingHandler{Svc: s.Marketing}
	jh := &handler.JobsHandler{Jobs: s.Jobs}
	th := &handler.TranslationHandler{Svc: s.Translations}

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin(s.JWT))

		r.Post("/marketing-emails/{id}/send", mh.Send)

		r.Get("/jobs/stats", jh.Stats)
		r.Post("/jobs/{id}/retry", jh.Retry)

		r.Post("/translations/batches", th.CreateBatch)
		r.Get("/translations/batches/{id}", th.Get)
		r.Post("/translations/batches/{id}/cancel", th.Cancel)
	})

	return r
}
