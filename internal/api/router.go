package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/handlers/onboarding"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/handlers/verification"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/handlers/webhook"
)

// NewRouter creates the Chi router with all service routes mounted.
func NewRouter(
	onboardingHandler *onboarding.Handler,
	webhookHandler *webhook.Handler,
	verificationHandler *verification.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Merchant submissions.
		r.Post("/merchants/{merchantId}/onboarding", onboardingHandler.HandleSubmit)

		// Platform notifications.
		r.Post("/webhooks/adyen", webhookHandler.HandleNotifications)

		// Fanned-out verification events.
		r.Post("/events/verification", verificationHandler.HandleEvent)
		r.Post("/events/completion", verificationHandler.HandleCompletion)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
