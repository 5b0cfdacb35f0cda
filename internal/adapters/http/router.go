package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Post("/escrows", handler.createEscrow)
			r.Get("/escrows/{escrow_id}", handler.getEscrow)
			r.Post("/escrows/{escrow_id}/fund", handler.fundEscrow)
			r.Post("/escrows/{escrow_id}/release", handler.releaseEscrow)
			r.Post("/escrows/{escrow_id}/refund", handler.refundEscrow)
			r.Post("/escrows/{escrow_id}/dispute-lock", handler.lockDispute)
			r.Get("/tasks/{task_id}/escrow", handler.getTaskEscrow)
			r.Post("/eligibility/{task_id}/resolve", handler.resolveEligibility)
			r.Get("/killswitch", handler.getKillSwitch)

			r.Group(func(r chi.Router) {
				r.Use(adminOnlyMiddleware)
				r.Post("/admin/killswitch/trigger", handler.triggerKillSwitch)
				r.Post("/admin/killswitch/resolve", handler.resolveKillSwitch)
				r.Post("/admin/compensation/apply", handler.applyCompensation)
				r.Post("/admin/sweep", handler.triggerSweep)
			})
		})
	})

	return r
}
