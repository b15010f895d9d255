package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Integration configuration (per tenant via X-Tenant-ID)
		r.Get("/integration", h.GetIntegration)
		r.Put("/integration", h.PutIntegration)
		r.Delete("/integration", h.DeleteIntegration)
		r.Get("/integrations", h.ListIntegrations)

		// Groups and directory lookups
		r.Get("/groups", h.ListGroups)
		r.Get("/users/lookup", h.LookupUser)

		// Plans (nested under groups)
		r.Post("/groups/{groupID}/plans", h.CreatePlan)
		r.Get("/groups/{groupID}/plans", h.ListPlans)

		// Plans (direct access)
		r.Post("/plans/{id}/buckets", h.EnsureBucket)
		r.Get("/plans/{id}/tasks", h.ListPlanTasks)
		r.Get("/plans/{id}/report", h.PlanReport)
		r.Get("/plans/{id}/links", h.ListPlanLinks)
		r.Post("/plans/{id}/pin", h.PinPlanTab)

		// Channels
		r.Get("/teams/{id}/channels", h.ListChannels)

		// Tasks
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks/{id}", h.GetTask)
		r.Patch("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)
		r.Post("/tasks/{id}/complete", h.CompleteTask)
		r.Post("/tasks/{id}/start", h.StartTask)
		r.Get("/tasks/{id}/details", h.GetTaskDetails)
		r.Put("/tasks/{id}/details", h.UpdateTaskDetails)

		// Task links (by local work-item ID)
		r.Get("/links/{localID}", h.GetLink)
	})
}
