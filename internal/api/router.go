package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/nordclean/fieldjobs/internal/api/middleware"
	"github.com/nordclean/fieldjobs/internal/api/response"
	"github.com/nordclean/fieldjobs/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateJob       http.HandlerFunc
	ListJobs        http.HandlerFunc
	GetJob          http.HandlerFunc
	UpdateJob       http.HandlerFunc
	DeleteJob       http.HandlerFunc
	UpdateStatus    http.HandlerFunc
	AssignTeam      http.HandlerFunc
	ListAssignments http.HandlerFunc
	Reschedule      http.HandlerFunc
	Profitability   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		staff := deps.Auth.RequireRole(models.APIRoleOwner, models.APIRoleAdmin, models.APIRoleEmployee)
		admin := deps.Auth.RequireRole(models.APIRoleOwner, models.APIRoleAdmin)
		anyRole := deps.Auth.RequireRole(models.APIRoleOwner, models.APIRoleAdmin,
			models.APIRoleEmployee, models.APIRoleCustomer)

		r.With(admin).Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
		r.With(staff).Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.With(admin).Get("/api/v1/jobs/profitability", orNotImplemented(deps.Profitability))

		r.With(anyRole).Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.With(admin).Patch("/api/v1/jobs/{jobID}", orNotImplemented(deps.UpdateJob))
		r.With(admin).Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.DeleteJob))

		r.With(staff).Patch("/api/v1/jobs/{jobID}/status", orNotImplemented(deps.UpdateStatus))
		r.With(admin).Post("/api/v1/jobs/{jobID}/assign", orNotImplemented(deps.AssignTeam))
		r.With(staff).Get("/api/v1/jobs/{jobID}/assignments", orNotImplemented(deps.ListAssignments))
		r.With(admin).Post("/api/v1/jobs/{jobID}/reschedule", orNotImplemented(deps.Reschedule))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
