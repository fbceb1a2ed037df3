// Package handler contains the HTTP handlers for the jobs API. Each handler
// is a constructor taking the narrow service interface it depends on.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/internal/api/response"
	"github.com/nordclean/fieldjobs/internal/jobs"
	"github.com/nordclean/fieldjobs/internal/store"
	"github.com/nordclean/fieldjobs/pkg/models"
)

// JobService is the surface of the jobs service the handlers depend on.
type JobService interface {
	Create(ctx context.Context, orgID uuid.UUID, in jobs.CreateJobInput) (*models.Job, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
	Update(ctx context.Context, orgID, id uuid.UUID, in jobs.UpdateJobInput) (*models.Job, error)
	UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status models.JobStatus, payload jobs.StatusPayload) (*models.Job, error)
	Reschedule(ctx context.Context, orgID, id uuid.UUID, newDate time.Time) (*models.Job, error)
	Assign(ctx context.Context, orgID, jobID uuid.UUID, inputs []jobs.AssignmentInput) ([]*models.JobAssignment, error)
	Assignments(ctx context.Context, orgID, jobID uuid.UUID) ([]*models.JobAssignment, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Profitability(ctx context.Context, orgID uuid.UUID) (*jobs.ProfitabilityReport, error)
}

// writeServiceError maps service errors onto the HTTP error taxonomy:
// NotFound -> 404, scheduling conflicts -> 409, everything else (validation,
// illegal transitions, wrapped store errors) -> 400 with the message intact.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, jobs.ErrSchedulingConflict):
		response.Error(w, http.StatusConflict, "SCHEDULING_CONFLICT", err.Error(), nil)
	case errors.Is(err, jobs.ErrInvalidTransition):
		response.Error(w, http.StatusBadRequest, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, jobs.ErrValidation):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	default:
		response.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
}
