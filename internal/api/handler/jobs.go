package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/nordclean/fieldjobs/internal/api/middleware"
	"github.com/nordclean/fieldjobs/internal/api/response"
	"github.com/nordclean/fieldjobs/internal/jobs"
	"github.com/nordclean/fieldjobs/internal/store"
	"github.com/nordclean/fieldjobs/pkg/models"
	"github.com/nordclean/fieldjobs/pkg/pagination"
)

// orgFromRequest reads the authenticated organization, writing 401 when absent.
func orgFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, ok := mw.GetOrganizationID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing organization", nil)
	}
	return orgID, ok
}

// jobIDFromRequest parses the {jobID} route parameter, writing 400 on garbage.
func jobIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job id", nil)
		return uuid.Nil, false
	}
	return id, true
}

type createJobRequest struct {
	CustomerID        uuid.UUID              `json:"customer_id"`
	ServiceType       models.ServiceType     `json:"service_type"`
	ScheduledAt       time.Time              `json:"scheduled_at"`
	EstimatedDuration int                    `json:"estimated_duration_minutes"`
	Location          models.Location        `json:"location"`
	Instructions      *string                `json:"instructions"`
	Checklist         []models.ChecklistItem `json:"checklist"`
	RecurringJobID    *uuid.UUID             `json:"recurring_job_id"`
}

// NewCreateJobHandler returns the handler for POST /api/v1/jobs.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}

		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Create(r.Context(), orgID, jobs.CreateJobInput{
			CustomerID:        req.CustomerID,
			ServiceType:       req.ServiceType,
			ScheduledAt:       req.ScheduledAt,
			EstimatedDuration: req.EstimatedDuration,
			Location:          req.Location,
			Instructions:      req.Instructions,
			Checklist:         req.Checklist,
			RecurringJobID:    req.RecurringJobID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Created(w, job)
	}
}

// NewListJobsHandler returns the handler for GET /api/v1/jobs.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := store.JobFilter{
			OrganizationID: orgID,
			Status:         models.JobStatus(q.Get("status")),
			ServiceType:    models.ServiceType(q.Get("service_type")),
			City:           q.Get("city"),
			Page:           pagination.FromQuery(q),
		}

		if v := q.Get("customer_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid customer_id", nil)
				return
			}
			filter.CustomerID = &id
		}
		if v := q.Get("team_member_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid team_member_id", nil)
				return
			}
			filter.TeamMemberID = &id
		}
		if v := q.Get("date_from"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "date_from must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.DateFrom = ts
		}
		if v := q.Get("date_to"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "date_to must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.DateTo = ts
		}

		list, total, err := svc.List(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if list == nil {
			list = []*models.Job{}
		}

		response.Collection(w, list, pagination.NewMeta(filter.Page, total))
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		job, err := svc.Get(r.Context(), orgID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, job)
	}
}

type updateJobRequest struct {
	ServiceType       *models.ServiceType    `json:"service_type"`
	ScheduledAt       *time.Time             `json:"scheduled_at"`
	EstimatedDuration *int                   `json:"estimated_duration_minutes"`
	Location          *models.Location       `json:"location"`
	Instructions      *string                `json:"instructions"`
	Checklist         []models.ChecklistItem `json:"checklist"`
	Photos            []models.Photo         `json:"photos"`
}

// NewUpdateJobHandler returns the handler for PATCH /api/v1/jobs/{jobID}.
func NewUpdateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		var req updateJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Update(r.Context(), orgID, id, jobs.UpdateJobInput{
			ServiceType:       req.ServiceType,
			ScheduledAt:       req.ScheduledAt,
			EstimatedDuration: req.EstimatedDuration,
			Location:          req.Location,
			Instructions:      req.Instructions,
			Checklist:         req.Checklist,
			Photos:            req.Photos,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, job)
	}
}

// NewDeleteJobHandler returns the handler for DELETE /api/v1/jobs/{jobID}.
// Deletion is unconditional; status is not consulted.
func NewDeleteJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), orgID, id); err != nil {
			writeServiceError(w, err)
			return
		}

		response.NoContent(w)
	}
}
