package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nordclean/fieldjobs/internal/api/response"
	"github.com/nordclean/fieldjobs/internal/jobs"
	"github.com/nordclean/fieldjobs/pkg/models"
)

type updateStatusRequest struct {
	Status         models.JobStatus      `json:"status"`
	ActualDuration *int                  `json:"actual_duration_minutes"`
	QualityScore   *int                  `json:"quality_score"`
	Signature      *string               `json:"signature"`
	Profitability  *models.Profitability `json:"profitability"`
}

// NewUpdateStatusHandler returns the handler for PATCH /api/v1/jobs/{jobID}/status.
func NewUpdateStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Status == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "status is required", nil)
			return
		}

		job, err := svc.UpdateStatus(r.Context(), orgID, id, req.Status, jobs.StatusPayload{
			ActualDuration: req.ActualDuration,
			QualityScore:   req.QualityScore,
			Signature:      req.Signature,
			Profitability:  req.Profitability,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, job)
	}
}
