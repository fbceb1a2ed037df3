package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nordclean/fieldjobs/internal/api/response"
)

type rescheduleRequest struct {
	NewDate time.Time `json:"new_date"`
}

// NewRescheduleHandler returns the handler for POST /api/v1/jobs/{jobID}/reschedule.
// The response body is the replacement job; the original stays behind in
// rescheduled state pointing at it.
func NewRescheduleHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		var req rescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Reschedule(r.Context(), orgID, id, req.NewDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Created(w, job)
	}
}
