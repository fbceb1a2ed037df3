package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/internal/api/response"
	"github.com/nordclean/fieldjobs/internal/jobs"
	"github.com/nordclean/fieldjobs/pkg/models"
)

type assignRequest struct {
	Assignments []struct {
		TeamMemberID uuid.UUID             `json:"team_member_id"`
		Role         models.AssignmentRole `json:"role"`
	} `json:"assignments"`
}

// NewAssignHandler returns the handler for POST /api/v1/jobs/{jobID}/assign.
// The supplied set fully replaces any existing assignments.
func NewAssignHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		var req assignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		inputs := make([]jobs.AssignmentInput, 0, len(req.Assignments))
		for _, a := range req.Assignments {
			inputs = append(inputs, jobs.AssignmentInput{
				TeamMemberID: a.TeamMemberID,
				Role:         a.Role,
			})
		}

		assignments, err := svc.Assign(r.Context(), orgID, id, inputs)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, assignments)
	}
}

// NewListAssignmentsHandler returns the handler for GET /api/v1/jobs/{jobID}/assignments.
func NewListAssignmentsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}
		id, ok := jobIDFromRequest(w, r)
		if !ok {
			return
		}

		assignments, err := svc.Assignments(r.Context(), orgID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if assignments == nil {
			assignments = []*models.JobAssignment{}
		}

		response.JSON(w, assignments)
	}
}
