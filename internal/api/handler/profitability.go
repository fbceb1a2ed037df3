package handler

import (
	"net/http"

	"github.com/nordclean/fieldjobs/internal/api/response"
)

// NewProfitabilityHandler returns the handler for GET /api/v1/jobs/profitability.
func NewProfitabilityHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgFromRequest(w, r)
		if !ok {
			return
		}

		report, err := svc.Profitability(r.Context(), orgID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, report)
	}
}
