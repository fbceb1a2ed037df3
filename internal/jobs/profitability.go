package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/internal/cache"
	"github.com/nordclean/fieldjobs/internal/store"
	"github.com/nordclean/fieldjobs/pkg/models"
)

const profitabilityCacheTTL = 5 * time.Minute

// ProfitBucket is a sum of revenue, costs, and profit over a set of jobs.
type ProfitBucket struct {
	TotalRevenue           float64 `json:"total_revenue"`
	TotalCosts             float64 `json:"total_costs"`
	TotalProfit            float64 `json:"total_profit"`
	ProfitMarginPercentage float64 `json:"profit_margin_percentage"`
	JobCount               int     `json:"job_count"`
}

// ProfitabilityReport aggregates completed jobs with recorded profitability:
// overall totals plus per-service-type and per-calendar-month buckets.
type ProfitabilityReport struct {
	ProfitBucket
	ByServiceType map[models.ServiceType]ProfitBucket `json:"by_service_type"`
	ByMonth       map[string]ProfitBucket             `json:"by_month"`
}

// Profitability returns the report for an organization, cached briefly and
// invalidated whenever a job completes.
func (s *Service) Profitability(ctx context.Context, orgID uuid.UUID) (*ProfitabilityReport, error) {
	key := cache.ProfitabilityKey(orgID)
	if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
		var report ProfitabilityReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}
	}

	rows, err := s.store.CompletedProfitability(ctx, orgID)
	if err != nil {
		return nil, err
	}

	report := AggregateProfitability(rows)

	if payload, err := json.Marshal(report); err == nil {
		if err := s.cache.Set(ctx, key, payload, profitabilityCacheTTL); err != nil {
			slog.Warn("cache profitability report failed", "org_id", orgID, "error", err)
		}
	}

	return report, nil
}

// AggregateProfitability computes the report from raw rows. Pure, no store
// access; margin percentage is 0 when revenue is 0.
func AggregateProfitability(rows []store.ProfitRow) *ProfitabilityReport {
	report := &ProfitabilityReport{
		ByServiceType: map[models.ServiceType]ProfitBucket{},
		ByMonth:       map[string]ProfitBucket{},
	}

	for _, row := range rows {
		report.ProfitBucket = addToBucket(report.ProfitBucket, row.Profitability)

		report.ByServiceType[row.ServiceType] = addToBucket(report.ByServiceType[row.ServiceType], row.Profitability)

		month := row.ScheduledAt.UTC().Format("2006-01")
		report.ByMonth[month] = addToBucket(report.ByMonth[month], row.Profitability)
	}

	return report
}

func addToBucket(b ProfitBucket, p models.Profitability) ProfitBucket {
	b.TotalRevenue += p.TotalPrice
	b.TotalCosts += p.LaborCost + p.MaterialCost + p.TravelCost
	b.TotalProfit += p.ProfitMargin
	b.JobCount++
	if b.TotalRevenue != 0 {
		b.ProfitMarginPercentage = b.TotalProfit / b.TotalRevenue * 100
	} else {
		b.ProfitMarginPercentage = 0
	}
	return b
}
