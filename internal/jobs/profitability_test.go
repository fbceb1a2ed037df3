package jobs

import (
	"testing"
	"time"

	"github.com/nordclean/fieldjobs/internal/store"
	"github.com/nordclean/fieldjobs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateProfitability_Empty(t *testing.T) {
	report := AggregateProfitability(nil)

	assert.Equal(t, 0.0, report.TotalRevenue)
	assert.Equal(t, 0.0, report.TotalCosts)
	assert.Equal(t, 0.0, report.TotalProfit)
	assert.Equal(t, 0.0, report.ProfitMarginPercentage)
	assert.Equal(t, 0, report.JobCount)
	assert.Empty(t, report.ByServiceType)
	assert.Empty(t, report.ByMonth)
}

func TestAggregateProfitability_TwoJobs(t *testing.T) {
	january := time.Date(2025, 1, 12, 10, 0, 0, 0, time.UTC)
	february := time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)

	rows := []store.ProfitRow{
		{
			ServiceType: models.ServiceStandard,
			ScheduledAt: january,
			Profitability: models.Profitability{
				TotalPrice:   1200,
				LaborCost:    500,
				MaterialCost: 150,
				TravelCost:   100,
				ProfitMargin: 450,
			},
		},
		{
			ServiceType: models.ServiceDeep,
			ScheduledAt: february,
			Profitability: models.Profitability{
				TotalPrice:   1800,
				LaborCost:    700,
				MaterialCost: 250,
				TravelCost:   150,
				ProfitMargin: 700,
			},
		},
	}

	report := AggregateProfitability(rows)

	assert.Equal(t, 3000.0, report.TotalRevenue)
	assert.Equal(t, 1850.0, report.TotalCosts)
	assert.Equal(t, 1150.0, report.TotalProfit)
	assert.InDelta(t, 38.33, report.ProfitMarginPercentage, 0.01)
	assert.Equal(t, 2, report.JobCount)

	require.Contains(t, report.ByServiceType, models.ServiceStandard)
	require.Contains(t, report.ByServiceType, models.ServiceDeep)
	assert.Equal(t, 1200.0, report.ByServiceType[models.ServiceStandard].TotalRevenue)
	assert.Equal(t, 450.0, report.ByServiceType[models.ServiceStandard].TotalProfit)
	assert.Equal(t, 1800.0, report.ByServiceType[models.ServiceDeep].TotalRevenue)

	require.Contains(t, report.ByMonth, "2025-01")
	require.Contains(t, report.ByMonth, "2025-02")
	assert.Equal(t, 1200.0, report.ByMonth["2025-01"].TotalRevenue)
	assert.Equal(t, 1800.0, report.ByMonth["2025-02"].TotalRevenue)
}

func TestAggregateProfitability_ZeroRevenueNoDivide(t *testing.T) {
	rows := []store.ProfitRow{
		{
			ServiceType:   models.ServiceWindow,
			ScheduledAt:   time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
			Profitability: models.Profitability{TotalPrice: 0, ProfitMargin: 0},
		},
	}

	report := AggregateProfitability(rows)
	assert.Equal(t, 0.0, report.ProfitMarginPercentage)
	assert.Equal(t, 1, report.JobCount)
}

func TestAggregateProfitability_MonthBucketUsesUTC(t *testing.T) {
	// 23:30 on Jan 31 in UTC+2 is still January in local terms but the
	// bucket is derived from the UTC instant.
	loc := time.FixedZone("UTC+2", 2*3600)
	rows := []store.ProfitRow{
		{
			ServiceType:   models.ServiceOffice,
			ScheduledAt:   time.Date(2025, 2, 1, 0, 30, 0, 0, loc),
			Profitability: models.Profitability{TotalPrice: 100, ProfitMargin: 10},
		},
	}

	report := AggregateProfitability(rows)
	require.Contains(t, report.ByMonth, "2025-01")
}
