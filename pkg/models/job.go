package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType classifies the kind of cleaning a job delivers.
type ServiceType string

const (
	ServiceStandard ServiceType = "standard"
	ServiceDeep     ServiceType = "deep"
	ServiceWindow   ServiceType = "window"
	ServiceMoveout  ServiceType = "moveout"
	ServiceOffice   ServiceType = "office"
)

// ValidServiceType reports whether s is a known service type.
func ValidServiceType(s ServiceType) bool {
	switch s {
	case ServiceStandard, ServiceDeep, ServiceWindow, ServiceMoveout, ServiceOffice:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	StatusScheduled   JobStatus = "scheduled"
	StatusConfirmed   JobStatus = "confirmed"
	StatusInProgress  JobStatus = "in_progress"
	StatusCompleted   JobStatus = "completed"
	StatusCancelled   JobStatus = "cancelled"
	StatusRescheduled JobStatus = "rescheduled"
)

// jobTransitions is the full status state machine. A status absent from the
// map (or mapped to an empty slice) is terminal.
var jobTransitions = map[JobStatus][]JobStatus{
	StatusScheduled:  {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusRescheduled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// ValidJobStatus reports whether s is a known status.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Location is the service address for a job, stored as JSONB.
type Location struct {
	Street     string   `json:"street"`
	City       string   `json:"city"`
	PostalCode string   `json:"postal_code"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// ChecklistItem is a single task on a job's checklist.
type ChecklistItem struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Completed     bool    `json:"completed"`
	PhotoRequired bool    `json:"photo_required"`
	PhotoURL      *string `json:"photo_url,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// Photo is an image attached to a job (before/after/damage documentation).
type Photo struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Caption   *string   `json:"caption,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Profitability is the financial breakdown recorded when a job completes.
type Profitability struct {
	TotalPrice   float64 `json:"total_price"`
	LaborCost    float64 `json:"labor_cost"`
	MaterialCost float64 `json:"material_cost"`
	TravelCost   float64 `json:"travel_cost"`
	ProfitMargin float64 `json:"profit_margin"`
}

// Job is a scheduled cleaning visit. Every job belongs to exactly one
// organization and one customer. Status is mutated only through the
// transition rules above; rescheduling links the original job to its
// replacement via ParentJobID.
type Job struct {
	ID                uuid.UUID       `db:"id"                         json:"id"`
	OrganizationID    uuid.UUID       `db:"organization_id"            json:"organization_id"`
	CustomerID        uuid.UUID       `db:"customer_id"                json:"customer_id"`
	ServiceType       ServiceType     `db:"service_type"               json:"service_type"`
	Status            JobStatus       `db:"status"                     json:"status"`
	ScheduledAt       time.Time       `db:"scheduled_at"               json:"scheduled_at"`
	EstimatedDuration int             `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	ActualDuration    *int            `db:"actual_duration_minutes"    json:"actual_duration_minutes,omitempty"`
	Location          Location        `db:"location"                   json:"location"`
	Instructions      *string         `db:"instructions"               json:"instructions,omitempty"`
	Checklist         []ChecklistItem `db:"checklist"                  json:"checklist"`
	Photos            []Photo         `db:"photos"                     json:"photos"`
	Signature         *string         `db:"signature"                  json:"signature,omitempty"`
	QualityScore      *int            `db:"quality_score"              json:"quality_score,omitempty"`
	Profitability     *Profitability  `db:"profitability"              json:"profitability,omitempty"`
	RecurringJobID    *uuid.UUID      `db:"recurring_job_id"           json:"recurring_job_id,omitempty"`
	ParentJobID       *uuid.UUID      `db:"parent_job_id"              json:"parent_job_id,omitempty"`
	CreatedAt         time.Time       `db:"created_at"                 json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"                 json:"updated_at"`
}
