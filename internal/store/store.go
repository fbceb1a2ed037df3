package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/pkg/models"
	"github.com/nordclean/fieldjobs/pkg/pagination"
)

var (
	// ErrNotFound is returned when a row is absent or belongs to a different
	// organization than the caller.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidTransition is returned when a status update is not allowed by
	// the job state machine. The wrapped message names the offending pair.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSchedulingConflict is returned when a job's scheduled start falls
	// inside the conflict window of another non-terminal job.
	ErrSchedulingConflict = errors.New("scheduling conflict")
)

// Store is the data access interface. All database operations go through
// here, and every job query is scoped by organization id.
type Store interface {
	Ping(ctx context.Context) error

	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetCustomer(ctx context.Context, id, orgID uuid.UUID) (*models.Customer, error)
	GetTeamMembers(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*models.TeamMember, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	// CreateJob inserts a job after running the conflict check inside the
	// same transaction, serialized per organization by an advisory lock.
	CreateJob(ctx context.Context, job *models.Job, conflictWindow time.Duration) error
	GetJob(ctx context.Context, id, orgID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	// UpdateJob persists mutable job fields. A positive conflictWindow
	// re-runs the conflict check against the job's scheduled start.
	UpdateJob(ctx context.Context, job *models.Job, conflictWindow time.Duration) error
	// UpdateJobStatus validates the transition against the current row under
	// a row lock and persists status plus any side payload atomically.
	UpdateJobStatus(ctx context.Context, id, orgID uuid.UUID, status models.JobStatus, opts ...JobUpdateOption) (*models.Job, error)
	// RescheduleJob inserts the replacement job and relinks the original
	// (status rescheduled, parent_job_id set) in a single transaction.
	RescheduleJob(ctx context.Context, origID, orgID uuid.UUID, newJob *models.Job, conflictWindow time.Duration) (*models.Job, error)
	DeleteJob(ctx context.Context, id, orgID uuid.UUID) error

	// ReplaceAssignments deletes all assignments for the job and inserts the
	// new set in a single transaction.
	ReplaceAssignments(ctx context.Context, jobID uuid.UUID, assignments []*models.JobAssignment) error
	ListAssignments(ctx context.Context, jobID, orgID uuid.UUID) ([]*models.JobAssignment, error)

	// CompletedProfitability returns one row per completed job with a
	// recorded profitability breakdown.
	CompletedProfitability(ctx context.Context, orgID uuid.UUID) ([]ProfitRow, error)
}

// JobFilter narrows ListJobs results. Zero values mean "no filter".
type JobFilter struct {
	OrganizationID uuid.UUID
	Status         models.JobStatus
	ServiceType    models.ServiceType
	CustomerID     *uuid.UUID
	TeamMemberID   *uuid.UUID
	DateFrom       time.Time
	DateTo         time.Time
	City           string
	Page           pagination.Params
}

// ProfitRow is the read-side projection used by profitability reporting.
type ProfitRow struct {
	ServiceType   models.ServiceType
	ScheduledAt   time.Time
	Profitability models.Profitability
}

type jobUpdateParams struct {
	ActualDuration *int
	QualityScore   *int
	Signature      *string
	Profitability  *models.Profitability
}

// JobUpdateOption attaches side payload fields to a status update.
type JobUpdateOption func(*jobUpdateParams)

func WithActualDuration(minutes int) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ActualDuration = &minutes
	}
}

func WithQualityScore(score int) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.QualityScore = &score
	}
}

func WithSignature(sig string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Signature = &sig
	}
}

func WithProfitability(pr models.Profitability) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Profitability = &pr
	}
}
