// Package jobs implements the job lifecycle: creation, the status state
// machine, scheduling-conflict detection, team assignment, rescheduling, and
// profitability reporting.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/internal/cache"
	"github.com/nordclean/fieldjobs/internal/notify"
	"github.com/nordclean/fieldjobs/internal/store"
	"github.com/nordclean/fieldjobs/pkg/models"
)

// Service owns all job lifecycle operations. Every operation is scoped to
// the acting organization.
type Service struct {
	store          store.Store
	cache          cache.Cache
	events         notify.Publisher
	conflictWindow time.Duration
}

func NewService(s store.Store, c cache.Cache, p notify.Publisher, conflictWindow time.Duration) *Service {
	return &Service{
		store:          s,
		cache:          c,
		events:         p,
		conflictWindow: conflictWindow,
	}
}

// CreateJobInput are the caller-supplied fields for a new job.
type CreateJobInput struct {
	CustomerID        uuid.UUID
	ServiceType       models.ServiceType
	ScheduledAt       time.Time
	EstimatedDuration int
	Location          models.Location
	Instructions      *string
	Checklist         []models.ChecklistItem
	RecurringJobID    *uuid.UUID
}

func (in CreateJobInput) validate() error {
	if in.CustomerID == uuid.Nil {
		return fmt.Errorf("%w: customer_id is required", ErrValidation)
	}
	if !models.ValidServiceType(in.ServiceType) {
		return fmt.Errorf("%w: unknown service type %q", ErrValidation, in.ServiceType)
	}
	if in.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", ErrValidation)
	}
	if in.EstimatedDuration <= 0 {
		return fmt.Errorf("%w: estimated_duration_minutes must be positive", ErrValidation)
	}
	if in.Location.Street == "" || in.Location.City == "" {
		return fmt.Errorf("%w: location street and city are required", ErrValidation)
	}
	return nil
}

// Create validates the customer belongs to the organization, runs the
// conflict check, and inserts the job in scheduled state.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, in CreateJobInput) (*models.Job, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetCustomer(ctx, in.CustomerID, orgID); err != nil {
		return nil, fmt.Errorf("customer %s: %w", in.CustomerID, err)
	}

	checklist := in.Checklist
	if checklist == nil {
		checklist = []models.ChecklistItem{}
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		CustomerID:        in.CustomerID,
		ServiceType:       in.ServiceType,
		Status:            models.StatusScheduled,
		ScheduledAt:       in.ScheduledAt,
		EstimatedDuration: in.EstimatedDuration,
		Location:          in.Location,
		Instructions:      in.Instructions,
		Checklist:         checklist,
		Photos:            []models.Photo{},
		RecurringJobID:    in.RecurringJobID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateJob(ctx, job, s.conflictWindow); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, id, orgID)
}

func (s *Service) List(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	return s.store.ListJobs(ctx, filter)
}

// UpdateJobInput patches mutable job fields. Nil fields are left unchanged.
type UpdateJobInput struct {
	ServiceType       *models.ServiceType
	ScheduledAt       *time.Time
	EstimatedDuration *int
	Location          *models.Location
	Instructions      *string
	Checklist         []models.ChecklistItem
	Photos            []models.Photo
}

// Update applies a partial update. Changing the scheduled start re-runs the
// conflict check against the new date.
func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, in UpdateJobInput) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	var window time.Duration
	if in.ServiceType != nil {
		if !models.ValidServiceType(*in.ServiceType) {
			return nil, fmt.Errorf("%w: unknown service type %q", ErrValidation, *in.ServiceType)
		}
		job.ServiceType = *in.ServiceType
	}
	if in.ScheduledAt != nil && !in.ScheduledAt.Equal(job.ScheduledAt) {
		job.ScheduledAt = *in.ScheduledAt
		window = s.conflictWindow
	}
	if in.EstimatedDuration != nil {
		if *in.EstimatedDuration <= 0 {
			return nil, fmt.Errorf("%w: estimated_duration_minutes must be positive", ErrValidation)
		}
		job.EstimatedDuration = *in.EstimatedDuration
	}
	if in.Location != nil {
		job.Location = *in.Location
	}
	if in.Instructions != nil {
		job.Instructions = in.Instructions
	}
	if in.Checklist != nil {
		job.Checklist = in.Checklist
	}
	if in.Photos != nil {
		job.Photos = in.Photos
	}

	if err := s.store.UpdateJob(ctx, job, window); err != nil {
		return nil, err
	}
	return job, nil
}

// StatusPayload carries the side fields persisted atomically with a status
// change. Only in_progress and completed transitions supply them.
type StatusPayload struct {
	ActualDuration *int
	QualityScore   *int
	Signature      *string
	Profitability  *models.Profitability
}

func (p StatusPayload) empty() bool {
	return p.ActualDuration == nil && p.QualityScore == nil &&
		p.Signature == nil && p.Profitability == nil
}

// UpdateStatus runs a transition through the state machine and fires the
// matching lifecycle event. Events never block or fail the update.
func (s *Service) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status models.JobStatus, payload StatusPayload) (*models.Job, error) {
	if !models.ValidJobStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if payload.QualityScore != nil && (*payload.QualityScore < 1 || *payload.QualityScore > 5) {
		return nil, fmt.Errorf("%w: quality_score must be between 1 and 5", ErrValidation)
	}
	if !payload.empty() && status != models.StatusInProgress && status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: completion fields are only accepted when moving to in_progress or completed", ErrValidation)
	}

	var opts []store.JobUpdateOption
	if payload.ActualDuration != nil {
		opts = append(opts, store.WithActualDuration(*payload.ActualDuration))
	}
	if payload.QualityScore != nil {
		opts = append(opts, store.WithQualityScore(*payload.QualityScore))
	}
	if payload.Signature != nil {
		opts = append(opts, store.WithSignature(*payload.Signature))
	}
	if payload.Profitability != nil {
		opts = append(opts, store.WithProfitability(*payload.Profitability))
	}

	job, err := s.store.UpdateJobStatus(ctx, id, orgID, status, opts...)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.StatusInProgress:
		s.publish(job, notify.EventJobStarted)
	case models.StatusCompleted:
		s.publish(job, notify.EventJobCompleted)
		s.invalidateProfitability(job.OrganizationID)
	case models.StatusCancelled:
		s.publish(job, notify.EventJobCancelled)
	}

	return job, nil
}

// Reschedule creates a replacement job carrying over the original's
// customer, service type, duration, location, instructions, checklist, and
// recurring link, then marks the original rescheduled with parent_job_id
// pointing at the replacement. Both writes share one transaction.
func (s *Service) Reschedule(ctx context.Context, orgID, id uuid.UUID, newDate time.Time) (*models.Job, error) {
	if newDate.IsZero() {
		return nil, fmt.Errorf("%w: new_date is required", ErrValidation)
	}

	orig, err := s.store.GetJob(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	replacement := &models.Job{
		ID:                uuid.New(),
		OrganizationID:    orig.OrganizationID,
		CustomerID:        orig.CustomerID,
		ServiceType:       orig.ServiceType,
		Status:            models.StatusScheduled,
		ScheduledAt:       newDate,
		EstimatedDuration: orig.EstimatedDuration,
		Location:          orig.Location,
		Instructions:      orig.Instructions,
		Checklist:         orig.Checklist,
		Photos:            []models.Photo{},
		RecurringJobID:    orig.RecurringJobID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.store.RescheduleJob(ctx, id, orgID, replacement, s.conflictWindow)
	if err != nil {
		return nil, err
	}

	s.publish(created, notify.EventJobRescheduled)
	return created, nil
}

// AssignmentInput pairs a team member with their role on the job.
type AssignmentInput struct {
	TeamMemberID uuid.UUID
	Role         models.AssignmentRole
}

// Assign replaces the job's full assignment set. All team members are
// validated against the organization before anything is mutated.
func (s *Service) Assign(ctx context.Context, orgID, jobID uuid.UUID, inputs []AssignmentInput) ([]*models.JobAssignment, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one assignment is required", ErrValidation)
	}

	if _, err := s.store.GetJob(ctx, jobID, orgID); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(inputs))
	seen := map[uuid.UUID]bool{}
	for _, in := range inputs {
		if !models.ValidAssignmentRole(in.Role) {
			return nil, fmt.Errorf("%w: unknown assignment role %q", ErrValidation, in.Role)
		}
		if seen[in.TeamMemberID] {
			return nil, fmt.Errorf("%w: duplicate team member %s", ErrValidation, in.TeamMemberID)
		}
		seen[in.TeamMemberID] = true
		ids = append(ids, in.TeamMemberID)
	}

	members, err := s.store.GetTeamMembers(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	found := map[uuid.UUID]bool{}
	for _, m := range members {
		found[m.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("team member %s: %w", id, ErrNotFound)
		}
	}

	now := time.Now().UTC()
	assignments := make([]*models.JobAssignment, 0, len(inputs))
	for _, in := range inputs {
		assignments = append(assignments, &models.JobAssignment{
			ID:           uuid.New(),
			JobID:        jobID,
			TeamMemberID: in.TeamMemberID,
			Role:         in.Role,
			AssignedAt:   now,
		})
	}

	if err := s.store.ReplaceAssignments(ctx, jobID, assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *Service) Assignments(ctx context.Context, orgID, jobID uuid.UUID) ([]*models.JobAssignment, error) {
	if _, err := s.store.GetJob(ctx, jobID, orgID); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, jobID, orgID)
}

// Delete removes a job unconditionally, regardless of status.
func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.store.DeleteJob(ctx, id, orgID)
}

// publish fires a lifecycle event without blocking the caller.
func (s *Service) publish(job *models.Job, eventType string) {
	event := notify.JobEvent{
		Type:           eventType,
		OrganizationID: job.OrganizationID,
		JobID:          job.ID,
		CustomerID:     job.CustomerID,
		OccurredAt:     time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.PublishJobEvent(ctx, event); err != nil {
			slog.Error("publish job event failed", "type", eventType, "job_id", job.ID, "error", err)
		}
	}()
}

func (s *Service) invalidateProfitability(orgID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cache.Delete(ctx, cache.ProfitabilityKey(orgID)); err != nil {
			slog.Error("invalidate profitability cache failed", "org_id", orgID, "error", err)
		}
	}()
}
