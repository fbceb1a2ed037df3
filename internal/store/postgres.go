package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nordclean/fieldjobs/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Organizations / Customers / Team Members ---

func (s *PostgresStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var o models.Organization
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id, orgID uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, name, email, phone, created_at, updated_at
		 FROM customers WHERE id = $1 AND organization_id = $2`, id, orgID,
	).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetTeamMembers(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*models.TeamMember, error) {
	if len(ids) == 0 {
		return []*models.TeamMember{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, organization_id, name, email, active, created_at, updated_at
		 FROM team_members WHERE organization_id = $1 AND id = ANY($2)`, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("get team members: %w", err)
	}
	defer rows.Close()

	var members []*models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Email, &m.Active,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, organization_id, name, key_hash, key_prefix, role, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.OrganizationID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Role,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, organization_id, customer_id, service_type, status, scheduled_at,
	estimated_duration_minutes, actual_duration_minutes, location, instructions,
	checklist, photos, signature, quality_score, profitability,
	recurring_job_id, parent_job_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.OrganizationID, &j.CustomerID, &j.ServiceType, &j.Status,
		&j.ScheduledAt, &j.EstimatedDuration, &j.ActualDuration, &j.Location,
		&j.Instructions, &j.Checklist, &j.Photos, &j.Signature, &j.QualityScore,
		&j.Profitability, &j.RecurringJobID, &j.ParentJobID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// nonTerminalStatuses are the statuses that participate in conflict detection.
var nonTerminalStatuses = []string{
	string(models.StatusScheduled),
	string(models.StatusConfirmed),
	string(models.StatusInProgress),
}

// lockOrganization serializes conflict-checked writes per organization for
// the duration of the transaction, closing the check/insert race.
func lockOrganization(ctx context.Context, tx pgx.Tx, orgID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, orgID.String())
	if err != nil {
		return fmt.Errorf("acquire organization lock: %w", err)
	}
	return nil
}

// checkConflict applies the one-directional conflict policy: the new start
// must not fall inside [existing_start, existing_start + window] of any
// non-terminal job for the organization. Existing jobs starting after the
// new one are deliberately not considered.
func checkConflict(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, start time.Time, window time.Duration, excludeID uuid.UUID) error {
	var count int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs
		 WHERE organization_id = $1
		   AND status = ANY($2)
		   AND scheduled_at >= $3
		   AND scheduled_at <= $4
		   AND id <> $5`,
		orgID, nonTerminalStatuses, start.Add(-window), start, excludeID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: another job is scheduled within %s before %s",
			ErrSchedulingConflict, window, start.UTC().Format(time.RFC3339))
	}
	return nil
}

func insertJob(ctx context.Context, tx pgx.Tx, job *models.Job) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		job.ID, job.OrganizationID, job.CustomerID, job.ServiceType, job.Status,
		job.ScheduledAt, job.EstimatedDuration, job.ActualDuration, job.Location,
		job.Instructions, job.Checklist, job.Photos, job.Signature, job.QualityScore,
		job.Profitability, job.RecurringJobID, job.ParentJobID, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job, conflictWindow time.Duration) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockOrganization(ctx, tx, job.OrganizationID); err != nil {
			return err
		}
		if err := checkConflict(ctx, tx, job.OrganizationID, job.ScheduledAt, conflictWindow, uuid.Nil); err != nil {
			return err
		}
		return insertJob(ctx, tx, job)
	})
}

func (s *PostgresStore) GetJob(ctx context.Context, id, orgID uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND organization_id = $2`, id, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// sortColumns whitelists ListJobs sort keys.
var sortColumns = map[string]string{
	"scheduled_at": "scheduled_at",
	"created_at":   "created_at",
	"status":       "status",
	"service_type": "service_type",
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions := []string{"organization_id = $1"}
	args := []any{filter.OrganizationID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.ServiceType != "" {
		conditions = append(conditions, fmt.Sprintf("service_type = $%d", argIdx))
		args = append(args, filter.ServiceType)
		argIdx++
	}
	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, *filter.CustomerID)
		argIdx++
	}
	if filter.TeamMemberID != nil {
		conditions = append(conditions,
			fmt.Sprintf("id IN (SELECT job_id FROM job_assignments WHERE team_member_id = $%d)", argIdx))
		args = append(args, *filter.TeamMemberID)
		argIdx++
	}
	if !filter.DateFrom.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", argIdx))
		args = append(args, filter.DateFrom)
		argIdx++
	}
	if !filter.DateTo.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_at <= $%d", argIdx))
		args = append(args, filter.DateTo)
		argIdx++
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("location->>'city' ILIKE $%d", argIdx))
		args = append(args, filter.City)
		argIdx++
	}
	if filter.Page.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(instructions ILIKE $%d OR location->>'city' ILIKE $%d OR location->>'street' ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Page.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	sortCol, ok := sortColumns[filter.Page.SortBy]
	if !ok {
		sortCol = "scheduled_at"
	}
	order := "DESC"
	if filter.Page.SortOrder == "asc" {
		order = "ASC"
	}

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM jobs WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		jobColumns, where, sortCol, order, argIdx, argIdx+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset())

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *models.Job, conflictWindow time.Duration) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if conflictWindow > 0 {
			if err := lockOrganization(ctx, tx, job.OrganizationID); err != nil {
				return err
			}
			if err := checkConflict(ctx, tx, job.OrganizationID, job.ScheduledAt, conflictWindow, job.ID); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx,
			`UPDATE jobs SET customer_id = $3, service_type = $4, scheduled_at = $5,
			   estimated_duration_minutes = $6, location = $7, instructions = $8,
			   checklist = $9, photos = $10, updated_at = NOW()
			 WHERE id = $1 AND organization_id = $2`,
			job.ID, job.OrganizationID, job.CustomerID, job.ServiceType, job.ScheduledAt,
			job.EstimatedDuration, job.Location, job.Instructions, job.Checklist, job.Photos)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id, orgID uuid.UUID, status models.JobStatus, opts ...JobUpdateOption) (*models.Job, error) {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var updated *models.Job
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current models.JobStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM jobs WHERE id = $1 AND organization_id = $2 FOR UPDATE`,
			id, orgID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job status: %w", err)
		}

		if !current.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
		}

		query := `UPDATE jobs SET status = $3, updated_at = NOW()`
		args := []any{id, orgID, status}
		argIdx := 4

		if params.ActualDuration != nil {
			query += fmt.Sprintf(", actual_duration_minutes = $%d", argIdx)
			args = append(args, *params.ActualDuration)
			argIdx++
		}
		if params.QualityScore != nil {
			query += fmt.Sprintf(", quality_score = $%d", argIdx)
			args = append(args, *params.QualityScore)
			argIdx++
		}
		if params.Signature != nil {
			query += fmt.Sprintf(", signature = $%d", argIdx)
			args = append(args, *params.Signature)
			argIdx++
		}
		if params.Profitability != nil {
			query += fmt.Sprintf(", profitability = $%d", argIdx)
			args = append(args, *params.Profitability)
			argIdx++
		}

		query += " WHERE id = $1 AND organization_id = $2 RETURNING " + jobColumns

		updated, err = scanJob(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) RescheduleJob(ctx context.Context, origID, orgID uuid.UUID, newJob *models.Job, conflictWindow time.Duration) (*models.Job, error) {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Advisory lock before any row lock: every conflict-checked write
		// acquires locks in the same order, or two of them can deadlock.
		if err := lockOrganization(ctx, tx, orgID); err != nil {
			return err
		}

		var current models.JobStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM jobs WHERE id = $1 AND organization_id = $2 FOR UPDATE`,
			origID, orgID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job status: %w", err)
		}

		if !current.CanTransitionTo(models.StatusRescheduled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, models.StatusRescheduled)
		}

		if err := checkConflict(ctx, tx, orgID, newJob.ScheduledAt, conflictWindow, origID); err != nil {
			return err
		}

		if err := insertJob(ctx, tx, newJob); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE jobs SET status = $3, parent_job_id = $4, updated_at = NOW()
			 WHERE id = $1 AND organization_id = $2`,
			origID, orgID, models.StatusRescheduled, newJob.ID)
		if err != nil {
			return fmt.Errorf("relink rescheduled job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newJob, nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Assignments ---

func (s *PostgresStore) ReplaceAssignments(ctx context.Context, jobID uuid.UUID, assignments []*models.JobAssignment) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM job_assignments WHERE job_id = $1`, jobID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}

		for _, a := range assignments {
			if _, err := tx.Exec(ctx,
				`INSERT INTO job_assignments (id, job_id, team_member_id, role, assigned_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				a.ID, a.JobID, a.TeamMemberID, a.Role, a.AssignedAt); err != nil {
				return fmt.Errorf("insert assignment: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListAssignments(ctx context.Context, jobID, orgID uuid.UUID) ([]*models.JobAssignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.job_id, a.team_member_id, a.role, a.assigned_at
		 FROM job_assignments a
		 JOIN jobs j ON j.id = a.job_id
		 WHERE a.job_id = $1 AND j.organization_id = $2
		 ORDER BY a.assigned_at, a.id`, jobID, orgID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.JobAssignment
	for rows.Next() {
		var a models.JobAssignment
		if err := rows.Scan(&a.ID, &a.JobID, &a.TeamMemberID, &a.Role, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// --- Profitability ---

func (s *PostgresStore) CompletedProfitability(ctx context.Context, orgID uuid.UUID) ([]ProfitRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT service_type, scheduled_at, profitability
		 FROM jobs
		 WHERE organization_id = $1 AND status = $2 AND profitability IS NOT NULL`,
		orgID, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("completed profitability: %w", err)
	}
	defer rows.Close()

	var result []ProfitRow
	for rows.Next() {
		var r ProfitRow
		if err := rows.Scan(&r.ServiceType, &r.ScheduledAt, &r.Profitability); err != nil {
			return nil, fmt.Errorf("scan profitability row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
