package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentRole is a team member's role on a specific job.
type AssignmentRole string

const (
	RoleLead       AssignmentRole = "lead"
	RoleCleaner    AssignmentRole = "cleaner"
	RoleSupervisor AssignmentRole = "supervisor"
)

// ValidAssignmentRole reports whether r is a known assignment role.
func ValidAssignmentRole(r AssignmentRole) bool {
	switch r {
	case RoleLead, RoleCleaner, RoleSupervisor:
		return true
	}
	return false
}

// JobAssignment links a job to a team member. Assignments for a job are
// always replaced as a full set, never patched individually.
type JobAssignment struct {
	ID           uuid.UUID      `db:"id"             json:"id"`
	JobID        uuid.UUID      `db:"job_id"         json:"job_id"`
	TeamMemberID uuid.UUID      `db:"team_member_id" json:"team_member_id"`
	Role         AssignmentRole `db:"role"           json:"role"`
	AssignedAt   time.Time      `db:"assigned_at"    json:"assigned_at"`
}
