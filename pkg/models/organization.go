package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary. Every other entity belongs to
// exactly one organization.
type Organization struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Customer is a client of an organization that jobs are performed for.
type Customer struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name"            json:"name"`
	Email          *string   `db:"email"           json:"email,omitempty"`
	Phone          *string   `db:"phone"           json:"phone,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// TeamMember is an employee of an organization who can be assigned to jobs.
type TeamMember struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name"            json:"name"`
	Email          string    `db:"email"           json:"email"`
	Active         bool      `db:"active"          json:"active"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}
