package models

import (
	"time"

	"github.com/google/uuid"
)

// APIRole is the coarse permission level carried by an API key.
type APIRole string

const (
	APIRoleOwner    APIRole = "owner"
	APIRoleAdmin    APIRole = "admin"
	APIRoleEmployee APIRole = "employee"
	APIRoleCustomer APIRole = "customer"
)

// APIKey authenticates a caller and binds it to an organization and role.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name"            json:"name"`
	KeyHash        string     `db:"key_hash"        json:"-"`
	KeyPrefix      string     `db:"key_prefix"      json:"key_prefix"`
	Role           APIRole    `db:"role"            json:"role"`
	LastUsedAt     *time.Time `db:"last_used_at"    json:"last_used_at,omitempty"`
	DeletedAt      *time.Time `db:"deleted_at"      json:"-"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}
