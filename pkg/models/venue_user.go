package models

import "time"

// VenueUserRoleOwner marks the owning user of a venue
const VenueUserRoleOwner = "owner"

// VenueUser links an authenticated user to a venue with a role
type VenueUser struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	VenueID   string    `db:"venue_id" json:"venue_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
