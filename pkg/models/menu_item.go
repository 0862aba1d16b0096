package models

import "time"

// MenuItem is a live, customer-visible menu line belonging to a venue
type MenuItem struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	VenueID     string    `db:"venue_id" json:"venue_id"`
	Category    string    `db:"category" json:"category"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	Currency    string    `db:"currency" json:"currency"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProposedMenuItem is a menu line bundled with an onboarding request
type ProposedMenuItem struct {
	Category    string   `json:"category"`
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency"`
}
