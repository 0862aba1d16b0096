package models

import "time"

// ClaimState is the derived ownership state of a venue
type ClaimState string

const (
	ClaimStateUnclaimed ClaimState = "unclaimed"
	ClaimStatePending   ClaimState = "pending"
	ClaimStateClaimed   ClaimState = "claimed"
)

// Venue is a restaurant location. Ownership fields are mutated only by the
// claim workflow.
type Venue struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Name         string    `db:"name" json:"name"`
	Slug         string    `db:"slug" json:"slug"`
	Country      string    `db:"country" json:"country"`
	Claimed      bool      `db:"claimed" json:"claimed"`
	OwnerID      *string   `db:"owner_id" json:"owner_id,omitempty"`
	OwnerEmail   *string   `db:"owner_email" json:"owner_email,omitempty"`
	OwnerPin     *string   `db:"owner_pin" json:"-"`
	ContactEmail *string   `db:"contact_email" json:"contact_email,omitempty"`
	RevolutLink  *string   `db:"revolut_link" json:"revolut_link,omitempty"`
	Whatsapp     *string   `db:"whatsapp" json:"whatsapp,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClaimState derives the ownership state from the claim columns. A claimed
// venue is always reported claimed even if a stale owner_email remains.
func (v *Venue) ClaimState() ClaimState {
	if v.Claimed {
		return ClaimStateClaimed
	}
	if v.OwnerEmail != nil && *v.OwnerEmail != "" {
		return ClaimStatePending
	}
	return ClaimStateUnclaimed
}

// SubmitClaimRequest is the payload for the fast-path venue claim
type SubmitClaimRequest struct {
	OwnerEmail string `json:"owner_email" validate:"required,email"`
	OwnerPin   string `json:"owner_pin,omitempty"`
}
