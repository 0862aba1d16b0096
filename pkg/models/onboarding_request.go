package models

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
)

// OnboardingStatus is the review state of an onboarding request
type OnboardingStatus string

const (
	OnboardingStatusPending  OnboardingStatus = "pending"
	OnboardingStatusApproved OnboardingStatus = "approved"
	OnboardingStatusRejected OnboardingStatus = "rejected"
)

// IsTerminal reports whether the request has been decided
func (s OnboardingStatus) IsTerminal() bool {
	return s == OnboardingStatusApproved || s == OnboardingStatusRejected
}

// OnboardingRequest is a formal claim-and-setup submission for a venue
type OnboardingRequest struct {
	ID            string                             `db:"id" json:"id"`
	TenantID      string                             `db:"tenant_id" json:"tenant_id"`
	VenueID       string                             `db:"venue_id" json:"venue_id"`
	SubmittedBy   string                             `db:"submitted_by" json:"submitted_by"`
	ContactEmail  string                             `db:"contact_email" json:"contact_email"`
	Whatsapp      *string                            `db:"whatsapp" json:"whatsapp,omitempty"`
	RevolutLink   *string                            `db:"revolut_link" json:"revolut_link,omitempty"`
	MomoCode      *string                            `db:"momo_code" json:"momo_code,omitempty"`
	ProposedItems database.JSONB[[]ProposedMenuItem] `db:"proposed_items" json:"proposed_items"`
	Status        OnboardingStatus                   `db:"status" json:"status"`
	AdminNotes    *string                            `db:"admin_notes" json:"admin_notes,omitempty"`
	ReviewedBy    *string                            `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time                         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time                          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time                          `db:"updated_at" json:"updated_at"`
}

// CreateOnboardingRequest is the payload for submitting an onboarding request
type CreateOnboardingRequest struct {
	VenueID       string             `json:"venue_id" validate:"required"`
	ContactEmail  string             `json:"contact_email" validate:"required,email"`
	Whatsapp      *string            `json:"whatsapp,omitempty"`
	RevolutLink   *string            `json:"revolut_link,omitempty"`
	MomoCode      *string            `json:"momo_code,omitempty"`
	ProposedItems []ProposedMenuItem `json:"proposed_items,omitempty" validate:"dive"`
}

// ReviewOnboardingRequest is the payload for an admin decision
type ReviewOnboardingRequest struct {
	AdminNotes string `json:"admin_notes,omitempty"`
}
