package models

import (
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
)

// ApprovalRequestType identifies the action gated by an approval
type ApprovalRequestType string

const (
	ApprovalTypeMenuPublish      ApprovalRequestType = "menu_publish"
	ApprovalTypePromoPublish     ApprovalRequestType = "promo_publish"
	ApprovalTypePromoPause       ApprovalRequestType = "promo_pause"
	ApprovalTypeVenueClaim       ApprovalRequestType = "venue_claim"
	ApprovalTypeAccessGrant      ApprovalRequestType = "access_grant"
	ApprovalTypeAccessRevoke     ApprovalRequestType = "access_revoke"
	ApprovalTypeRefund           ApprovalRequestType = "refund"
	ApprovalTypeResearchProposal ApprovalRequestType = "research_proposal"
)

// IsValid reports whether the request type is known
func (t ApprovalRequestType) IsValid() bool {
	switch t {
	case ApprovalTypeMenuPublish, ApprovalTypePromoPublish, ApprovalTypePromoPause,
		ApprovalTypeVenueClaim, ApprovalTypeAccessGrant, ApprovalTypeAccessRevoke,
		ApprovalTypeRefund, ApprovalTypeResearchProposal:
		return true
	}
	return false
}

// ApprovalPriority is advisory metadata used for sorting and risk display
type ApprovalPriority string

const (
	ApprovalPriorityLow    ApprovalPriority = "low"
	ApprovalPriorityNormal ApprovalPriority = "normal"
	ApprovalPriorityHigh   ApprovalPriority = "high"
	ApprovalPriorityUrgent ApprovalPriority = "urgent"
)

// ApprovalStatus is the review state of an approval request
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusCancelled ApprovalStatus = "cancelled"
	ApprovalStatusExpired   ApprovalStatus = "expired"
)

// IsTerminal reports whether the status permits no further mutation
func (s ApprovalStatus) IsTerminal() bool {
	switch s {
	case ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusCancelled, ApprovalStatusExpired:
		return true
	}
	return false
}

// RiskLevel labels for approval display
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// ApprovalRequest is a generic pending-action envelope awaiting admin sign-off
type ApprovalRequest struct {
	ID              string                        `db:"id" json:"id"`
	TenantID        string                        `db:"tenant_id" json:"tenant_id"`
	RequestType     ApprovalRequestType           `db:"request_type" json:"request_type"`
	EntityType      string                        `db:"entity_type" json:"entity_type"`
	EntityID        string                        `db:"entity_id" json:"entity_id"`
	VenueID         *string                       `db:"venue_id" json:"venue_id,omitempty"`
	RequestedBy     string                        `db:"requested_by" json:"requested_by"`
	Notes           *string                       `db:"notes" json:"notes,omitempty"`
	Priority        ApprovalPriority              `db:"priority" json:"priority"`
	Status          ApprovalStatus                `db:"status" json:"status"`
	EntityPreview   database.JSONB[map[string]any] `db:"entity_preview" json:"entity_preview"`
	ExpiresAt       *time.Time                    `db:"expires_at" json:"expires_at,omitempty"`
	ResolvedBy      *string                       `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time                    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolutionNotes *string                       `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time                     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                     `db:"updated_at" json:"updated_at"`
}

// RiskLevel classifies the request for display. Access and refund actions are
// always high risk, urgent priority bumps anything else to medium.
func (r *ApprovalRequest) RiskLevel() string {
	t := string(r.RequestType)
	if strings.Contains(t, "access") || strings.Contains(t, "refund") {
		return RiskLevelHigh
	}
	if r.Priority == ApprovalPriorityUrgent {
		return RiskLevelMedium
	}
	return RiskLevelLow
}

// CreateApprovalRequest is the payload for opening an approval request
type CreateApprovalRequest struct {
	RequestType   ApprovalRequestType `json:"request_type" validate:"required"`
	EntityType    string              `json:"entity_type" validate:"required"`
	EntityID      string              `json:"entity_id" validate:"required"`
	VenueID       *string             `json:"venue_id,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Priority      ApprovalPriority    `json:"priority,omitempty"`
	EntityPreview map[string]any      `json:"entity_preview,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
}

// ResolveApprovalRequest is the payload for an admin decision
type ResolveApprovalRequest struct {
	Notes string `json:"notes,omitempty"`
}
