package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Ingest job events
	EventTypeJobCreated       EventType = "ingest_job.created"
	EventTypeJobStatusChanged EventType = "ingest_job.status_changed"
	EventTypeJobPublished     EventType = "ingest_job.published"
	EventTypeJobFailed        EventType = "ingest_job.failed"

	// Claim events
	EventTypeClaimSubmitted EventType = "venue_claim.submitted"
	EventTypeClaimApproved  EventType = "venue_claim.approved"
	EventTypeClaimRejected  EventType = "venue_claim.rejected"
	EventTypeClaimRevoked   EventType = "venue_claim.revoked"

	// Onboarding events
	EventTypeOnboardingSubmitted EventType = "onboarding.submitted"
	EventTypeOnboardingApproved  EventType = "onboarding.approved"
	EventTypeOnboardingRejected  EventType = "onboarding.rejected"

	// Approval events
	EventTypeApprovalCreated  EventType = "approval.created"
	EventTypeApprovalResolved EventType = "approval.resolved"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// JobStatusChangedEvent is emitted on every ingest job lifecycle transition
type JobStatusChangedEvent struct {
	BaseEvent
	JobID        string `json:"job_id"`
	VenueID      string `json:"venue_id"`
	FromStatus   string `json:"from_status,omitempty"`
	ToStatus     string `json:"to_status"`
	ErrorCode    string `json:"error_code,omitempty"`
	AttemptCount int    `json:"attempt_count,omitempty"`
}

// PublishCompletedEvent is emitted when a reviewed job is published
type PublishCompletedEvent struct {
	BaseEvent
	JobID           string `json:"job_id"`
	VenueID         string `json:"venue_id"`
	Published       int    `json:"published"`
	DefaultedPrices int    `json:"defaulted_prices"`
}

// ClaimEvent is emitted on venue claim workflow transitions
type ClaimEvent struct {
	BaseEvent
	VenueID    string `json:"venue_id"`
	ClaimState string `json:"claim_state"`
	OwnerID    string `json:"owner_id,omitempty"`
}

// OnboardingEvent is emitted on onboarding request decisions
type OnboardingEvent struct {
	BaseEvent
	RequestID   string `json:"request_id"`
	VenueID     string `json:"venue_id"`
	Status      string `json:"status"`
	ReviewedBy  string `json:"reviewed_by,omitempty"`
	SeededItems int    `json:"seeded_items,omitempty"`
}

// ApprovalEvent is emitted when an approval request is opened or resolved
type ApprovalEvent struct {
	BaseEvent
	RequestID   string `json:"request_id"`
	RequestType string `json:"request_type"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Status      string `json:"status"`
	ResolvedBy  string `json:"resolved_by,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
