package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher publishes serialized domain events
type Publisher interface {
	PublishDomainEvent(ctx context.Context, event *kafka.DomainEvent) error
}

// Emitter translates typed workflow events into domain events on the bus.
// Emission failures are logged and swallowed so state changes that already
// committed are never rolled back over a bus hiccup.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

func (e *Emitter) emit(ctx context.Context, eventType EventType, tenantID string, entityType string, entityID string, payload any) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	if e.publisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
		}).Error("Failed to marshal event payload")
		return
	}

	event := &kafka.DomainEvent{
		EventType:  string(eventType),
		TenantID:   tenantID,
		EntityID:   entityID,
		EntityType: entityType,
		Data:       data,
	}

	if err := e.publisher.PublishDomainEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"entity_id":  entityID,
		}).Error("Failed to publish event")
	}
}

// EmitJobStatusChanged announces an ingest job lifecycle transition
func (e *Emitter) EmitJobStatusChanged(ctx context.Context, tenantID string, jobID string, venueID string, from string, to string, errorCode string, attemptCount int) {
	eventType := EventTypeJobStatusChanged
	switch to {
	case "published":
		eventType = EventTypeJobPublished
	case "failed":
		eventType = EventTypeJobFailed
	}

	e.emit(ctx, eventType, tenantID, "ingest_job", jobID, JobStatusChangedEvent{
		BaseEvent:    NewBaseEvent(eventType, tenantID),
		JobID:        jobID,
		VenueID:      venueID,
		FromStatus:   from,
		ToStatus:     to,
		ErrorCode:    errorCode,
		AttemptCount: attemptCount,
	})
}

// EmitJobCreated announces a newly accepted ingest job
func (e *Emitter) EmitJobCreated(ctx context.Context, tenantID string, jobID string, venueID string) {
	e.emit(ctx, EventTypeJobCreated, tenantID, "ingest_job", jobID, JobStatusChangedEvent{
		BaseEvent: NewBaseEvent(EventTypeJobCreated, tenantID),
		JobID:     jobID,
		VenueID:   venueID,
		ToStatus:  "pending",
	})
}

// EmitPublishCompleted announces a completed publish with its item counts
func (e *Emitter) EmitPublishCompleted(ctx context.Context, tenantID string, jobID string, venueID string, published int, defaultedPrices int) {
	e.emit(ctx, EventTypeJobPublished, tenantID, "ingest_job", jobID, PublishCompletedEvent{
		BaseEvent:       NewBaseEvent(EventTypeJobPublished, tenantID),
		JobID:           jobID,
		VenueID:         venueID,
		Published:       published,
		DefaultedPrices: defaultedPrices,
	})
}

// EmitClaimEvent announces a venue claim workflow transition
func (e *Emitter) EmitClaimEvent(ctx context.Context, eventType EventType, tenantID string, venueID string, claimState string, ownerID string) {
	e.emit(ctx, eventType, tenantID, "venue", venueID, ClaimEvent{
		BaseEvent:  NewBaseEvent(eventType, tenantID),
		VenueID:    venueID,
		ClaimState: claimState,
		OwnerID:    ownerID,
	})
}

// EmitOnboardingEvent announces an onboarding request decision
func (e *Emitter) EmitOnboardingEvent(ctx context.Context, eventType EventType, tenantID string, requestID string, venueID string, status string, reviewedBy string, seededItems int) {
	e.emit(ctx, eventType, tenantID, "onboarding_request", requestID, OnboardingEvent{
		BaseEvent:   NewBaseEvent(eventType, tenantID),
		RequestID:   requestID,
		VenueID:     venueID,
		Status:      status,
		ReviewedBy:  reviewedBy,
		SeededItems: seededItems,
	})
}

// EmitApprovalEvent announces an approval request being opened or resolved
func (e *Emitter) EmitApprovalEvent(ctx context.Context, eventType EventType, tenantID string, requestID string, requestType string, entityType string, entityID string, status string, resolvedBy string) {
	e.emit(ctx, eventType, tenantID, "approval_request", requestID, ApprovalEvent{
		BaseEvent:   NewBaseEvent(eventType, tenantID),
		RequestID:   requestID,
		RequestType: requestType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      status,
		ResolvedBy:  resolvedBy,
	})
}
