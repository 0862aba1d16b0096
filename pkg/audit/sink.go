package audit

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Publisher publishes audit records
type Publisher interface {
	PublishAuditEvent(ctx context.Context, event *kafka.AuditEvent) error
}

// Sink records admin actions for the audit trail. Recording is best effort.
// The action that triggered the record has already committed, so publish
// failures are logged and swallowed rather than surfaced to the caller.
type Sink struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewSink creates a new audit sink
func NewSink(publisher Publisher, logger ectologger.Logger) *Sink {
	return &Sink{
		publisher: publisher,
		logger:    logger,
	}
}

// Record publishes an audit record for an admin action
func (s *Sink) Record(ctx context.Context, tenantID string, action string, entityType string, entityID string, actorID string, meta map[string]any) {
	ctx, span := tracing.StartSpan(ctx, "audit.Sink.Record")
	defer span.End()

	if s.publisher == nil {
		return
	}

	event := &kafka.AuditEvent{
		Action:     action,
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Meta:       meta,
	}

	if err := s.publisher.PublishAuditEvent(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Error("Failed to record audit event")
	}
}
