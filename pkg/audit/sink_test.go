package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/logging"
)

type fakePublisher struct {
	events []*kafka.AuditEvent
	err    error
}

func (f *fakePublisher) PublishAuditEvent(_ context.Context, event *kafka.AuditEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func TestRecord(t *testing.T) {
	t.Run("record publishes the action", func(t *testing.T) {
		publisher := &fakePublisher{}
		sink := NewSink(publisher, logging.NewNopLogger())

		sink.Record(context.Background(), "tenant-1", "venue_claim.approve", "venue", "venue-1", "admin-1", map[string]any{"owner_id": "user-9"})

		require.Len(t, publisher.events, 1)
		assert.Equal(t, "venue_claim.approve", publisher.events[0].Action)
		assert.Equal(t, "admin-1", publisher.events[0].ActorID)
	})

	t.Run("publish failure is swallowed", func(t *testing.T) {
		publisher := &fakePublisher{err: errors.New("broker down")}
		sink := NewSink(publisher, logging.NewNopLogger())

		assert.NotPanics(t, func() {
			sink.Record(context.Background(), "tenant-1", "approval.reject", "approval_request", "approval-1", "admin-1", nil)
		})
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		sink := NewSink(nil, logging.NewNopLogger())

		assert.NotPanics(t, func() {
			sink.Record(context.Background(), "tenant-1", "onboarding.approve", "onboarding_request", "onboarding-1", "admin-1", nil)
		})
	})
}
