// Package reconciler turns reviewed staging rows into live menu items and
// records reviewer decisions along the way.
package reconciler

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// StagingStore is the persistence surface for staging rows and the publish
type StagingStore interface {
	ReplaceForJob(ctx context.Context, tenantID string, jobID string, venueID string, items []models.ParsedItem) (int, error)
	ListByJob(ctx context.Context, tenantID string, jobID string) ([]models.StagingItem, error)
	UpdateAction(ctx context.Context, tenantID string, itemID string, action models.StagingAction) error
	PublishApproved(ctx context.Context, tenantID string, jobID string, venueID string, currency string) (*models.PublishResult, error)
}

// Service reconciles staging items into the live menu
type Service struct {
	store   StagingStore
	emitter *events.Emitter
	audit   *audit.Sink
	logger  ectologger.Logger
}

// NewService creates a new staging reconciler
func NewService(store StagingStore, emitter *events.Emitter, auditSink *audit.Sink, logger ectologger.Logger) *Service {
	return &Service{
		store:   store,
		emitter: emitter,
		audit:   auditSink,
		logger:  logger,
	}
}

// CreateStagingItems replaces the staging rows for a job with parsed items
func (s *Service) CreateStagingItems(ctx context.Context, tenantID string, jobID string, venueID string, items []models.ParsedItem) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Service.CreateStagingItems")
	defer span.End()

	return s.store.ReplaceForJob(ctx, tenantID, jobID, venueID, items)
}

// ListStagingItems retrieves all staging items for a job
func (s *Service) ListStagingItems(ctx context.Context, tenantID string, jobID string) ([]models.StagingItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Service.ListStagingItems")
	defer span.End()

	return s.store.ListByJob(ctx, tenantID, jobID)
}

// UpdateStagingAction records a reviewer decision on a single staging item
func (s *Service) UpdateStagingAction(ctx context.Context, tenantID string, itemID string, request *models.UpdateStagingActionRequest) error {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Service.UpdateStagingAction")
	defer span.End()

	if _, err := utils.Validate(request); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	action := models.StagingAction(request.Action)
	if !action.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "action must be one of keep, edit, drop")
	}

	return s.store.UpdateAction(ctx, tenantID, itemID, action)
}

// Publish converts all non-dropped staging items for a reviewed job into
// live menu items. Safe under duplicate invocation: a job that already
// published reports a no-op result.
func (s *Service) Publish(ctx context.Context, tenantID string, jobID string, request *models.PublishRequest) (*models.PublishResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Service.Publish")
	defer span.End()

	if _, err := utils.Validate(request); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.store.PublishApproved(ctx, tenantID, jobID, request.VenueID, request.Currency)
	if err != nil {
		return nil, err
	}

	if result.AlreadyPublished {
		s.logger.WithContext(ctx).WithFields(map[string]any{"job_id": jobID}).Info("Publish skipped: job already published")
		return result, nil
	}

	if result.Published > 0 {
		metrics.RecordPublish(tenantID, result.Published, result.DefaultedPrices)
		metrics.RecordJobTransition(tenantID, string(models.IngestJobStatusPublished))
		s.emitter.EmitPublishCompleted(ctx, tenantID, jobID, request.VenueID, result.Published, result.DefaultedPrices)
		s.audit.Record(ctx, tenantID, "ingest_job.publish", "ingest_job", jobID, "", map[string]any{
			"venue_id":         request.VenueID,
			"published":        result.Published,
			"defaulted_prices": result.DefaultedPrices,
		})
	}

	return result, nil
}
