// Package lifecycle owns the ingest job state machine. All status changes
// funnel through the Controller so the legal-transition table is enforced
// before any row is touched.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// JobStore is the persistence surface the controller drives
type JobStore interface {
	Create(ctx context.Context, job *models.IngestJob) (*models.IngestJob, error)
	Get(ctx context.Context, tenantID string, id string) (*models.IngestJob, error)
	ListByVenue(ctx context.Context, tenantID string, venueID string, page, pageSize int) (*models.IngestJobListResponse, error)
	TransitionStatus(ctx context.Context, tenantID string, id string, from, to models.IngestJobStatus) (bool, error)
	Requeue(ctx context.Context, tenantID string, id string, errCode, errMessage string, nextAttemptAt time.Time) (bool, error)
	Fail(ctx context.Context, tenantID string, id string, errCode, errMessage string) (bool, error)
	ClaimDue(ctx context.Context, limit int) ([]models.IngestJob, error)
}

// Config holds retry tuning for the controller
type Config struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Controller enforces the ingest job lifecycle
type Controller struct {
	store   JobStore
	emitter *events.Emitter
	audit   *audit.Sink
	config  Config
	logger  ectologger.Logger
}

// NewController creates a new job lifecycle controller
func NewController(store JobStore, emitter *events.Emitter, auditSink *audit.Sink, cfg Config, logger ectologger.Logger) *Controller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 30 * time.Second
	}
	return &Controller{
		store:   store,
		emitter: emitter,
		audit:   auditSink,
		config:  cfg,
		logger:  logger,
	}
}

// CreateJob accepts a new ingest job in the pending state
func (c *Controller) CreateJob(ctx context.Context, tenantID string, request *models.CreateIngestJobRequest) (*models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Controller.CreateJob")
	defer span.End()

	if _, err := utils.Validate(request); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	job := &models.IngestJob{
		TenantID:  tenantID,
		VenueID:   request.VenueID,
		FilePath:  request.FilePath,
		CreatedBy: request.CreatedBy,
	}

	created, err := c.store.Create(ctx, job)
	if err != nil {
		return nil, err
	}

	metrics.RecordJobTransition(tenantID, string(models.IngestJobStatusPending))
	c.emitter.EmitJobCreated(ctx, tenantID, created.ID, created.VenueID)
	c.audit.Record(ctx, tenantID, "ingest_job.create", "ingest_job", created.ID, created.CreatedBy, map[string]any{
		"venue_id":  created.VenueID,
		"file_path": created.FilePath,
	})

	return created, nil
}

// GetJob retrieves an ingest job
func (c *Controller) GetJob(ctx context.Context, tenantID string, jobID string) (*models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Controller.GetJob")
	defer span.End()

	return c.store.Get(ctx, tenantID, jobID)
}

// ListJobs retrieves ingest jobs for a venue, newest first
func (c *Controller) ListJobs(ctx context.Context, tenantID string, venueID string, page, pageSize int) (*models.IngestJobListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Controller.ListJobs")
	defer span.End()

	return c.store.ListByVenue(ctx, tenantID, venueID, page, pageSize)
}

// Transition moves a job to a new status. The transition table is checked
// before the conditional update, and the update itself re-checks the prior
// status so a lost race surfaces as a conflict rather than a silent skip.
func (c *Controller) Transition(ctx context.Context, tenantID string, jobID string, to models.IngestJobStatus) (*models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Controller.Transition")
	defer span.End()

	if !to.IsValid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown ingest job status %q", to))
	}

	job, err := c.store.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}

	if !job.Status.CanTransition(to) {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("ingest job cannot move from %s to %s", job.Status, to))
	}

	ok, err := c.store.TransitionStatus(ctx, tenantID, jobID, job.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("ingest job %s changed status concurrently", jobID))
	}

	metrics.RecordJobTransition(tenantID, string(to))
	c.emitter.EmitJobStatusChanged(ctx, tenantID, jobID, job.VenueID, string(job.Status), string(to), "", job.AttemptCount)

	return c.store.Get(ctx, tenantID, jobID)
}

// HandleParserFailure routes a running job's parse failure. Retryable errors
// with attempts remaining requeue the job with exponential backoff; anything
// else fails it terminally.
func (c *Controller) HandleParserFailure(ctx context.Context, job *models.IngestJob, errCode string, errMessage string) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Controller.HandleParserFailure")
	defer span.End()

	attemptsUsed := job.AttemptCount + 1

	if models.IsRetryableIngestError(errCode) && attemptsUsed < c.config.MaxAttempts {
		delay := c.RetryDelay(job.AttemptCount)
		nextAttempt := time.Now().UTC().Add(delay)

		ok, err := c.store.Requeue(ctx, job.TenantID, job.ID, errCode, errMessage, nextAttempt)
		if err != nil {
			return err
		}
		if !ok {
			return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("ingest job %s is no longer running", job.ID))
		}

		metrics.RecordJobRetry(job.TenantID, errCode)
		metrics.RecordJobTransition(job.TenantID, string(models.IngestJobStatusPending))
		c.emitter.EmitJobStatusChanged(ctx, job.TenantID, job.ID, job.VenueID, string(models.IngestJobStatusRunning), string(models.IngestJobStatusPending), errCode, attemptsUsed)

		c.logger.WithContext(ctx).WithFields(map[string]any{
			"job_id":     job.ID,
			"error_code": errCode,
			"attempt":    attemptsUsed,
			"retry_in":   delay.String(),
		}).Warn("Ingest job requeued after parser failure")
		return nil
	}

	ok, err := c.store.Fail(ctx, job.TenantID, job.ID, errCode, errMessage)
	if err != nil {
		return err
	}
	if !ok {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("ingest job %s already reached a terminal status", job.ID))
	}

	metrics.RecordJobTransition(job.TenantID, string(models.IngestJobStatusFailed))
	c.emitter.EmitJobStatusChanged(ctx, job.TenantID, job.ID, job.VenueID, string(models.IngestJobStatusRunning), string(models.IngestJobStatusFailed), errCode, attemptsUsed)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":     job.ID,
		"error_code": errCode,
		"attempt":    attemptsUsed,
	}).Error("Ingest job failed")
	return nil
}

// RetryDelay computes the backoff before the next attempt, doubling per
// attempt already made
func (c *Controller) RetryDelay(attemptCount int) time.Duration {
	delay := c.config.RetryBaseDelay
	for i := 0; i < attemptCount; i++ {
		delay *= 2
	}
	return delay
}

// ClaimDue claims due pending jobs for processing
func (c *Controller) ClaimDue(ctx context.Context, limit int) ([]models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Controller.ClaimDue")
	defer span.End()

	return c.store.ClaimDue(ctx, limit)
}
