package ingestjob

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles ingest job persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ingest job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const jobColumns = "id, tenant_id, venue_id, file_path, status, error_code, error_message, attempt_count, next_attempt_at, started_at, finished_at, created_by, created_at, updated_at"

// Create creates a new ingest job in the pending state
func (r *Repository) Create(ctx context.Context, job *models.IngestJob) (*models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.Create")
	defer span.End()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	job.Status = models.IngestJobStatusPending
	job.AttemptCount = 0

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("ingest_jobs")
	sb.Cols("id", "tenant_id", "venue_id", "file_path", "status", "attempt_count", "created_by", "created_at", "updated_at")
	sb.Values(job.ID, job.TenantID, job.VenueID, job.FilePath, job.Status, job.AttemptCount, job.CreatedBy, job.CreatedAt, job.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": job.ID}).Error("Failed to create ingest job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create ingest job")
	}

	return job, nil
}

// Get retrieves an ingest job by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(jobColumns)
	sb.From("ingest_jobs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var job models.IngestJob
	if err := r.db.GetContext(ctx, &job, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("ingest job %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get ingest job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ingest job")
	}

	return &job, nil
}

// ListByVenue retrieves ingest jobs for a venue, newest first
func (r *Repository) ListByVenue(ctx context.Context, tenantID string, venueID string, page, pageSize int) (*models.IngestJobListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.ListByVenue")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("ingest_jobs")
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.Equal("venue_id", venueID),
	)

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count ingest jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ingest jobs")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(jobColumns)
	sb.From("ingest_jobs")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("venue_id", venueID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	jobs := []models.IngestJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ingest jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ingest jobs")
	}

	return &models.IngestJobListResponse{
		Jobs:     jobs,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// TransitionStatus performs a conditional status flip. Returns false when no
// row matched the expected prior status, so callers can distinguish a lost
// race from success without a read-then-write.
func (r *Repository) TransitionStatus(ctx context.Context, tenantID string, id string, from, to models.IngestJobStatus) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.TransitionStatus")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("ingest_jobs")

	assignments := []string{
		sb.Assign("status", to),
		sb.Assign("updated_at", now),
	}
	switch to {
	case models.IngestJobStatusRunning:
		assignments = append(assignments, sb.Assign("started_at", now))
	case models.IngestJobStatusNeedsReview, models.IngestJobStatusPublished, models.IngestJobStatusFailed:
		assignments = append(assignments, sb.Assign("finished_at", now))
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", from),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": id}).Error("Failed to transition ingest job status")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update ingest job status")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Requeue moves a running job back to pending with the failure recorded and
// the next attempt scheduled
func (r *Repository) Requeue(ctx context.Context, tenantID string, id string, errCode, errMessage string, nextAttemptAt time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.Requeue")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE ingest_jobs
		SET status = $1, error_code = $2, error_message = $3, attempt_count = attempt_count + 1, next_attempt_at = $4, updated_at = $5
		WHERE id = $6 AND tenant_id = $7 AND status = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		models.IngestJobStatusPending, errCode, errMessage, nextAttemptAt, now,
		id, tenantID, models.IngestJobStatusRunning)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": id}).Error("Failed to requeue ingest job")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to requeue ingest job")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Fail marks a non-terminal job as failed with the error recorded
func (r *Repository) Fail(ctx context.Context, tenantID string, id string, errCode, errMessage string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.Fail")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE ingest_jobs
		SET status = $1, error_code = $2, error_message = $3, attempt_count = attempt_count + 1, finished_at = $4, updated_at = $4
		WHERE id = $5 AND tenant_id = $6 AND status NOT IN ($7, $8)
	`

	result, err := r.db.ExecContext(ctx, query,
		models.IngestJobStatusFailed, errCode, errMessage, now,
		id, tenantID, models.IngestJobStatusPublished, models.IngestJobStatusFailed)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": id}).Error("Failed to fail ingest job")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to fail ingest job")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ClaimDue atomically claims due pending jobs for processing across tenants.
// SKIP LOCKED keeps concurrent workers from double-claiming.
func (r *Repository) ClaimDue(ctx context.Context, limit int) ([]models.IngestJob, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestjob.Repository.ClaimDue")
	defer span.End()

	if limit < 1 {
		limit = 10
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE ingest_jobs
		SET status = $1, started_at = $2, updated_at = $2
		WHERE id IN (
			SELECT id FROM ingest_jobs
			WHERE status = $3 AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, jobColumns)

	jobs := []models.IngestJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, models.IngestJobStatusRunning, now, models.IngestJobStatusPending, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to claim due ingest jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to claim due ingest jobs")
	}

	return jobs, nil
}
