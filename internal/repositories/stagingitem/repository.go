package stagingitem

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

// Repository handles staging item persistence and the publish reconciliation
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new staging item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const stagingColumns = "id, tenant_id, job_id, venue_id, raw_category, name, description, price, currency, confidence, parse_warnings, suggested_action, created_at, updated_at"

// ReplaceForJob replaces all staging rows for a job with freshly parsed items.
// Delete plus insert in one transaction keeps parser retries idempotent.
func (r *Repository) ReplaceForJob(ctx context.Context, tenantID string, jobID string, venueID string, items []models.ParsedItem) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingitem.Repository.ReplaceForJob")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staging items")
	}
	defer tx.Rollback(ctx)

	deleteQuery := `DELETE FROM staging_items WHERE tenant_id = $1 AND job_id = $2`
	if _, err := tx.ExecContext(txCtx, deleteQuery, tenantID, jobID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to clear staging items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staging items")
	}

	if len(items) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staging items")
		}
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("staging_items")
	sb.Cols("id", "tenant_id", "job_id", "venue_id", "raw_category", "name", "description", "price", "currency", "confidence", "parse_warnings", "suggested_action", "created_at", "updated_at")

	for _, item := range items {
		confidence := models.DefaultConfidence
		if item.Confidence != nil {
			confidence = *item.Confidence
		}
		warnings := item.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		sb.Values(uuid.New().String(), tenantID, jobID, venueID, item.Category, item.Name, item.Description, item.Price, item.Currency, confidence, database.NewJSONB(warnings), models.StagingActionKeep, now, now)
	}

	query, args := sb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID, "count": len(items)}).Error("Failed to insert staging items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staging items")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staging items")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"job_id": jobID, "count": len(items)}).Debug("Replaced staging items for job")
	return len(items), nil
}

// ListByJob retrieves all staging items for a job
func (r *Repository) ListByJob(ctx context.Context, tenantID string, jobID string) ([]models.StagingItem, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingitem.Repository.ListByJob")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(stagingColumns)
	sb.From("staging_items")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("job_id", jobID),
	)
	sb.OrderBy("created_at")

	query, args := sb.Build()
	items := []models.StagingItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list staging items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staging items")
	}

	return items, nil
}

// UpdateAction records a reviewer decision. The join against ingest_jobs
// guards that the owning job is still under review.
func (r *Repository) UpdateAction(ctx context.Context, tenantID string, itemID string, action models.StagingAction) error {
	ctx, span := tracing.StartSpan(ctx, "stagingitem.Repository.UpdateAction")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE staging_items si
		SET suggested_action = $1, updated_at = $2
		FROM ingest_jobs j
		WHERE si.id = $3 AND si.tenant_id = $4 AND j.id = si.job_id AND j.status = $5
	`

	result, err := r.db.ExecContext(ctx, query, action, now, itemID, tenantID, models.IngestJobStatusNeedsReview)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": itemID}).Error("Failed to update staging item action")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update staging item action")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing row from a job that left review
		var exists bool
		checkQuery := `SELECT EXISTS (SELECT 1 FROM staging_items WHERE id = $1 AND tenant_id = $2)`
		if err := r.db.GetContext(ctx, &exists, checkQuery, itemID, tenantID); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to check staging item existence")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update staging item action")
		}
		if !exists {
			return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("staging item %s not found", itemID))
		}
		return httperror.NewHTTPError(http.StatusConflict, "staging item cannot be updated: job is not under review")
	}

	return nil
}

// PublishApproved converts all non-dropped staging items for a reviewed job
// into live menu items and flips the job to published, atomically. A job that
// is already published reports a no-op instead of double-publishing.
func (r *Repository) PublishApproved(ctx context.Context, tenantID string, jobID string, venueID string, currency string) (*models.PublishResult, error) {
	ctx, span := tracing.StartSpan(ctx, "stagingitem.Repository.PublishApproved")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to publish staging items")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	// Conditional flip guards against concurrent and repeated publishes
	flipQuery := `
		UPDATE ingest_jobs
		SET status = $1, finished_at = $2, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND venue_id = $5 AND status = $6
	`
	result, err := tx.ExecContext(txCtx, flipQuery, models.IngestJobStatusPublished, now, jobID, tenantID, venueID, models.IngestJobStatusNeedsReview)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID}).Error("Failed to mark ingest job published")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to publish staging items")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var status models.IngestJobStatus
		statusQuery := `SELECT status FROM ingest_jobs WHERE id = $1 AND tenant_id = $2 AND venue_id = $3`
		if err := r.db.GetContext(ctx, &status, statusQuery, jobID, tenantID, venueID); err != nil {
			if err.Error() == "sql: no rows in result set" {
				return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("ingest job %s not found", jobID))
			}
			r.logger.WithContext(ctx).WithError(err).Error("Failed to check ingest job status")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to publish staging items")
		}
		if status == models.IngestJobStatusPublished {
			return &models.PublishResult{AlreadyPublished: true}, nil
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("ingest job %s is not ready to publish (status %s)", jobID, status))
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s FROM staging_items
		WHERE tenant_id = $1 AND job_id = $2 AND suggested_action <> $3
		ORDER BY created_at
	`, stagingColumns)

	items := []models.StagingItem{}
	if err := tx.SelectContext(txCtx, &items, selectQuery, tenantID, jobID, models.StagingActionDrop); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read staging items for publish")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to publish staging items")
	}

	if len(items) == 0 {
		// Nothing to publish. Leave the job under review.
		return &models.PublishResult{}, nil
	}

	defaulted := 0
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("menu_items")
	sb.Cols("id", "tenant_id", "venue_id", "category", "name", "description", "price", "currency", "is_available", "created_at", "updated_at")
	for i := range items {
		menuItem, priceDefaulted := items[i].ToMenuItem(venueID, currency)
		if priceDefaulted {
			defaulted++
		}
		sb.Values(uuid.New().String(), menuItem.TenantID, menuItem.VenueID, menuItem.Category, menuItem.Name, menuItem.Description, menuItem.Price, menuItem.Currency, menuItem.IsAvailable, now, now)
	}

	query, args := sb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job_id": jobID, "count": len(items)}).Error("Failed to insert menu items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to publish staging items")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to publish staging items")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":           jobID,
		"published":        len(items),
		"defaulted_prices": defaulted,
	}).Info("Published staging items")

	return &models.PublishResult{Published: len(items), DefaultedPrices: defaulted}, nil
}
