package approval

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

// Repository handles approval request persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new approval request repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const approvalColumns = "id, tenant_id, request_type, entity_type, entity_id, venue_id, requested_by, notes, priority, status, entity_preview, expires_at, resolved_by, resolved_at, resolution_notes, created_at, updated_at"

// Create creates a new pending approval request
func (r *Repository) Create(ctx context.Context, request *models.ApprovalRequest) (*models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Repository.Create")
	defer span.End()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.CreatedAt = time.Now().UTC()
	request.UpdatedAt = request.CreatedAt
	request.Status = models.ApprovalStatusPending
	if request.Priority == "" {
		request.Priority = models.ApprovalPriorityNormal
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("approval_requests")
	sb.Cols("id", "tenant_id", "request_type", "entity_type", "entity_id", "venue_id", "requested_by", "notes", "priority", "status", "entity_preview", "expires_at", "created_at", "updated_at")
	sb.Values(request.ID, request.TenantID, request.RequestType, request.EntityType, request.EntityID, request.VenueID, request.RequestedBy, request.Notes, request.Priority, request.Status, request.EntityPreview, request.ExpiresAt, request.CreatedAt, request.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"request_id": request.ID}).Error("Failed to create approval request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create approval request")
	}

	return request, nil
}

// Get retrieves an approval request by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(approvalColumns)
	sb.From("approval_requests")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var request models.ApprovalRequest
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("approval request %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get approval request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approval request")
	}

	return &request, nil
}

// List retrieves approval requests with optional status filter, urgent first
func (r *Repository) List(ctx context.Context, tenantID string, status models.ApprovalStatus, limit int) ([]models.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(approvalColumns)
	sb.From("approval_requests")

	where := []string{sb.Equal("tenant_id", tenantID)}
	if status != "" {
		where = append(where, sb.Equal("status", status))
	}
	sb.Where(where...)
	sb.OrderBy("CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END", "created_at")
	sb.Limit(limit)

	query, args := sb.Build()
	requests := []models.ApprovalRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list approval requests")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list approval requests")
	}

	return requests, nil
}

// Resolve performs the single pending-to-terminal transition. Resolver and
// resolution timestamp are stamped atomically with the flip. Returns false
// when the request was not pending.
func (r *Repository) Resolve(ctx context.Context, tenantID string, id string, status models.ApprovalStatus, resolverID string, notes string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Repository.Resolve")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE approval_requests
		SET status = $1, resolved_by = $2, resolved_at = $3, resolution_notes = NULLIF($4, ''), updated_at = $3
		WHERE id = $5 AND tenant_id = $6 AND status = $7
	`

	result, err := r.db.ExecContext(ctx, query, status, resolverID, now, notes, id, tenantID, models.ApprovalStatusPending)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"request_id": id}).Error("Failed to resolve approval request")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve approval request")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ExpireDue flips pending requests past their expiry to expired, across all
// tenants. Returns the number of requests expired.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Repository.ExpireDue")
	defer span.End()

	query := `
		UPDATE approval_requests
		SET status = $1, resolved_at = $2, updated_at = $2
		WHERE status = $3 AND expires_at IS NOT NULL AND expires_at <= $2
	`

	result, err := r.db.ExecContext(ctx, query, models.ApprovalStatusExpired, now.UTC(), models.ApprovalStatusPending)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to expire approval requests")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to expire approval requests")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
