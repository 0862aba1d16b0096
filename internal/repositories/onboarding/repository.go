package onboarding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles onboarding request persistence and the approval
// transaction that transfers venue ownership
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new onboarding request repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = "id, tenant_id, venue_id, submitted_by, contact_email, whatsapp, revolut_link, momo_code, proposed_items, status, admin_notes, reviewed_by, reviewed_at, created_at, updated_at"

// Create creates a new pending onboarding request. The partial unique index
// on (tenant_id, venue_id) where status = pending enforces at most one open
// request per venue at the store level.
func (r *Repository) Create(ctx context.Context, request *models.OnboardingRequest) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "onboarding.Repository.Create")
	defer span.End()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.CreatedAt = time.Now().UTC()
	request.UpdatedAt = request.CreatedAt
	request.Status = models.OnboardingStatusPending

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("onboarding_requests")
	sb.Cols("id", "tenant_id", "venue_id", "submitted_by", "contact_email", "whatsapp", "revolut_link", "momo_code", "proposed_items", "status", "created_at", "updated_at")
	sb.Values(request.ID, request.TenantID, request.VenueID, request.SubmittedBy, request.ContactEmail, request.Whatsapp, request.RevolutLink, request.MomoCode, request.ProposedItems, request.Status, request.CreatedAt, request.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, httperror.NewHTTPError(http.StatusConflict, "A pending onboarding request already exists for this venue.")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": request.VenueID}).Error("Failed to create onboarding request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create onboarding request")
	}

	return request, nil
}

// Get retrieves an onboarding request by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "onboarding.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requestColumns)
	sb.From("onboarding_requests")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var request models.OnboardingRequest
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("onboarding request %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get onboarding request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get onboarding request")
	}

	return &request, nil
}

// ListPending retrieves pending onboarding requests for admin review
func (r *Repository) ListPending(ctx context.Context, tenantID string, limit int) ([]models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "onboarding.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requestColumns)
	sb.From("onboarding_requests")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.OnboardingStatusPending),
	)
	sb.OrderBy("created_at")
	sb.Limit(limit)

	query, args := sb.Build()
	requests := []models.OnboardingRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending onboarding requests")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list onboarding requests")
	}

	return requests, nil
}

// Approve decides a pending request and performs the ownership transfer in
// one transaction: request flip, venue claim, owner link, and menu seeding.
// Any failure rolls back all four steps.
func (r *Repository) Approve(ctx context.Context, tenantID string, id string, reviewerID string, adminNotes string) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "onboarding.Repository.Approve")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve onboarding request")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	flipQuery := fmt.Sprintf(`
		UPDATE onboarding_requests
		SET status = $1, reviewed_by = $2, reviewed_at = $3, admin_notes = NULLIF($4, ''), updated_at = $3
		WHERE id = $5 AND tenant_id = $6 AND status = $7
		RETURNING %s
	`, requestColumns)

	var request models.OnboardingRequest
	if err := tx.GetContext(txCtx, &request, flipQuery,
		models.OnboardingStatusApproved, reviewerID, now, adminNotes,
		id, tenantID, models.OnboardingStatusPending); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, r.decidedOrMissing(ctx, tenantID, id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"request_id": id}).Error("Failed to approve onboarding request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve onboarding request")
	}

	claimQuery := `
		UPDATE venues
		SET claimed = true, owner_id = $1, contact_email = $2, whatsapp = COALESCE($3, whatsapp),
			revolut_link = COALESCE($4, revolut_link), owner_email = NULL, owner_pin = NULL, updated_at = $5
		WHERE id = $6 AND tenant_id = $7 AND claimed = false
	`
	result, err := tx.ExecContext(txCtx, claimQuery,
		request.SubmittedBy, request.ContactEmail, request.Whatsapp, request.RevolutLink, now,
		request.VenueID, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": request.VenueID}).Error("Failed to claim venue for onboarding")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve onboarding request")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, "venue is already claimed")
	}

	linkQuery := `
		INSERT INTO venue_users (id, tenant_id, venue_id, user_id, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $6)
		ON CONFLICT (tenant_id, venue_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, is_active = true, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(txCtx, linkQuery, uuid.New().String(), tenantID, request.VenueID, request.SubmittedBy, models.VenueUserRoleOwner, now); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": request.VenueID}).Error("Failed to link venue owner")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve onboarding request")
	}

	proposed := request.ProposedItems.GetValue()
	if len(proposed) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("menu_items")
		sb.Cols("id", "tenant_id", "venue_id", "category", "name", "description", "price", "currency", "is_available", "created_at", "updated_at")
		for _, item := range proposed {
			category := item.Category
			if category == "" {
				category = models.DefaultCategory
			}
			price := 0.0
			if item.Price != nil {
				price = *item.Price
			}
			sb.Values(uuid.New().String(), tenantID, request.VenueID, category, item.Name, item.Description, price, item.Currency, true, now, now)
		}

		query, args := sb.Build()
		if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": request.VenueID, "count": len(proposed)}).Error("Failed to seed menu items from onboarding request")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve onboarding request")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve onboarding request")
	}

	return &request, nil
}

// Reject decides a pending request and deactivates any owner link that was
// provisionally created for the submitter
func (r *Repository) Reject(ctx context.Context, tenantID string, id string, reviewerID string, adminNotes string) (*models.OnboardingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "onboarding.Repository.Reject")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reject onboarding request")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	flipQuery := fmt.Sprintf(`
		UPDATE onboarding_requests
		SET status = $1, reviewed_by = $2, reviewed_at = $3, admin_notes = NULLIF($4, ''), updated_at = $3
		WHERE id = $5 AND tenant_id = $6 AND status = $7
		RETURNING %s
	`, requestColumns)

	var request models.OnboardingRequest
	if err := tx.GetContext(txCtx, &request, flipQuery,
		models.OnboardingStatusRejected, reviewerID, now, adminNotes,
		id, tenantID, models.OnboardingStatusPending); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, r.decidedOrMissing(ctx, tenantID, id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"request_id": id}).Error("Failed to reject onboarding request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reject onboarding request")
	}

	deactivateQuery := `
		UPDATE venue_users
		SET is_active = false, updated_at = $1
		WHERE tenant_id = $2 AND venue_id = $3 AND user_id = $4
	`
	if _, err := tx.ExecContext(txCtx, deactivateQuery, now, tenantID, request.VenueID, request.SubmittedBy); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": request.VenueID}).Error("Failed to deactivate venue user link")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reject onboarding request")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reject onboarding request")
	}

	return &request, nil
}

// decidedOrMissing maps a missed conditional update to the right error
func (r *Repository) decidedOrMissing(ctx context.Context, tenantID string, id string) error {
	request, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Request already %s", request.Status))
}
