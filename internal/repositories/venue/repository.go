package venue

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

// Repository handles venue persistence and the claim state transitions.
// Every claim mutation is a conditional update so concurrent admins cannot
// race each other into an inconsistent ownership state.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new venue repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const venueColumns = "id, tenant_id, name, slug, country, claimed, owner_id, owner_email, owner_pin, contact_email, revolut_link, whatsapp, created_at, updated_at"

// Get retrieves a venue by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(venueColumns)
	sb.From("venues")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var venue models.Venue
	if err := r.db.GetContext(ctx, &venue, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("venue %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get venue")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get venue")
	}

	return &venue, nil
}

// ListByClaimState retrieves venues filtered by derived claim state
func (r *Repository) ListByClaimState(ctx context.Context, tenantID string, state models.ClaimState, limit int) ([]models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.ListByClaimState")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(venueColumns)
	sb.From("venues")

	where := []string{sb.Equal("tenant_id", tenantID)}
	switch state {
	case models.ClaimStateClaimed:
		where = append(where, sb.Equal("claimed", true))
	case models.ClaimStatePending:
		where = append(where, sb.Equal("claimed", false), "owner_email IS NOT NULL")
	case models.ClaimStateUnclaimed:
		where = append(where, sb.Equal("claimed", false), "owner_email IS NULL")
	}
	sb.Where(where...)
	sb.OrderBy("name")
	sb.Limit(limit)

	query, args := sb.Build()
	venues := []models.Venue{}
	if err := r.db.SelectContext(ctx, &venues, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list venues")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list venues")
	}

	return venues, nil
}

// SubmitClaim records a pending ownership claim on an unclaimed venue. The
// conditional update enforces at most one pending claim per venue.
func (r *Repository) SubmitClaim(ctx context.Context, tenantID string, venueID string, ownerEmail, ownerPin string) error {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.SubmitClaim")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE venues
		SET owner_email = $1, owner_pin = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5 AND claimed = false AND owner_email IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, ownerEmail, ownerPin, now, venueID, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to submit venue claim")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to submit venue claim")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		venue, getErr := r.Get(ctx, tenantID, venueID)
		if getErr != nil {
			return getErr
		}
		if venue.Claimed {
			return httperror.NewHTTPError(http.StatusConflict, "venue is already claimed")
		}
		return httperror.NewHTTPError(http.StatusConflict, "A pending claim already exists for this venue.")
	}

	return nil
}

// ApproveClaim flips an unclaimed venue with a pending claim to claimed and
// links the resolved owner, in one transaction. Returns false when the
// conditional update matched no row (venue missing, unclaimed, or already
// claimed) so the caller can decide whether that is a no-op.
func (r *Repository) ApproveClaim(ctx context.Context, tenantID string, venueID string, ownerID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.ApproveClaim")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve venue claim")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	claimQuery := `
		UPDATE venues
		SET claimed = true, owner_id = $1, contact_email = COALESCE(contact_email, owner_email),
			owner_email = NULL, owner_pin = NULL, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND claimed = false AND owner_email IS NOT NULL
	`

	result, err := tx.ExecContext(txCtx, claimQuery, ownerID, now, venueID, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to approve venue claim")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve venue claim")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	if err := upsertOwnerLink(txCtx, tx, tenantID, venueID, ownerID, now); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to link venue owner")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve venue claim")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to approve venue claim")
	}

	return true, nil
}

// RejectClaim clears a pending claim, returning the venue to unclaimed.
// Returns false when the venue had no pending claim.
func (r *Repository) RejectClaim(ctx context.Context, tenantID string, venueID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.RejectClaim")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE venues
		SET owner_email = NULL, owner_pin = NULL, updated_at = $1
		WHERE id = $2 AND tenant_id = $3 AND claimed = false AND owner_email IS NOT NULL
	`

	result, err := r.db.ExecContext(ctx, query, now, venueID, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to reject venue claim")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reject venue claim")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// RevokeClaim strips active ownership from a claimed venue and deactivates
// the owner link. Returns false when the venue was not claimed.
func (r *Repository) RevokeClaim(ctx context.Context, tenantID string, venueID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.RevokeClaim")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to revoke venue claim")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	query := `
		UPDATE venues
		SET claimed = false, owner_id = NULL, owner_email = NULL, owner_pin = NULL, contact_email = NULL, updated_at = $1
		WHERE id = $2 AND tenant_id = $3 AND claimed = true
	`

	result, err := tx.ExecContext(txCtx, query, now, venueID, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to revoke venue claim")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to revoke venue claim")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	deactivateQuery := `
		UPDATE venue_users
		SET is_active = false, updated_at = $1
		WHERE tenant_id = $2 AND venue_id = $3 AND role = $4
	`
	if _, err := tx.ExecContext(txCtx, deactivateQuery, now, tenantID, venueID, models.VenueUserRoleOwner); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID}).Error("Failed to deactivate venue owner link")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to revoke venue claim")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to revoke venue claim")
	}

	return true, nil
}

// upsertOwnerLink creates or reactivates the owner's venue_users row without
// ever duplicating it
func upsertOwnerLink(ctx context.Context, tx database.Tx, tenantID, venueID, userID string, now time.Time) error {
	query := `
		INSERT INTO venue_users (id, tenant_id, venue_id, user_id, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $6)
		ON CONFLICT (tenant_id, venue_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, is_active = true, updated_at = EXCLUDED.updated_at
	`
	_, err := tx.ExecContext(ctx, query, uuid.New().String(), tenantID, venueID, userID, models.VenueUserRoleOwner, now)
	return err
}
