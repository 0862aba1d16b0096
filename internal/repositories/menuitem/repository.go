package menuitem

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles menu item reads. Menu items are written by the publish
// and onboarding flows, not through this repository.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new menu item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListByVenue retrieves the live menu for a venue
func (r *Repository) ListByVenue(ctx context.Context, tenantID string, venueID string) ([]models.MenuItem, error) {
	ctx, span := tracing.StartSpan(ctx, "menuitem.Repository.ListByVenue")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "venue_id", "category", "name", "description", "price", "currency", "is_available", "created_at", "updated_at")
	sb.From("menu_items")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("venue_id", venueID),
	)
	sb.OrderBy("category", "name")

	query, args := sb.Build()
	items := []models.MenuItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list menu items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list menu items")
	}

	return items, nil
}
