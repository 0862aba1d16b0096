package userdir

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository resolves account emails against the users table
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new user directory repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LookupByEmail returns the user ID for an account email, or an empty ID
// when no account exists
func (r *Repository) LookupByEmail(ctx context.Context, email string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "userdir.Repository.LookupByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("users")
	sb.Where(sb.Equal("LOWER(email)", strings.ToLower(email)))

	query, args := sb.Build()
	var id string
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return "", nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up user by email")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up user")
	}

	return id, nil
}
