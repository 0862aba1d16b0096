package venues

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/claims"
	appcontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Register registers venue and claim routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/:id/menu", GetMenu)
	g.POST("/:id/claim", SubmitClaim)
	g.POST("/:id/claim/approve", ApproveClaim)
	g.POST("/:id/claim/reject", RejectClaim)
	g.POST("/:id/claim/revoke", RevokeClaim)
}

// List returns venues, optionally filtered by claim state
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.List")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	state := models.ClaimState(c.QueryParam("claim_state"))

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	venues, err := svc.ListVenues(ctx, tenantID, state, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, venues)
}

// Get returns a single venue
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.Get")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	venue, err := svc.GetVenue(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, venue)
}

// GetMenu returns the live menu for a venue
func GetMenu(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.GetMenu")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	items, err := svc.GetMenu(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// SubmitClaim records a pending ownership claim on an unclaimed venue
func SubmitClaim(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.SubmitClaim")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	req, err := utils.BindRequest[models.SubmitClaimRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	if err := svc.SubmitClaim(ctx, tenantID, c.Param("id"), &req); err != nil {
		return err
	}

	return c.NoContent(http.StatusAccepted)
}

// ApproveClaim hands the venue to the account behind the pending claim
func ApproveClaim(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.ApproveClaim")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	venue, err := svc.ApproveClaim(ctx, tenantID, c.Param("id"), appcontext.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, venue)
}

// RejectClaim clears a pending claim
func RejectClaim(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.RejectClaim")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	if err := svc.RejectClaim(ctx, tenantID, c.Param("id"), appcontext.GetUserID(ctx)); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// RevokeClaim strips active ownership from a claimed venue
func RevokeClaim(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venues_handler.RevokeClaim")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	if err := svc.RevokeClaim(ctx, tenantID, c.Param("id"), appcontext.GetUserID(ctx)); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
