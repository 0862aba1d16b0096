package onboarding

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

// Register registers onboarding request routes
func Register(g *echo.Group) {
	g.POST("", Submit)
	g.GET("", ListPending)
	g.GET("/:id", Get)
	g.POST("/:id/approve", Approve)
	g.POST("/:id/reject", Reject)
}

// Submit files a formal onboarding request for a venue
func Submit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "onboarding_handler.Submit")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	req, err := utils.BindRequest[models.CreateOnboardingRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	created, err := svc.SubmitOnboarding(ctx, tenantID, userID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// ListPending returns pending onboarding requests for admin review
func ListPending(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "onboarding_handler.ListPending")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	requests, err := svc.ListPendingOnboarding(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, requests)
}

// Get returns a single onboarding request
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "onboarding_handler.Get")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	request, err := svc.GetOnboarding(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}

// Approve approves a pending onboarding request
func Approve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "onboarding_handler.Approve")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	req, err := utils.BindRequest[models.ReviewOnboardingRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	request, err := svc.ApproveOnboarding(ctx, tenantID, c.Param("id"), userID, req.AdminNotes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}

// Reject rejects a pending onboarding request
func Reject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "onboarding_handler.Reject")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	req, err := utils.BindRequest[models.ReviewOnboardingRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*claims.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get claims service")
	}

	request, err := svc.RejectOnboarding(ctx, tenantID, c.Param("id"), userID, req.AdminNotes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}
