package approvalreq

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/approvals"
	appcontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Register registers approval request routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
	g.GET("/:id", Get)
	g.POST("/:id/approve", Approve)
	g.POST("/:id/reject", Reject)
	g.POST("/:id/cancel", Cancel)
}

// Create opens a new pending approval request
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "approvalreq_handler.Create")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	req, err := utils.BindRequest[models.CreateApprovalRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*approvals.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approvals service")
	}

	created, err := svc.Create(ctx, tenantID, userID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// List returns approval requests, urgent first
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "approvalreq_handler.List")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	status := models.ApprovalStatus(c.QueryParam("status"))

	ctx, svc, err := ectoinject.GetContext[*approvals.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approvals service")
	}

	requests, err := svc.List(ctx, tenantID, status, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, requests)
}

// Get returns a single approval request
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "approvalreq_handler.Get")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*approvals.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approvals service")
	}

	request, err := svc.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}

// Approve resolves a pending request as approved and applies its effect
func Approve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "approvalreq_handler.Approve")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	req, err := utils.BindRequest[models.ResolveApprovalRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*approvals.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approvals service")
	}

	result, err := svc.Approve(ctx, tenantID, c.Param("id"), userID, req.Notes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Reject resolves a pending request as rejected. Notes carry the required
// reason.
func Reject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "approvalreq_handler.Reject")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	req, err := utils.BindRequest[models.ResolveApprovalRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*approvals.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approvals service")
	}

	request, err := svc.Reject(ctx, tenantID, c.Param("id"), userID, req.Notes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}

// Cancel resolves a pending request as cancelled by its requester
func Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "approvalreq_handler.Cancel")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*approvals.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get approvals service")
	}

	request, err := svc.Cancel(ctx, tenantID, c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}
