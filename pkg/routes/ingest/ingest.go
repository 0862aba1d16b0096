package ingest

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	appcontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/lifecycle"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reconciler"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Register registers ingest job routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/:id/items", ListItems)
	g.POST("/:id/publish", Publish)
	g.PATCH("/items/:itemID", UpdateItemAction)
}

// Create creates a new ingest job for an uploaded menu image
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.Create")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	req, err := utils.BindRequest[models.CreateIngestJobRequest](c)
	if err != nil {
		return err
	}
	if req.CreatedBy == "" {
		req.CreatedBy = appcontext.GetUserID(ctx)
	}

	ctx, controller, err := ectoinject.GetContext[*lifecycle.Controller](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get job controller")
	}

	job, err := controller.CreateJob(ctx, tenantID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, job)
}

// List returns ingest jobs for a venue, newest first
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.List")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	venueID := c.QueryParam("venue_id")
	if venueID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "venue_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, controller, err := ectoinject.GetContext[*lifecycle.Controller](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get job controller")
	}

	jobs, err := controller.ListJobs(ctx, tenantID, venueID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, jobs)
}

// Get returns a single ingest job
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.Get")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, controller, err := ectoinject.GetContext[*lifecycle.Controller](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get job controller")
	}

	job, err := controller.GetJob(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, job)
}

// ListItems returns the staging items for a job
func ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.ListItems")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*reconciler.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconciler")
	}

	items, err := svc.ListStagingItems(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// UpdateItemAction records a reviewer decision on a staging item
func UpdateItemAction(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.UpdateItemAction")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	req, err := utils.BindRequest[models.UpdateStagingActionRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*reconciler.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconciler")
	}

	if err := svc.UpdateStagingAction(ctx, tenantID, c.Param("itemID"), &req); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Publish converts the job's non-dropped staging items into live menu items
func Publish(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "ingest_handler.Publish")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	req, err := utils.BindRequest[models.PublishRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*reconciler.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconciler")
	}

	result, err := svc.Publish(ctx, tenantID, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
