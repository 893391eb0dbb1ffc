// Package dataset exposes the thin HTTP surface for dataset management:
// registration, listing, note inspection and manual parse triggers.
package dataset

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	datasetrepo "github.com/Ramsey-B/fern/internal/repositories/dataset"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
)

// Register registers dataset routes
func Register(g *echo.Group) {
	g.POST("", CreateDataset)
	g.GET("", ListDatasets)
	g.GET("/:id", GetDataset)
	g.GET("/:id/notes", ListNotes)
	g.POST("/:id/parse", TriggerParse)
}

// CreateDataset registers a new dataset for ingestion
func CreateDataset(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateDatasetRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, validate, err := ectoinject.GetContext[*validator.Validate](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	existing, err := repo.GetByIdentifier(ctx, req.Identifier)
	if err != nil {
		return err
	}
	if existing != nil {
		return httperror.NewHTTPError(http.StatusConflict, "dataset already registered")
	}

	ds, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, ds)
}

// GetDataset gets a dataset by ID
func GetDataset(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ds, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ds)
}

// ListDatasets lists datasets with optional publisher filtering
func ListDatasets(c echo.Context) error {
	ctx := c.Request().Context()

	var publisher *string
	if p := c.QueryParam("publisher"); p != "" {
		publisher = &p
	}
	page, pageSize := pagination(c)

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := repo.List(ctx, publisher, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// ListNotes lists the validation notes recorded for a dataset's latest parse
func ListNotes(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var kind *string
	if k := c.QueryParam("kind"); k != "" {
		kind = &k
	}
	page, pageSize := pagination(c)

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := repo.ListNotes(ctx, id, kind, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// TriggerParse manually schedules a parse pass for a dataset
func TriggerParse(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ds, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := proc.ParseDataset(ctx, ds); err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "parsed", "dataset_id": ds.ID})
}

func pagination(c echo.Context) (int, int) {
	page := 1
	pageSize := 50

	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}
