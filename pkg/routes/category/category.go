package category

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var validate = validator.New()

// Service lists and resolves categories
type Service interface {
	ListCategories(ctx context.Context) ([]models.CategoryNode, error)
	ResolveCategory(ctx context.Context, label string) (models.CategoryNode, bool, error)
}

// Handler handles category API endpoints
type Handler struct {
	service Service
}

// NewHandler creates a new category handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register registers the category routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/resolve", h.Resolve)
}

// List returns every category with its path
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} models.CategoryListResponse
// @Router /api/v1/categories [get]
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "category_handler.List")
	defer span.End()

	items, err := h.service.ListCategories(ctx)
	if err != nil {
		return sageerrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, models.CategoryListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Resolve maps a free-text label onto the category tree, creating the
// missing levels under the default parent
// @Summary Resolve a category label
// @Tags Categories
// @Accept json
// @Produce json
// @Param body body models.ResolveCategoryRequest true "Category label"
// @Success 200 {object} models.ResolveCategoryResponse
// @Success 201 {object} models.ResolveCategoryResponse
// @Failure 400 {object} httperror.HTTPError
// @Router /api/v1/categories/resolve [post]
func (h *Handler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "category_handler.Resolve")
	defer span.End()

	var req models.ResolveCategoryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	node, created, err := h.service.ResolveCategory(ctx, req.Label)
	if err != nil {
		return sageerrors.ToHTTPError(err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, models.ResolveCategoryResponse{Category: node, Created: created})
}
