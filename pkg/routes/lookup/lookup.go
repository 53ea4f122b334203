package lookup

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	sagecontext "github.com/Ramsey-B/sage/pkg/context"
	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var validate = validator.New()

// Service is the part of the resolver the lookup routes use
type Service interface {
	Lookup(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error)
	ResolveIdentity(ctx context.Context, text string) (*models.Identity, error)
	FindOffersForVariation(ctx context.Context, variationID string) (*models.OffersResponse, error)
}

// Notifier publishes lookup outcomes
type Notifier interface {
	EmitCompleted(ctx context.Context, result *models.LookupResult) error
	EmitFailed(ctx context.Context, req models.LookupRequest, lookupErr error) error
}

// Handler handles lookup API endpoints
type Handler struct {
	service  Service
	notifier Notifier
	logger   ectologger.Logger
}

// NewHandler creates a new lookup handler. notifier may be nil, in which
// case notify=true is ignored.
func NewHandler(service Service, notifier Notifier, logger ectologger.Logger) *Handler {
	return &Handler{
		service:  service,
		notifier: notifier,
		logger:   logger,
	}
}

// Register registers the lookup routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/lookup", h.Lookup)
	g.POST("/identity", h.Identity)
	g.GET("/variations/:id/offers", h.Offers)
}

// Lookup resolves a query and finds its offers
// @Summary Look up a product
// @Description Resolve free text to a catalog variation and return its current offers
// @Tags Lookup
// @Accept json
// @Produce json
// @Param body body models.LookupRequest true "Lookup request"
// @Param notify query bool false "Also publish the result as a notification"
// @Success 200 {object} models.LookupResult
// @Failure 400 {object} httperror.HTTPError
// @Failure 502 {object} httperror.HTTPError
// @Failure 503 {object} httperror.HTTPError
// @Router /api/v1/lookup [post]
func (h *Handler) Lookup(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "lookup_handler.Lookup")
	defer span.End()

	var req models.LookupRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RequestID == "" {
		req.RequestID = sagecontext.GetRequestID(ctx)
	}
	if req.UserID == "" {
		req.UserID = sagecontext.GetUserID(ctx)
	}

	notify, _ := strconv.ParseBool(c.QueryParam("notify"))
	notify = notify && h.notifier != nil

	result, err := h.service.Lookup(ctx, req)
	if err != nil {
		if notify {
			if emitErr := h.notifier.EmitFailed(ctx, req, err); emitErr != nil {
				h.logger.WithContext(ctx).WithError(emitErr).Warn("Failed to publish lookup failure")
			}
		}
		return sageerrors.ToHTTPError(err)
	}

	if notify {
		if err := h.notifier.EmitCompleted(ctx, result); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("Failed to publish lookup result")
		}
	}

	return c.JSON(http.StatusOK, result)
}

// Identity resolves a query to a catalog variation without looking for offers
// @Summary Resolve a product identity
// @Tags Lookup
// @Accept json
// @Produce json
// @Param body body models.IdentityRequest true "Identity request"
// @Success 200 {object} models.Identity
// @Failure 400 {object} httperror.HTTPError
// @Failure 502 {object} httperror.HTTPError
// @Router /api/v1/identity [post]
func (h *Handler) Identity(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "lookup_handler.Identity")
	defer span.End()

	var req models.IdentityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.service.ResolveIdentity(ctx, req.Query)
	if err != nil {
		return sageerrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, identity)
}

// Offers returns the current offers of a stored variation, crawling when
// nothing recent is stored
// @Summary Get offers for a variation
// @Tags Lookup
// @Produce json
// @Param id path string true "Variation ID"
// @Success 200 {object} models.OffersResponse
// @Failure 404 {object} httperror.HTTPError
// @Failure 503 {object} httperror.HTTPError
// @Router /api/v1/variations/{id}/offers [get]
func (h *Handler) Offers(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "lookup_handler.Offers")
	defer span.End()

	id := c.Param("id")
	if err := validate.Var(id, "required,uuid"); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a uuid")
	}

	resp, err := h.service.FindOffersForVariation(ctx, id)
	if err != nil {
		return sageerrors.ToHTTPError(err)
	}
	if resp == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "variation not found")
	}

	return c.JSON(http.StatusOK, resp)
}
