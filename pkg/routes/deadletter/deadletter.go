package deadletter

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const maxLimit = 500

// Queue reads the dead letter queue
type Queue interface {
	List(ctx context.Context, count int64) ([]redis.DLQEntry, error)
	Count(ctx context.Context) (int64, error)
}

// ListResponse is the API response for listing dead-lettered lookups
type ListResponse struct {
	Items      []redis.DLQEntry `json:"items"`
	TotalCount int64            `json:"total_count"`
}

// Handler exposes the dead letter queue for inspection
type Handler struct {
	queue  Queue
	logger ectologger.Logger
}

func NewHandler(queue Queue, logger ectologger.Logger) *Handler {
	return &Handler{queue: queue, logger: logger}
}

// Register registers the dead letter routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
}

// List returns the newest dead-lettered lookups
// @Summary List dead-lettered lookups
// @Tags DeadLetters
// @Produce json
// @Param limit query int false "Maximum entries (default 100, max 500)"
// @Success 200 {object} ListResponse
// @Router /api/v1/dead-letters [get]
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "deadletter_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 100
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, err := h.queue.List(ctx, int64(limit))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list dead letters")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dead letters")
	}
	total, err := h.queue.Count(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to count dead letters")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to count dead letters")
	}

	return c.JSON(http.StatusOK, ListResponse{Items: items, TotalCount: total})
}
