package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	sagecontext "github.com/Ramsey-B/sage/pkg/context"
)

// HeaderUserID carries the id of the user a lookup is made for
const HeaderUserID = "X-User-ID"

// Context stores the request metadata in the request context. A request
// without an id gets a fresh one, echoed back in the response headers.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			ctx := sagecontext.WithRequest(req.Context(), sagecontext.Request{
				ID:       id,
				UserID:   req.Header.Get(HeaderUserID),
				Method:   req.Method,
				Route:    c.Path(),
				RemoteIP: c.RealIP(),
			})
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
