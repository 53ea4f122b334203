package middleware

import (
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	sagecontext "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/metrics"
)

// Logger writes an access log line and the API metrics for every request.
// A handler error goes through echo's error handler first, so the status
// logged is the status sent.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			took := time.Since(start)

			req, res := c.Request(), c.Response()
			metrics.RecordAPIRequest(req.Method, c.Path(), strconv.Itoa(res.Status), took.Seconds())

			fields := sagecontext.LogFields(req.Context())
			fields["uri"] = req.RequestURI
			fields["status"] = res.Status
			fields["latency_ms"] = took.Milliseconds()
			fields["bytes_out"] = res.Size
			fields["user_agent"] = req.UserAgent()
			logger.WithContext(req.Context()).WithFields(fields).Info("Request")
			return nil
		}
	}
}
