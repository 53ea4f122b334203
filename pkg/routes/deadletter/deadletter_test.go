package deadletter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/redis"
)

func TestList(t *testing.T) {
	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), logger)
	dlq := redis.NewDeadLetterQueue(client, "", logger)

	ctx := context.Background()
	for _, q := range []string{"iPhone 16", "Galaxy S24", "Pixel 9"} {
		_, err := dlq.Add(ctx, &redis.DLQEntry{Request: models.LookupRequest{Query: q}, Kind: "collaborator", ErrorMessage: "oracle down"})
		require.NoError(t, err)
	}

	e := echo.New()
	NewHandler(dlq, logger).Register(e.Group("/api/v1/dead-letters"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dead-letters?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.TotalCount)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Pixel 9", resp.Items[0].Request.Query)
}
