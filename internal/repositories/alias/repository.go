package alias

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// AliasRepository maps query fingerprints to the variation they resolved to
type AliasRepository interface {
	Get(ctx context.Context, fingerprint string) (*models.QueryAlias, error)
	Put(ctx context.Context, alias *models.QueryAlias) error
}

// Repository implements AliasRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new query alias repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "query_aliases"

var columns = []string{"fingerprint", "query", "variation_id", "created_at"}

// Get returns the alias for fingerprint, or nil when the query was never resolved
func (r *Repository) Get(ctx context.Context, fingerprint string) (*models.QueryAlias, error) {
	ctx, span := tracing.StartSpan(ctx, "AliasRepository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("fingerprint", fingerprint))

	query, args := sb.Build()

	var a models.QueryAlias
	err := database.Executor(ctx, r.db).GetContext(ctx, &a, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get query alias")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get query alias")
	}

	return &a, nil
}

// Put stores an alias. The first resolution of a fingerprint wins; later
// writes for the same fingerprint are ignored.
func (r *Repository) Put(ctx context.Context, alias *models.QueryAlias) error {
	ctx, span := tracing.StartSpan(ctx, "AliasRepository.Put")
	defer span.End()

	if alias.CreatedAt.IsZero() {
		alias.CreatedAt = time.Now().UTC()
	}

	ib := database.NewInsertBuilder(tableName, columns...)
	ib.Values(alias.Fingerprint, alias.Query, alias.VariationID, alias.CreatedAt)
	ib.OnConflictDoNothing("fingerprint")

	query, args := ib.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to store query alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store query alias")
	}

	return nil
}
