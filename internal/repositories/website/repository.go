package website

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// WebsiteRepository is read-only access to the retail sources
type WebsiteRepository interface {
	ListAll(ctx context.Context) ([]models.Website, error)
	ListByCategories(ctx context.Context, categoryIDs []string) ([]models.Website, error)
	GetByDomain(ctx context.Context, domain string) (*models.Website, error)
}

// Repository implements WebsiteRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new website repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const (
	tableName     = "websites"
	categoryTable = "website_categories"
)

var columns = []string{"id", "name", "domain", "logo_url", "search_url", "search_pattern", "particular_search_path", "affiliate_link", "listing_path"}

func qualified(alias string) []string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = alias + "." + c
	}
	return cols
}

// ListAll returns every website ordered by domain
func (r *Repository) ListAll(ctx context.Context) ([]models.Website, error) {
	ctx, span := tracing.StartSpan(ctx, "WebsiteRepository.ListAll")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("domain").Asc()

	query, args := sb.Build()

	var items []models.Website
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list websites")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list websites")
	}

	return items, nil
}

// ListByCategories returns the websites linked to any of categoryIDs.
// Categories nobody linked a website to fall back to every website.
func (r *Repository) ListByCategories(ctx context.Context, categoryIDs []string) ([]models.Website, error) {
	ctx, span := tracing.StartSpan(ctx, "WebsiteRepository.ListByCategories")
	defer span.End()

	if len(categoryIDs) == 0 {
		return r.ListAll(ctx)
	}

	sb := database.NewSelectBuilder()
	sb.Select(qualified("w")...).Distinct()
	sb.From(sb.As(tableName, "w"))
	sb.Join(sb.As(categoryTable, "wc"), "wc.website_id = w.id")
	sb.Where(sb.In("wc.category_id", sqlbuilder.Flatten(categoryIDs)...))
	sb.OrderBy("w.domain").Asc()

	query, args := sb.Build()

	var items []models.Website
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list websites by category")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list websites")
	}

	if len(items) == 0 {
		r.logger.WithContext(ctx).Debugf("No websites linked to categories %v, using all websites", categoryIDs)
		return r.ListAll(ctx)
	}

	return items, nil
}

// GetByDomain finds a website by its normalized domain
func (r *Repository) GetByDomain(ctx context.Context, domain string) (*models.Website, error) {
	ctx, span := tracing.StartSpan(ctx, "WebsiteRepository.GetByDomain")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("domain", normalizers.Domain(domain)))

	query, args := sb.Build()

	var w models.Website
	err := database.Executor(ctx, r.db).GetContext(ctx, &w, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get website by domain")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get website")
	}

	return &w, nil
}
