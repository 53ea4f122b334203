package product

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ProductRepository defines the interface for product and variation access
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	FindByBrandModel(ctx context.Context, brand, model string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	CreateWithVariations(ctx context.Context, product *models.Product, variations []models.Variation) ([]models.Variation, error)
	GetVariation(ctx context.Context, id string) (*models.Variation, error)
	ListVariations(ctx context.Context, productID string) ([]models.Variation, error)
	AddVariations(ctx context.Context, productID string, variations []models.Variation) ([]models.Variation, error)
}

// Repository implements ProductRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new product repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const (
	productsTable   = "products"
	variationsTable = "product_variations"
)

var (
	productColumns   = []string{"id", "name", "brand", "model", "category_id", "attributes", "created_at"}
	variationColumns = []string{"id", "product_id", "label", "variation_key", "sku", "specs", "created_at"}
)

// GetByID gets a product by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(productColumns...)
	sb.From(productsTable)
	sb.Where(sb.Equal("id", id))

	return r.getProduct(ctx, sb)
}

// FindByBrandModel looks a product up by brand and model, ignoring case.
// The oldest product wins when several share the pair.
func (r *Repository) FindByBrandModel(ctx context.Context, brand, model string) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.FindByBrandModel")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(productColumns...)
	sb.From(productsTable)
	sb.Where(
		sb.Equal("lower(brand)", strings.ToLower(strings.TrimSpace(brand))),
		sb.Equal("lower(model)", strings.ToLower(strings.TrimSpace(model))),
	)
	sb.OrderBy("created_at").Asc()
	sb.Limit(1)

	return r.getProduct(ctx, sb)
}

func (r *Repository) getProduct(ctx context.Context, sb *sqlbuilder.SelectBuilder) (*models.Product, error) {
	query, args := sb.Build()

	var p models.Product
	err := database.Executor(ctx, r.db).GetContext(ctx, &p, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get product")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get product")
	}

	return &p, nil
}

// Create inserts a product, assigning its ID and creation time when unset
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Create")
	defer span.End()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if product.Attributes.Data == nil {
		product.Attributes.Data = map[string]string{}
	}

	ib := database.NewInsertBuilder(productsTable, productColumns...)
	ib.Values(product.ID, product.Name, product.Brand, product.Model, product.CategoryID, product.Attributes, product.CreatedAt)

	query, args := ib.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create product")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create product")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":    product.ID,
		"brand": product.Brand,
		"model": product.Model,
	}).Info("Created product")

	return nil
}

// CreateWithVariations inserts a product and its variation batch atomically.
// Either both are stored or neither is.
func (r *Repository) CreateWithVariations(ctx context.Context, product *models.Product, variations []models.Variation) ([]models.Variation, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.CreateWithVariations")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create product")
	}
	defer tx.Rollback(ctx)

	if err := r.Create(ctx, product); err != nil {
		return nil, err
	}

	inserted, err := r.AddVariations(ctx, product.ID, variations)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create product")
	}

	return inserted, nil
}

// GetVariation gets a variation by ID
func (r *Repository) GetVariation(ctx context.Context, id string) (*models.Variation, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.GetVariation")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(variationColumns...)
	sb.From(variationsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var v models.Variation
	err := database.Executor(ctx, r.db).GetContext(ctx, &v, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get variation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get variation")
	}

	return &v, nil
}

// ListVariations returns the variations of a product in creation order
func (r *Repository) ListVariations(ctx context.Context, productID string) ([]models.Variation, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.ListVariations")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(variationColumns...)
	sb.From(variationsTable)
	sb.Where(sb.Equal("product_id", productID))
	sb.OrderBy("created_at", "id").Asc()

	query, args := sb.Build()

	var items []models.Variation
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list variations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list variations")
	}

	return items, nil
}

// AddVariations inserts variations under productID in one statement. Rows
// whose SKU already exists for the product are skipped; only the rows
// actually inserted are returned.
func (r *Repository) AddVariations(ctx context.Context, productID string, variations []models.Variation) ([]models.Variation, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.AddVariations")
	defer span.End()

	if len(variations) == 0 {
		return []models.Variation{}, nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder(variationsTable, variationColumns...)
	for i := range variations {
		v := &variations[i]
		v.ProductID = productID
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		if v.Specs.Data == nil {
			v.Specs.Data = map[string]string{}
		}
		ib.Values(v.ID, v.ProductID, v.Label, v.VariationKey, v.SKU, v.Specs, v.CreatedAt)
	}
	ib.OnConflictDoNothing("product_id", "sku")
	ib.Returning(variationColumns...)

	query, args := ib.Build()

	var inserted []models.Variation
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &inserted, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to add variations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to add variations")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"product_id": productID,
		"requested":  len(variations),
		"inserted":   len(inserted),
	}).Info("Added variations")

	return inserted, nil
}
