package category

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// CategoryRepository defines the interface for category tree access
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetByNameAndParent(ctx context.Context, name string, parentID *string) (*models.Category, error)
	Create(ctx context.Context, name string, parentID *string) (*models.Category, bool, error)
}

// Repository implements CategoryRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new category repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "categories"

var columns = []string{"id", "name", "slug", "parent_id", "created_at"}

// List returns every category ordered by name
func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("name").Asc()

	query, args := sb.Build()

	var items []models.Category
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list categories")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list categories")
	}

	return items, nil
}

// GetByID gets a category by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var c models.Category
	err := database.Executor(ctx, r.db).GetContext(ctx, &c, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get category by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get category")
	}

	return &c, nil
}

// GetByNameAndParent finds the child of parentID called name. A nil parentID searches the roots.
func (r *Repository) GetByNameAndParent(ctx context.Context, name string, parentID *string) (*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.GetByNameAndParent")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("name", name))
	if parentID == nil {
		sb.Where(sb.IsNull("parent_id"))
	} else {
		sb.Where(sb.Equal("parent_id", *parentID))
	}

	query, args := sb.Build()

	var c models.Category
	err := database.Executor(ctx, r.db).GetContext(ctx, &c, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get category by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get category")
	}

	return &c, nil
}

// Create inserts a category under parentID. If a sibling with the same name
// already exists it is returned with created set to false.
func (r *Repository) Create(ctx context.Context, name string, parentID *string) (*models.Category, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.Create")
	defer span.End()

	c := models.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      normalizers.Slug(name),
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}

	ib := database.NewInsertBuilder(tableName, columns...)
	ib.Values(c.ID, c.Name, c.Slug, c.ParentID, c.CreatedAt)
	ib.OnConflictDoNothing()
	ib.Returning(columns...)

	query, args := ib.Build()

	var inserted models.Category
	err := database.Executor(ctx, r.db).GetContext(ctx, &inserted, query, args...)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to create category")
			return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create category")
		}

		// lost the race to a concurrent insert of the same sibling
		existing, err := r.GetByNameAndParent(ctx, name, parentID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			r.logger.WithContext(ctx).Errorf("Category %q conflicted but could not be read back", name)
			return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create category")
		}
		return existing, false, nil
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        inserted.ID,
		"name":      inserted.Name,
		"parent_id": parentID,
	}).Info("Created category")

	return &inserted, true, nil
}
