package category

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/sage/pkg/database"
)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)
	return NewRepository(db, logger), mock
}

func categoryRows() *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

func TestRepository_List(t *testing.T) {
	repo, mock := newTestRepository(t)
	parent := "root-id"
	now := time.Now()

	mock.ExpectQuery(`SELECT id, name, slug, parent_id, created_at FROM categories ORDER BY name ASC`).
		WillReturnRows(categoryRows().
			AddRow("root-id", "Electronics", "electronics", nil, now).
			AddRow("phones-id", "Phones", "phones", parent, now))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].ParentID)
	require.NotNil(t, items[1].ParentID)
	assert.Equal(t, parent, *items[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM categories WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(categoryRows())

	c, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByNameAndParent(t *testing.T) {
	parent := "root-id"
	tests := []struct {
		name     string
		parentID *string
		query    string
		args     []driver.Value
	}{
		{
			name:  "root",
			query: `WHERE name = \$1 AND parent_id IS NULL`,
			args:  []driver.Value{"Electronics"},
		},
		{
			name:     "child",
			parentID: &parent,
			query:    `WHERE name = \$1 AND parent_id = \$2`,
			args:     []driver.Value{"Electronics", parent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestRepository(t)

			var parentValue driver.Value
			if tt.parentID != nil {
				parentValue = *tt.parentID
			}
			mock.ExpectQuery(tt.query).
				WithArgs(tt.args...).
				WillReturnRows(categoryRows().AddRow("id-1", "Electronics", "electronics", parentValue, time.Now()))

			c, err := repo.GetByNameAndParent(context.Background(), "Electronics", tt.parentID)
			require.NoError(t, err)
			require.NotNil(t, c)
			assert.Equal(t, "id-1", c.ID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newTestRepository(t)
	parent := "root-id"

	mock.ExpectQuery(`INSERT INTO categories \(id, name, slug, parent_id, created_at\) VALUES .* ON CONFLICT DO NOTHING RETURNING`).
		WithArgs(sqlmock.AnyArg(), "Smart Watches", "smart-watches", parent, sqlmock.AnyArg()).
		WillReturnRows(categoryRows().AddRow("new-id", "Smart Watches", "smart-watches", parent, time.Now()))

	c, created, err := repo.Create(context.Background(), "Smart Watches", &parent)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new-id", c.ID)
	assert.Equal(t, "smart-watches", c.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_ConflictReturnsExisting(t *testing.T) {
	repo, mock := newTestRepository(t)
	parent := "root-id"

	mock.ExpectQuery(`INSERT INTO categories`).
		WillReturnRows(categoryRows())
	mock.ExpectQuery(`WHERE name = \$1 AND parent_id = \$2`).
		WithArgs("Phones", parent).
		WillReturnRows(categoryRows().AddRow("existing-id", "Phones", "phones", parent, time.Now()))

	c, created, err := repo.Create(context.Background(), "Phones", &parent)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing-id", c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_Error(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`INSERT INTO categories`).
		WillReturnError(errors.New("connection reset"))

	_, _, err := repo.Create(context.Background(), "Phones", nil)
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, 500, httperror.GetStatusCode(err))
}
