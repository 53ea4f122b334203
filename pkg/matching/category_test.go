package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func testCategories() []models.Category {
	return []models.Category{
		{ID: "electronics", Name: "Electronics"},
		{ID: "phones", Name: "Phones", ParentID: strPtr("electronics")},
		{ID: "smartphones", Name: "Smartphones", ParentID: strPtr("phones")},
		{ID: "laptops", Name: "Laptops", ParentID: strPtr("electronics")},
	}
}

func TestBuildPaths(t *testing.T) {
	nodes := BuildPaths(testCategories())

	require.Len(t, nodes, 4)
	assert.Equal(t, "Electronics", nodes[0].Path)
	assert.Equal(t, "Electronics > Phones", nodes[1].Path)
	assert.Equal(t, "Electronics > Phones > Smartphones", nodes[2].Path)
	assert.Equal(t, "Electronics > Laptops", nodes[3].Path)
}

func TestBuildPaths_StopsOnCycleAndMissingParent(t *testing.T) {
	nodes := BuildPaths([]models.Category{
		{ID: "a", Name: "A", ParentID: strPtr("b")},
		{ID: "b", Name: "B", ParentID: strPtr("a")},
		{ID: "c", Name: "C", ParentID: strPtr("missing")},
	})

	require.Len(t, nodes, 3)
	assert.Equal(t, "B > A", nodes[0].Path)
	assert.Equal(t, "A > B", nodes[1].Path)
	assert.Equal(t, "C", nodes[2].Path)
}

func TestCategoryMatcher_Match(t *testing.T) {
	matcher := NewCategoryMatcher(DefaultConfig())
	nodes := BuildPaths(testCategories())

	tests := []struct {
		name      string
		label     string
		wantID    string
		wantMatch string
	}{
		{"exact name", "smartphones", "smartphones", CategoryMatchName},
		{"near name", "Smartphone", "smartphones", CategoryMatchName},
		{"singular of a plural name", "Phone", "phones", CategoryMatchName},
		{"full path", "Electronics > Phones > Smartphones", "smartphones", CategoryMatchPath},
		{"partial path", "Phones > Smartphones", "smartphones", CategoryMatchPath},
		{"no match", "Garden furniture", "", ""},
		{"empty", "  ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, _ := matcher.Match(tt.label, nodes)
			if tt.wantID == "" {
				assert.Nil(t, match)
				return
			}
			require.NotNil(t, match)
			assert.Equal(t, tt.wantID, match.Node.ID)
			assert.Equal(t, tt.wantMatch, match.MatchedBy)
		})
	}
}

func TestCategoryMatcher_NoCategories(t *testing.T) {
	match, scores := NewCategoryMatcher(DefaultConfig()).Match("phones", nil)

	assert.Nil(t, match)
	assert.Zero(t, scores.NameScore)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"Electronics", "Audio", "Earbuds"}, SplitPath(" Electronics > Audio>Earbuds "))
	assert.Equal(t, []string{"Earbuds"}, SplitPath("Earbuds"))
	assert.Empty(t, SplitPath(" > "))
}
