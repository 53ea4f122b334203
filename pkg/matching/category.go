package matching

import (
	"strings"

	"github.com/Ramsey-B/sage/pkg/models"
)

// PathSeparator joins category levels in a path.
const PathSeparator = " > "

// Category match sources
const (
	CategoryMatchName = "name"
	CategoryMatchPath = "path"
)

// CategoryMatch is a confident match of a label against the category tree.
type CategoryMatch struct {
	Node      models.CategoryNode
	Score     float64
	MatchedBy string
}

// CategoryMatcher fuzzy matches free-text labels against category names and paths.
type CategoryMatcher struct {
	scorer *Scorer
	cfg    Config
}

func NewCategoryMatcher(cfg Config) *CategoryMatcher {
	return &CategoryMatcher{scorer: NewScorer(), cfg: cfg}
}

// CategoryScores reports the best name and path candidates for a label.
type CategoryScores struct {
	BestName  string
	NameScore float64
	BestPath  string
	PathScore float64
}

// Match compares label to every node's bare name and full path using a
// word-order-insensitive ratio. The name match wins at or above the name
// threshold, otherwise the path match wins above the path threshold.
func (m *CategoryMatcher) Match(label string, nodes []models.CategoryNode) (*CategoryMatch, CategoryScores) {
	label = strings.ToLower(strings.TrimSpace(label))
	var scores CategoryScores
	if label == "" || len(nodes) == 0 {
		return nil, scores
	}

	names := make([]string, len(nodes))
	paths := make([]string, len(nodes))
	for i, node := range nodes {
		names[i] = strings.ToLower(node.Name)
		paths[i] = strings.ToLower(node.Path)
	}

	nameIdx, nameScore, _ := m.scorer.ExtractOne(label, names, m.scorer.TokenSortRatio)
	pathIdx, pathScore, _ := m.scorer.ExtractOne(label, paths, m.scorer.TokenSortRatio)
	scores = CategoryScores{
		BestName:  names[nameIdx],
		NameScore: nameScore,
		BestPath:  paths[pathIdx],
		PathScore: pathScore,
	}

	if nameScore >= m.cfg.CategoryNameThreshold {
		return &CategoryMatch{Node: nodes[nameIdx], Score: nameScore, MatchedBy: CategoryMatchName}, scores
	}
	if pathScore > m.cfg.CategoryPathThreshold {
		return &CategoryMatch{Node: nodes[pathIdx], Score: pathScore, MatchedBy: CategoryMatchPath}, scores
	}
	return nil, scores
}

// SplitPath splits a ">"-delimited label into trimmed, non-empty levels.
func SplitPath(label string) []string {
	raw := strings.Split(label, ">")
	levels := make([]string, 0, len(raw))
	for _, level := range raw {
		if level = strings.TrimSpace(level); level != "" {
			levels = append(levels, level)
		}
	}
	return levels
}

// BuildPaths attaches the root-to-leaf path to each category. A parent
// reference that loops back or points outside the set ends the walk.
func BuildPaths(categories []models.Category) []models.CategoryNode {
	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	nodes := make([]models.CategoryNode, 0, len(categories))
	for _, c := range categories {
		levels := []string{c.Name}
		seen := map[string]bool{c.ID: true}
		current := c
		for current.ParentID != nil {
			parent, ok := byID[*current.ParentID]
			if !ok || seen[parent.ID] {
				break
			}
			seen[parent.ID] = true
			levels = append(levels, parent.Name)
			current = parent
		}
		for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
			levels[i], levels[j] = levels[j], levels[i]
		}
		nodes = append(nodes, models.CategoryNode{Category: c, Path: strings.Join(levels, PathSeparator)})
	}
	return nodes
}
