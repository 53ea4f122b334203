package resolver

import (
	"context"
	"strings"

	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// fallbackRootName is used when the configured default parent does not exist
const fallbackRootName = "Other"

// maxCategoryDepth bounds ancestor walks over a corrupted tree
const maxCategoryDepth = 32

// ListCategories returns the whole tree, flat, with root-to-leaf paths
func (r *Resolver) ListCategories(ctx context.Context) ([]models.CategoryNode, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ListCategories")
	defer span.End()

	categories, err := r.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	return matching.BuildPaths(categories), nil
}

// ResolveCategory maps a free-text label onto the category tree. A confident
// name or path match returns the existing node. Otherwise the ">"-separated
// levels of the label are found or created one by one below the default
// parent and the deepest node is returned with created set. Only repository
// failures end in an error.
func (r *Resolver) ResolveCategory(ctx context.Context, label string) (models.CategoryNode, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ResolveCategory")
	defer span.End()

	nodes, err := r.ListCategories(ctx)
	if err != nil {
		return models.CategoryNode{}, false, err
	}

	match, scores := r.CategoryMatcher.Match(label, nodes)
	r.log.WithContext(ctx).WithFields(map[string]any{
		"label":      label,
		"best_name":  scores.BestName,
		"name_score": scores.NameScore,
		"best_path":  scores.BestPath,
		"path_score": scores.PathScore,
	}).Debug("Category match scores")
	if match != nil {
		metrics.RecordCategoryResolution("matched_" + match.MatchedBy)
		return match.Node, false, nil
	}

	node, created, err := r.createCategoryChain(ctx, label, nodes)
	if err != nil {
		return models.CategoryNode{}, false, err
	}
	if created {
		metrics.RecordCategoryResolution("created")
	} else {
		metrics.RecordCategoryResolution("walked")
	}

	r.log.WithContext(ctx).WithFields(map[string]any{
		"label":   label,
		"path":    node.Path,
		"created": created,
	}).Info("Resolved category by walking the tree")
	return node, created, nil
}

func (r *Resolver) createCategoryChain(ctx context.Context, label string, nodes []models.CategoryNode) (models.CategoryNode, bool, error) {
	paths := make(map[string]string, len(nodes))
	for _, n := range nodes {
		paths[n.ID] = n.Path
	}

	parent, err := r.defaultParent(ctx)
	if err != nil {
		return models.CategoryNode{}, false, err
	}
	current := models.CategoryNode{Category: *parent, Path: paths[parent.ID]}
	if current.Path == "" {
		current.Path = parent.Name
	}

	anyCreated := false
	for _, level := range matching.SplitPath(label) {
		parentID := current.ID
		existing, err := r.Categories.GetByNameAndParent(ctx, level, &parentID)
		if err != nil {
			return models.CategoryNode{}, false, err
		}
		created := false
		if existing == nil {
			existing, created, err = r.Categories.Create(ctx, level, &parentID)
			if err != nil {
				return models.CategoryNode{}, false, err
			}
		}
		anyCreated = anyCreated || created
		current = models.CategoryNode{
			Category: *existing,
			Path:     strings.Join([]string{current.Path, existing.Name}, matching.PathSeparator),
		}
	}
	return current, anyCreated, nil
}

// defaultParent loads the configured parent, creating a root of that name
// when the row is missing.
func (r *Resolver) defaultParent(ctx context.Context) (*models.Category, error) {
	if r.cfg.DefaultParentID != "" {
		parent, err := r.Categories.GetByID(ctx, r.cfg.DefaultParentID)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			return parent, nil
		}
		r.log.WithContext(ctx).Warnf("Default parent category %s not found, using root %q", r.cfg.DefaultParentID, fallbackRootName)
	}

	root, err := r.Categories.GetByNameAndParent(ctx, fallbackRootName, nil)
	if err != nil || root != nil {
		return root, err
	}
	root, _, err = r.Categories.Create(ctx, fallbackRootName, nil)
	return root, err
}

// categoryChain returns categoryID followed by its ancestors, nearest first
func (r *Resolver) categoryChain(ctx context.Context, categoryID *string) ([]string, error) {
	if categoryID == nil || *categoryID == "" {
		return nil, nil
	}

	chain := []string{}
	seen := map[string]bool{}
	next := categoryID
	for next != nil && !seen[*next] && len(chain) < maxCategoryDepth {
		c, err := r.Categories.GetByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		if c == nil {
			break
		}
		seen[c.ID] = true
		chain = append(chain, c.ID)
		next = c.ParentID
	}
	return chain, nil
}
