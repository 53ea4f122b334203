// Package seed loads the category tree from a text file of ">"-delimited
// paths, one path per line. Seeding is idempotent: a (name, parent) pair that
// already exists is reused.
package seed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Categories is the part of the category repository seeding needs
type Categories interface {
	GetByNameAndParent(ctx context.Context, name string, parentID *string) (*models.Category, error)
	Create(ctx context.Context, name string, parentID *string) (*models.Category, bool, error)
}

// Result counts what a seeding run did
type Result struct {
	Paths   int
	Created int
	Reused  int
}

// Seeder writes category paths into the tree
type Seeder struct {
	repo   Categories
	logger ectologger.Logger
}

func NewSeeder(repo Categories, logger ectologger.Logger) *Seeder {
	return &Seeder{repo: repo, logger: logger}
}

// SeedFile seeds every path in the file at path
func (s *Seeder) SeedFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open category seed file: %w", err)
	}
	defer f.Close()

	result, err := s.Seed(ctx, f)
	if err != nil {
		return result, err
	}

	s.logger.WithFields(map[string]any{
		"file":    path,
		"paths":   result.Paths,
		"created": result.Created,
		"reused":  result.Reused,
	}).Info("Categories seeded")
	return result, nil
}

// Seed reads paths from r. Blank lines and lines starting with "#" are skipped.
func (s *Seeder) Seed(ctx context.Context, r io.Reader) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "seed.Seeder.Seed")
	defer span.End()

	var result Result
	// full path -> id, so shared prefixes are looked up once
	known := map[string]string{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		levels := matching.SplitPath(text)
		if len(levels) == 0 {
			continue
		}
		result.Paths++

		var parentID *string
		fullPath := ""
		for _, name := range levels {
			if fullPath == "" {
				fullPath = name
			} else {
				fullPath += " > " + name
			}

			if id, ok := known[fullPath]; ok {
				id := id
				parentID = &id
				continue
			}

			category, created, err := s.getOrCreate(ctx, name, parentID)
			if err != nil {
				return result, fmt.Errorf("line %d (%s): %w", line, fullPath, err)
			}
			if created {
				result.Created++
			} else {
				result.Reused++
			}

			known[fullPath] = category.ID
			id := category.ID
			parentID = &id
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read category seed: %w", err)
	}

	return result, nil
}

func (s *Seeder) getOrCreate(ctx context.Context, name string, parentID *string) (*models.Category, bool, error) {
	existing, err := s.repo.GetByNameAndParent(ctx, name, parentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return s.repo.Create(ctx, name, parentID)
}
