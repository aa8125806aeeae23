package repositories

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// FactRepository abstracts a source of dependency change records (a
// Dependabot metadata file, a Terraform diff, etc.). Each implementation only
// parses what it needs to describe the changes; the normalizer does the rest.
type FactRepository interface {
	// Name returns the source identifier (e.g. "file", "terraform").
	Name() string

	// Enabled reports whether the source should run for the given options.
	Enabled(opts entities.SourceOptions) bool

	// Collect returns the change records the source found.
	Collect(ctx context.Context, opts entities.SourceOptions) ([]entities.DependencyChange, error)
}
