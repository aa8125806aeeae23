package repositories

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// ChangesetLocation tells a store where the changesets live. Local stores use
// Root and Directory; remote stores use Repository, Token and Directory.
type ChangesetLocation struct {
	Root       string
	Directory  string
	Repository entities.Repository
	Token      string
}

// ChangesetReader lists changesets that were already persisted.
type ChangesetReader interface {
	// Name returns the store identifier (e.g. "file", "github").
	Name() string

	List(ctx context.Context, location ChangesetLocation) ([]entities.ExistingChangeset, error)
}

// ChangesetRepository reads and writes changeset files.
type ChangesetRepository interface {
	ChangesetReader

	// Save writes the candidates and returns the paths written.
	Save(
		ctx context.Context,
		location ChangesetLocation,
		candidates []entities.ChangesetCandidate,
	) ([]string, error)
}
