//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// SpyChangesetRepository implements repositories.ChangesetRepository in memory.
type SpyChangesetRepository struct {
	// --- identity ---
	StoreName string

	// --- List ---
	Existing      []entities.ExistingChangeset
	ListErr       error
	ListLocations []repositories.ChangesetLocation

	// --- Save ---
	SaveErr error
	Saved   []entities.ChangesetCandidate
}

var _ repositories.ChangesetRepository = (*SpyChangesetRepository)(nil)

func (s *SpyChangesetRepository) Name() string {
	if s.StoreName == "" {
		return "file"
	}
	return s.StoreName
}

func (s *SpyChangesetRepository) List(
	_ context.Context,
	location repositories.ChangesetLocation,
) ([]entities.ExistingChangeset, error) {
	s.ListLocations = append(s.ListLocations, location)
	return s.Existing, s.ListErr
}

func (s *SpyChangesetRepository) Save(
	_ context.Context,
	location repositories.ChangesetLocation,
	candidates []entities.ChangesetCandidate,
) ([]string, error) {
	if s.SaveErr != nil {
		return nil, s.SaveErr
	}
	s.Saved = append(s.Saved, candidates...)
	paths := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		paths = append(paths, location.Directory+"/"+candidate.FileName)
	}
	return paths, nil
}
