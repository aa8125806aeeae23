//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// SpyFactRepository implements repositories.FactRepository as a configurable spy.
type SpyFactRepository struct {
	// --- identity ---
	SourceName string
	IsEnabled  bool

	// --- Collect ---
	Changes      []entities.DependencyChange
	CollectErr   error
	CollectCalls []entities.SourceOptions
}

var _ repositories.FactRepository = (*SpyFactRepository)(nil)

func (s *SpyFactRepository) Name() string { return s.SourceName }

func (s *SpyFactRepository) Enabled(_ entities.SourceOptions) bool { return s.IsEnabled }

func (s *SpyFactRepository) Collect(
	_ context.Context,
	opts entities.SourceOptions,
) ([]entities.DependencyChange, error) {
	s.CollectCalls = append(s.CollectCalls, opts)
	return s.Changes, s.CollectErr
}
