//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// StubWorkspaceRepository returns a fixed workspace.
type StubWorkspaceRepository struct {
	Workspace   entities.Workspace
	DiscoverErr error
}

var _ repositories.WorkspaceRepository = (*StubWorkspaceRepository)(nil)

func (s *StubWorkspaceRepository) Discover(_ context.Context, root string) (entities.Workspace, error) {
	workspace := s.Workspace
	workspace.Root = root
	return workspace, s.DiscoverErr
}

// StubChangedFilesRepository returns a fixed list of changed files.
type StubChangedFilesRepository struct {
	Files       []string
	ChangedErr  error
	LastOptions repositories.ChangedFilesOptions
}

var _ repositories.ChangedFilesRepository = (*StubChangedFilesRepository)(nil)

func (s *StubChangedFilesRepository) ChangedFiles(
	_ context.Context,
	opts repositories.ChangedFilesOptions,
) ([]string, error) {
	s.LastOptions = opts
	return s.Files, s.ChangedErr
}
