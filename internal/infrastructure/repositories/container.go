package repositories

import (
	"go.uber.org/dig"

	domainRepos "github.com/rios0rios0/autochangeset/internal/domain/repositories"
	csRepo "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/changesetfile"
	ffRepo "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/factfile"
	gitRepo "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/gitlocal"
	ghRepo "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/github"
	tfRepo "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/terraform"
	wsRepo "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/workspace"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register fact source registry with every change record source
	if err := container.Provide(func() *FactSourceRegistry {
		reg := NewFactSourceRegistry()
		reg.Register(ffRepo.NewFactRepository())
		reg.Register(tfRepo.NewFactRepository())
		return reg
	}); err != nil {
		return err
	}

	// Register changeset stores: the local directory plus remote readers
	if err := container.Provide(func() *ChangesetStoreRegistry {
		reg := NewChangesetStoreRegistry(csRepo.NewChangesetRepository())
		reg.Register(ghRepo.NewChangesetReader())
		return reg
	}); err != nil {
		return err
	}

	if err := container.Provide(func() domainRepos.WorkspaceRepository {
		return wsRepo.NewWorkspaceRepository()
	}); err != nil {
		return err
	}

	if err := container.Provide(func() domainRepos.ChangedFilesRepository {
		return gitRepo.NewChangedFilesRepository()
	}); err != nil {
		return err
	}

	return nil
}
