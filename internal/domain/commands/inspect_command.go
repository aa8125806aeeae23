package commands

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/assembler"
	"github.com/rios0rios0/autochangeset/internal/dedup"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories"
)

// Inspect is the interface for the inspect command.
type Inspect interface {
	Execute(ctx context.Context, settings *entities.Settings, opts InspectOptions) (*dedup.Result, error)
}

// InspectOptions holds runtime options for an inspection.
type InspectOptions struct {
	Root       string
	Verbose    bool
	GitHubRepo string // read this repository instead of the checkout
}

// InspectCommand audits persisted changesets without writing anything.
type InspectCommand struct {
	storeRegistry *infraRepos.ChangesetStoreRegistry
}

// NewInspectCommand creates a new InspectCommand.
func NewInspectCommand(storeRegistry *infraRepos.ChangesetStoreRegistry) *InspectCommand {
	return &InspectCommand{storeRegistry: storeRegistry}
}

// Execute reads the changesets and reports duplicates and conflicting releases.
func (it *InspectCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts InspectOptions,
) (*dedup.Result, error) {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	var store repositories.ChangesetReader = it.storeRegistry.Local()
	location := repositories.ChangesetLocation{Root: opts.Root, Directory: settings.Output.Directory}
	if opts.GitHubRepo != "" {
		remote, name, ok := remoteLocation(settings, GenerateOptions{GitHubRepo: opts.GitHubRepo})
		if !ok {
			return nil, fmt.Errorf("invalid repository %q, expected owner/name", opts.GitHubRepo)
		}
		remoteReader, err := it.storeRegistry.Reader(name)
		if err != nil {
			return nil, err
		}
		store, location = remoteReader, remote
	}

	existing, err := store.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read changesets: %w", err)
	}

	result := dedup.New(settings.Dedup, assembler.New(settings.Output)).Inspect(existing)
	for _, warning := range result.Warnings {
		logger.Warnf("[inspect] %s", warning)
	}
	logger.Infof(
		"Inspection complete: %d changesets, %d redundant, %d warnings",
		result.Summary.Original, len(result.Duplicates), result.Summary.Warnings,
	)
	return &result, nil
}
