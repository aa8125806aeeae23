//go:build unit

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/domain/commands"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	infraRepos "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories"
	doubles "github.com/rios0rios0/autochangeset/test/infrastructure/repositorydoubles"
)

type fixture struct {
	facts     *doubles.SpyFactRepository
	store     *doubles.SpyChangesetRepository
	workspace *doubles.StubWorkspaceRepository
	changed   *doubles.StubChangedFilesRepository
}

func newFixture(changes ...entities.DependencyChange) *fixture {
	return &fixture{
		facts:     &doubles.SpyFactRepository{SourceName: "file", IsEnabled: true, Changes: changes},
		store:     &doubles.SpyChangesetRepository{},
		workspace: &doubles.StubWorkspaceRepository{},
		changed:   &doubles.StubChangedFilesRepository{},
	}
}

func (f *fixture) command() *commands.GenerateCommand {
	factRegistry := infraRepos.NewFactSourceRegistry()
	factRegistry.Register(f.facts)
	return commands.NewGenerateCommand(
		factRegistry,
		infraRepos.NewChangesetStoreRegistry(f.store),
		f.workspace,
		f.changed,
	)
}

func lodashPatch() entities.DependencyChange {
	return entities.DependencyChange{
		Name:        "lodash",
		Manager:     "npm_and_yarn",
		FromVersion: "4.17.20",
		ToVersion:   "4.17.21",
	}
}

func TestGenerateCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should write one root changeset without a workspace", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())
		opts := commands.GenerateOptions{Root: "/repo"}

		// when
		result, err := f.command().Execute(context.Background(), entities.DefaultSettings(), opts)

		// then
		require.NoError(t, err)
		require.Len(t, f.store.Saved, 1)
		saved := f.store.Saved[0]
		assert.Equal(t, []entities.Release{{Package: "root", Bump: entities.BumpPatch}}, saved.Releases)
		assert.Equal(t, []string{"lodash"}, saved.Metadata.Dependencies)
		assert.Len(t, result.Written, 1)
		assert.Equal(t, "/repo", f.facts.CollectCalls[0].Root)
		require.Len(t, f.store.ListLocations, 1)
		assert.Equal(t, ".changeset", f.store.ListLocations[0].Directory)
	})

	t.Run("should release dependents together with the updated package", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())
		f.workspace.Workspace = entities.Workspace{Packages: []entities.PackageNode{
			{Name: "@acme/core", Path: "packages/core", Dependencies: map[string]string{"lodash": "^4.17.20"}},
			{Name: "@acme/web", Path: "packages/web", Dependencies: map[string]string{"@acme/core": "workspace:*"}},
		}}

		// when
		result, err := f.command().Execute(context.Background(), entities.DefaultSettings(), commands.GenerateOptions{Root: "/repo"})

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.StrategyGrouped, result.Grouping.Strategy)
		assert.Equal(t, []string{"@acme/web"}, result.Grouping.Indirect)
		require.Len(t, f.store.Saved, 1)
		assert.Equal(t, []entities.Release{
			{Package: "@acme/core", Bump: entities.BumpPatch},
			{Package: "@acme/web", Bump: entities.BumpPatch},
		}, f.store.Saved[0].Releases)
	})

	t.Run("should not write anything in dry-run mode", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())

		// when
		result, err := f.command().Execute(
			context.Background(), entities.DefaultSettings(), commands.GenerateOptions{DryRun: true},
		)

		// then
		require.NoError(t, err)
		assert.Empty(t, f.store.Saved)
		assert.Len(t, result.Dedup.Candidates, 1)
	})

	t.Run("should skip candidates already persisted", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())
		f.store.Existing = []entities.ExistingChangeset{{
			FileName: "deps-root.md",
			Releases: []entities.Release{{Package: "root", Bump: entities.BumpPatch}},
		}}

		// when
		result, err := f.command().Execute(context.Background(), entities.DefaultSettings(), commands.GenerateOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, f.store.Saved)
		assert.Equal(t, 1, result.Dedup.Summary.ExistingDuplicates)
	})

	t.Run("should count collaborator failures and keep going", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())
		f.workspace.DiscoverErr = errors.New("broken package.json")
		f.changed.ChangedErr = errors.New("not a git repository")

		// when
		result, err := f.command().Execute(context.Background(), entities.DefaultSettings(), commands.GenerateOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, result.Errors)
		assert.Len(t, f.store.Saved, 1)
	})

	t.Run("should return early when the sources produce no facts", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture()
		f.facts.CollectErr = errors.New("file not found")

		// when
		result, err := f.command().Execute(context.Background(), entities.DefaultSettings(), commands.GenerateOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Errors)
		assert.Empty(t, result.Candidates)
		assert.Empty(t, f.store.ListLocations)
	})

	t.Run("should fail when no source is enabled", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())
		f.facts.IsEnabled = false

		// when
		_, err := f.command().Execute(context.Background(), entities.DefaultSettings(), commands.GenerateOptions{})

		// then
		require.ErrorIs(t, err, commands.ErrNoFactSource)
	})

	t.Run("should write the metrics textfile", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(lodashPatch())
		path := filepath.Join(t.TempDir(), "autochangeset.prom")

		// when
		_, err := f.command().Execute(
			context.Background(), entities.DefaultSettings(), commands.GenerateOptions{DryRun: true, MetricsFile: path},
		)

		// then
		require.NoError(t, err)
		content, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Contains(t, string(content), "autochangeset_")
	})
}

func TestSourceOptions(t *testing.T) {
	t.Parallel()

	t.Run("should let flags override the configured sources", func(t *testing.T) {
		t.Parallel()

		// given
		configured := entities.SourceOptions{FactsFile: "config.json", TerraformBaseRef: "HEAD"}

		// when
		sources := commands.SourceOptions(configured, commands.GenerateOptions{
			Root: "/repo", FactsFile: "flag.json", Terraform: true, BaseBranch: "main",
		})

		// then
		assert.Equal(t, "/repo", sources.Root)
		assert.Equal(t, "flag.json", sources.FactsFile)
		assert.True(t, sources.Terraform)
		assert.Equal(t, "main", sources.TerraformBaseRef)
	})
}

func TestSharedManager(t *testing.T) {
	t.Parallel()

	t.Run("should return empty when managers differ", func(t *testing.T) {
		t.Parallel()

		// given
		deps := []entities.CategorizedDependency{
			{Fact: entities.DependencyFact{Manager: entities.ManagerNpm}},
			{Fact: entities.DependencyFact{Manager: entities.ManagerDocker}},
		}

		// when
		manager := commands.SharedManager(deps)

		// then
		assert.Empty(t, manager)
		assert.Equal(t, entities.ManagerNpm, commands.SharedManager(deps[:1]))
	})
}

func TestRemoteLocation(t *testing.T) {
	t.Parallel()

	t.Run("should prefer the flag over the configured repository", func(t *testing.T) {
		t.Parallel()

		// given
		settings := entities.DefaultSettings()
		settings.GitHub.Repository = "acme/config"
		settings.GitHub.Token = "secret"

		// when
		location, name, ok := commands.RemoteLocation(settings, commands.GenerateOptions{GitHubRepo: "acme/site"})

		// then
		require.True(t, ok)
		assert.Equal(t, "github", name)
		assert.Equal(t, "acme", location.Repository.Organization)
		assert.Equal(t, "site", location.Repository.Name)
		assert.Equal(t, "secret", location.Token)
	})

	t.Run("should reject a malformed slug", func(t *testing.T) {
		t.Parallel()

		// when
		_, _, ok := commands.RemoteLocation(entities.DefaultSettings(), commands.GenerateOptions{GitHubRepo: "acme"})

		// then
		assert.False(t, ok)
	})
}

func TestBreakingAnalysis(t *testing.T) {
	t.Parallel()

	t.Run("should raise a critical indicator for a breaking critical security update", func(t *testing.T) {
		t.Parallel()

		// given
		deps := []entities.CategorizedDependency{
			{Fact: entities.DependencyFact{
				Name: "openssl", Breaking: true, Security: true, Severity: entities.SeverityCritical,
			}},
			{Fact: entities.DependencyFact{Name: "react", Breaking: true}},
			{Fact: entities.DependencyFact{Name: "lodash"}},
		}

		// when
		analysis := commands.BreakingAnalysis(deps)

		// then
		require.NotNil(t, analysis)
		require.Len(t, analysis.Indicators, 2)
		assert.Equal(t, entities.SeverityCritical, analysis.Indicators[0].Severity)
		assert.Equal(t, entities.SeverityHigh, analysis.Indicators[1].Severity)
	})

	t.Run("should return nil without breaking changes", func(t *testing.T) {
		t.Parallel()

		// when
		analysis := commands.BreakingAnalysis([]entities.CategorizedDependency{
			{Fact: entities.DependencyFact{Name: "lodash", Security: true, Severity: entities.SeverityCritical}},
		})

		// then
		assert.Nil(t, analysis)
	})
}
