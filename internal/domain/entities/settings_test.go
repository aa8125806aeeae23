//go:build unit

package entities_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autochangeset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	t.Run("should resolve every section", func(t *testing.T) {
		t.Parallel()

		// when
		settings := entities.DefaultSettings()

		// then
		assert.Equal(t, "HEAD", settings.Sources.TerraformBaseRef)
		assert.Equal(t, entities.GroupedHighest, settings.Decision.GroupedStrategy)
		assert.Equal(t, entities.BumpMinor, settings.Decision.SecurityMinimumBump[entities.SeverityCritical])
		assert.Equal(t, entities.BumpMinor, settings.Decision.ManagerRules[entities.ManagerGitHubActions].MaxBump)
		assert.InDelta(t, 0.8, settings.Dedup.SimilarityThreshold, 1e-9)
		assert.Equal(t, entities.MergeConservative, settings.Dedup.MergeStrategy)
		assert.Equal(t, 7*24*time.Hour, settings.Dedup.MaxExistingAge)
		assert.Equal(t, ".changeset", settings.Output.Directory)
	})
}

func TestNewSettings(t *testing.T) {
	t.Parallel()

	t.Run("should keep defaults the file does not mention", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeSettings(t, `
deduplication:
  merge: false
  merge_strategy: aggressive
output:
  file_prefix: bump
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.False(t, settings.Dedup.Merge)
		assert.True(t, settings.Dedup.ContentDedup)
		assert.Equal(t, entities.MergeAggressive, settings.Dedup.MergeStrategy)
		assert.Equal(t, "bump", settings.Output.FilePrefix)
		assert.Equal(t, ".changeset", settings.Output.Directory)
	})

	t.Run("should merge a partial manager rule onto the default rule", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeSettings(t, `
decision:
  managers:
    github-actions:
      default_bump: minor
    cargo:
      major_as_minor: true
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		actions := settings.Decision.ManagerRules[entities.ManagerGitHubActions]
		assert.Equal(t, entities.BumpMinor, actions.DefaultBump)
		assert.Equal(t, entities.BumpMinor, actions.MaxBump)
		assert.True(t, settings.Decision.ManagerRules[entities.ManagerCargo].MajorAsMinor)
		assert.Equal(t, entities.BumpPatch, settings.Decision.ManagerRules[entities.ManagerDocker].DefaultBump)
	})

	t.Run("should report every invalid field", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeSettings(t, `
decision:
  grouped_strategy: loudest
deduplication:
  similarity_threshold: 2
  max_existing_age: forever
`)

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decision.grouped_strategy")
		assert.Contains(t, err.Error(), "deduplication.similarity_threshold")
		assert.Contains(t, err.Error(), "deduplication.max_existing_age")
	})

	t.Run("should fail on malformed YAML", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeSettings(t, "output: [unclosed\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("should fail when the file is missing", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := entities.NewSettings(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.ErrorContains(t, err, "failed to read config file")
	})
}

func TestResolveToken(t *testing.T) {
	t.Run("should expand environment variables", func(t *testing.T) {
		// given
		t.Setenv("AUTOCHANGESET_TEST_TOKEN", "ghp_secret")

		// when
		token := entities.ResolveToken("${AUTOCHANGESET_TEST_TOKEN}")

		// then
		assert.Equal(t, "ghp_secret", token)
	})

	t.Run("should read the token from a file", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("ghp_from_file\n"), 0o600))

		// when
		token := entities.ResolveToken(path)

		// then
		assert.Equal(t, "ghp_from_file", token)
	})

	t.Run("should expand the token of a settings file", func(t *testing.T) {
		// given
		t.Setenv("AUTOCHANGESET_TEST_TOKEN", "ghp_secret")
		path := writeSettings(t, "github:\n  token: ${AUTOCHANGESET_TEST_TOKEN}\n")

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "ghp_secret", settings.GitHub.Token)
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("should find the file in the working directory", func(t *testing.T) {
		// given
		dir := t.TempDir()
		t.Chdir(dir)
		t.Setenv("HOME", t.TempDir())
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".autochangeset.yaml"), []byte("{}\n"), 0o600))

		// when
		path, err := entities.FindConfigFile()

		// then
		require.NoError(t, err)
		assert.Equal(t, ".autochangeset.yaml", path)
	})

	t.Run("should fail when no location holds a file", func(t *testing.T) {
		// given
		t.Chdir(t.TempDir())
		t.Setenv("HOME", t.TempDir())

		// when
		_, err := entities.FindConfigFile()

		// then
		require.Error(t, err)
	})
}
