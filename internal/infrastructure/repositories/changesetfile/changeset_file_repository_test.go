//go:build unit

package changesetfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
	"github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/changesetfile"
	"github.com/rios0rios0/autochangeset/test/domain/entitybuilders"
)

func TestSaveAndList(t *testing.T) {
	t.Parallel()

	t.Run("should round-trip candidates through the directory", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		location := repositories.ChangesetLocation{Root: root, Directory: ".changeset"}
		candidate := entitybuilders.NewChangesetCandidateBuilder().
			WithID("deps-web").
			WithSummary("Update lodash").
			WithReleases(entities.Release{Package: "web", Bump: entities.BumpMinor}).
			BuildCandidate()
		repo := changesetfile.NewChangesetRepository()

		// when
		written, err := repo.Save(context.Background(), location, []entities.ChangesetCandidate{candidate})
		require.NoError(t, err)
		existing, listErr := repo.List(context.Background(), location)

		// then
		require.NoError(t, listErr)
		assert.Equal(t, []string{filepath.Join(root, ".changeset", "deps-web.md")}, written)
		require.Len(t, existing, 1)
		assert.Equal(t, "deps-web.md", existing[0].FileName)
		assert.Equal(t, "Update lodash", existing[0].Summary)
		assert.Equal(t, []entities.Release{{Package: "web", Bump: entities.BumpMinor}}, existing[0].Releases)
		assert.WithinDuration(t, time.Now(), existing[0].ModifiedAt, time.Minute)
	})

	t.Run("should skip the readme and unparsable files", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		dir := filepath.Join(root, ".changeset")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Changesets"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("no front matter"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.md"), []byte("---\n'api': patch\n---\n\nFix\n"), 0o600))
		repo := changesetfile.NewChangesetRepository()

		// when
		existing, err := repo.List(context.Background(), repositories.ChangesetLocation{Root: root})

		// then
		require.NoError(t, err)
		require.Len(t, existing, 1)
		assert.Equal(t, "ok.md", existing[0].FileName)
	})

	t.Run("should return nothing when the directory does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		repo := changesetfile.NewChangesetRepository()

		// when
		existing, err := repo.List(context.Background(), repositories.ChangesetLocation{Root: t.TempDir()})

		// then
		require.NoError(t, err)
		assert.Empty(t, existing)
	})
}
