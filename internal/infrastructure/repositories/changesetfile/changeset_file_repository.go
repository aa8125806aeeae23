// Package changesetfile stores changesets as markdown files in the checkout.
package changesetfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
	"github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/gitlocal"
)

const (
	storeName   = "file"
	readWorkers = 8
)

// ChangesetRepository reads and writes `<directory>/*.md` under the checkout root.
type ChangesetRepository struct{}

// NewChangesetRepository creates the file changeset store.
func NewChangesetRepository() repositories.ChangesetRepository {
	return &ChangesetRepository{}
}

func (r *ChangesetRepository) Name() string { return storeName }

// List parses every changeset file in parallel. Files that cannot be parsed
// are skipped with a warning. Ages come from the last commit touching the
// file, or from the modification time when git does not know it.
func (r *ChangesetRepository) List(
	ctx context.Context,
	location repositories.ChangesetLocation,
) ([]entities.ExistingChangeset, error) {
	dir := directoryOf(location)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read changeset directory %q: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".md" || strings.EqualFold(name, "README.md") {
			continue
		}
		names = append(names, name)
	}

	checkout, openErr := gitlocal.Open(location.Root)
	if openErr != nil {
		logger.Debugf("[changeset] Ages fall back to modification times: %v", openErr)
	}

	results := make([]*entities.ExistingChangeset, len(names))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(readWorkers)
	for i, name := range names {
		group.Go(func() error {
			if ctxErr := groupCtx.Err(); ctxErr != nil {
				return ctxErr
			}
			existing, readErr := readOne(checkout, filepath.Join(dir, name))
			if readErr != nil {
				logger.Warnf("[changeset] Skipping %s: %v", name, readErr)
				return nil
			}
			results[i] = existing
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return nil, waitErr
	}

	existing := make([]entities.ExistingChangeset, 0, len(results))
	for _, result := range results {
		if result != nil {
			existing = append(existing, *result)
		}
	}
	logger.Debugf("[changeset] Read %d existing changesets from %s", len(existing), dir)
	return existing, nil
}

func readOne(checkout *gitlocal.Checkout, path string) (*entities.ExistingChangeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	releases, summary, err := entities.ParseChangeset(string(data))
	if err != nil {
		return nil, err
	}
	return &entities.ExistingChangeset{
		FileName:   filepath.Base(path),
		Releases:   releases,
		Summary:    summary,
		ModifiedAt: modifiedAt(checkout, path),
	}, nil
}

func modifiedAt(checkout *gitlocal.Checkout, path string) time.Time {
	if checkout != nil {
		if rel, err := checkout.Rel(path); err == nil {
			if when, logErr := checkout.LastCommitTime(rel); logErr == nil {
				return when
			}
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Save writes each candidate to its file name, creating the directory if needed.
func (r *ChangesetRepository) Save(
	_ context.Context,
	location repositories.ChangesetLocation,
	candidates []entities.ChangesetCandidate,
) ([]string, error) {
	dir := directoryOf(location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create changeset directory %q: %w", dir, err)
	}

	written := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate.FileName)
		content := entities.RenderChangeset(candidate.Releases, candidate.Summary)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // changesets are committed files
			return written, fmt.Errorf("failed to write changeset %q: %w", path, err)
		}
		logger.Infof("[changeset] Wrote %s", path)
		written = append(written, path)
	}
	sort.Strings(written)
	return written, nil
}

func directoryOf(location repositories.ChangesetLocation) string {
	dir := location.Directory
	if dir == "" {
		dir = ".changeset"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(location.Root, dir)
}
