// Package workspace discovers the packages of a repository checkout from npm,
// pnpm and Go workspace manifests.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// discoverer reads one workspace flavour. It returns ok=false when its
// manifest is absent so the next flavour can be tried.
type discoverer func(root string) (packages []entities.PackageNode, ok bool, err error)

// Repository tries each workspace flavour in order and keeps the first hit.
type Repository struct {
	discoverers []discoverer
}

// NewWorkspaceRepository creates the workspace repository.
func NewWorkspaceRepository() repositories.WorkspaceRepository {
	return &Repository{discoverers: []discoverer{
		discoverPnpm,
		discoverNpm,
		discoverGoWork,
		discoverGoModule,
	}}
}

// Discover returns the workspace rooted at root. A checkout without any
// manifest yields an empty workspace, which makes the grouper fall back to scopes.
func (r *Repository) Discover(ctx context.Context, root string) (entities.Workspace, error) {
	workspace := entities.Workspace{Root: root}
	for _, discover := range r.discoverers {
		if err := ctx.Err(); err != nil {
			return workspace, err
		}
		packages, ok, err := discover(root)
		if err != nil {
			return workspace, err
		}
		if !ok {
			continue
		}
		sort.SliceStable(packages, func(i, j int) bool { return packages[i].Path < packages[j].Path })
		workspace.Packages = packages
		logger.Debugf("[workspace] Discovered %d packages under %s", len(packages), root)
		return workspace, nil
	}

	logger.Debugf("[workspace] No workspace manifest found under %s", root)
	return workspace, nil
}

// expandPatterns resolves workspace globs into package directories relative to
// root. Patterns prefixed with "!" exclude directories; a trailing "/**" is
// treated like "/*".
func expandPatterns(root string, patterns []string, manifest string) ([]string, error) {
	excluded := map[string]bool{}
	var included []string
	for _, raw := range patterns {
		pattern := strings.TrimSuffix(strings.TrimSpace(raw), "/")
		negate := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(pattern, "!")
		if strings.HasSuffix(pattern, "/**") {
			pattern = strings.TrimSuffix(pattern, "**") + "*"
		}
		if pattern == "" {
			continue
		}

		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("invalid workspace pattern %q: %w", raw, err)
		}
		for _, match := range matches {
			if _, statErr := os.Stat(filepath.Join(match, manifest)); statErr != nil {
				continue
			}
			rel, relErr := filepath.Rel(root, match)
			if relErr != nil {
				return nil, relErr
			}
			rel = filepath.ToSlash(rel)
			if negate {
				excluded[rel] = true
			} else {
				included = append(included, rel)
			}
		}
	}

	seen := map[string]bool{}
	dirs := make([]string, 0, len(included))
	for _, dir := range included {
		if excluded[dir] || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func readIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, true, nil
}
