// Package terraform derives dependency change records from Terraform module
// pins that moved between a base revision and the working tree.
package terraform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
	"github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/gitlocal"
)

const sourceName = "terraform"

// BaseReader returns a file's content at a revision. gitlocal.Checkout satisfies it.
type BaseReader interface {
	ReadAt(rev, relPath string) ([]byte, error)
}

// FactRepository compares module versions of every *.tf file with the base revision.
type FactRepository struct {
	open func(root string) (BaseReader, error)
}

// NewFactRepository creates a Terraform fact source backed by the local git checkout.
func NewFactRepository() repositories.FactRepository {
	return &FactRepository{open: func(root string) (BaseReader, error) {
		return gitlocal.Open(root)
	}}
}

// NewFactRepositoryWithReader creates a Terraform fact source reading base content from reader.
func NewFactRepositoryWithReader(reader BaseReader) *FactRepository {
	return &FactRepository{open: func(string) (BaseReader, error) { return reader, nil }}
}

func (r *FactRepository) Name() string { return sourceName }

func (r *FactRepository) Enabled(opts entities.SourceOptions) bool {
	return opts.Terraform
}

func (r *FactRepository) Collect(
	ctx context.Context,
	opts entities.SourceOptions,
) ([]entities.DependencyChange, error) {
	base, err := r.open(opts.Root)
	if err != nil {
		return nil, err
	}
	rev := opts.TerraformBaseRef
	if rev == "" {
		rev = "HEAD"
	}

	files, err := terraformFiles(opts.Root)
	if err != nil {
		return nil, err
	}

	var changes []entities.DependencyChange
	for _, rel := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		current, readErr := os.ReadFile(filepath.Join(opts.Root, filepath.FromSlash(rel)))
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, readErr)
		}
		previous, baseErr := base.ReadAt(rev, repositoryPath(base, opts.Root, rel))
		if errors.Is(baseErr, gitlocal.ErrNotFound) {
			logger.Debugf("[terraform] %s is new since %s, nothing to compare", rel, rev)
			continue
		}
		if baseErr != nil {
			return nil, baseErr
		}
		changes = append(changes, Compare(rel, previous, current)...)
	}

	logger.Infof("[terraform] %d module version changes across %d files", len(changes), len(files))
	return changes, nil
}

// Compare pairs module calls by label and reports those whose pinned version moved.
func Compare(rel string, previous, current []byte) []entities.DependencyChange {
	before := map[string]ModuleReference{}
	for _, ref := range ScanModules(previous, rel) {
		before[ref.Label] = ref
	}

	dir := "/" + path.Dir(rel)
	if dir == "/." {
		dir = "/"
	}

	var changes []entities.DependencyChange
	for _, ref := range ScanModules(current, rel) {
		old, ok := before[ref.Label]
		if !ok || old.Name != ref.Name || old.Version == ref.Version {
			continue
		}
		changes = append(changes, entities.DependencyChange{
			Name:        ref.Name,
			Manager:     string(entities.ManagerTerraform),
			FromVersion: old.Version,
			ToVersion:   ref.Version,
			Directory:   dir,
			Source:      sourceName,
		})
	}
	return changes
}

// repositoryPath maps a root-relative path to a worktree-relative one when the
// reader knows its worktree root.
func repositoryPath(base BaseReader, root, rel string) string {
	checkout, ok := base.(interface{ Rel(string) (string, error) })
	if !ok {
		return rel
	}
	mapped, err := checkout.Rel(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return rel
	}
	return mapped
}

// terraformFiles lists *.tf files under root as slash-separated relative paths.
func terraformFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != ".tf" {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", root, err)
	}
	return files, nil
}
