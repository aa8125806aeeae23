package gitlocal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// ChangedFilesRepository computes changed files from git or from a unified diff.
type ChangedFilesRepository struct{}

// NewChangedFilesRepository creates the changed-files repository.
func NewChangedFilesRepository() repositories.ChangedFilesRepository {
	return &ChangedFilesRepository{}
}

// ChangedFiles returns the sorted, de-duplicated files touched by the update.
// A patch file wins over git; without either a repository is not required.
func (r *ChangedFilesRepository) ChangedFiles(
	_ context.Context,
	opts repositories.ChangedFilesOptions,
) ([]string, error) {
	if opts.PatchFile != "" {
		path := opts.PatchFile
		if !filepath.IsAbs(path) && opts.Root != "" {
			path = filepath.Join(opts.Root, path)
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open patch file %q: %w", opts.PatchFile, err)
		}
		defer file.Close()
		files, err := FilesFromPatch(file)
		if err != nil {
			return nil, err
		}
		logger.Debugf("[gitlocal] %d changed files read from patch %s", len(files), opts.PatchFile)
		return files, nil
	}

	checkout, err := Open(opts.Root)
	if err != nil {
		logger.Warnf("[gitlocal] No git repository at %q, changed files unknown: %v", opts.Root, err)
		return nil, nil
	}
	files, err := checkout.Changed(opts.BaseBranch)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	logger.Debugf("[gitlocal] %d changed files against %q", len(files), opts.BaseBranch)
	return files, nil
}

// FilesFromPatch lists the files named by a unified diff. Deleted files are
// reported by their old name and renames by both names.
func FilesFromPatch(reader io.Reader) ([]string, error) {
	parsed, _, err := gitdiff.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch: %w", err)
	}

	seen := map[string]bool{}
	var files []string
	add := func(name string) {
		name = strings.TrimPrefix(name, "./")
		if name == "" || name == "/dev/null" || seen[name] {
			return
		}
		seen[name] = true
		files = append(files, name)
	}
	for _, f := range parsed {
		switch {
		case f.IsDelete:
			add(f.OldName)
		case f.IsRename:
			add(f.OldName)
			add(f.NewName)
		default:
			add(f.NewName)
		}
	}
	sort.Strings(files)
	return files, nil
}
