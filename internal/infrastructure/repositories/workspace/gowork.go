package workspace

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// discoverGoWork reads the use directives of go.work and each module's go.mod.
func discoverGoWork(root string) ([]entities.PackageNode, bool, error) {
	data, ok, err := readIfExists(filepath.Join(root, "go.work"))
	if err != nil || !ok {
		return nil, false, err
	}
	work, err := modfile.ParseWork("go.work", data, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse go.work: %w", err)
	}

	packages := make([]entities.PackageNode, 0, len(work.Use))
	for _, use := range work.Use {
		rel := path.Clean(filepath.ToSlash(strings.TrimPrefix(use.Path, "./")))
		node, found, readErr := readGoModule(root, rel)
		if readErr != nil {
			return nil, false, readErr
		}
		if found {
			packages = append(packages, node)
		}
	}
	return packages, len(packages) > 0, nil
}

// discoverGoModule treats a lone go.mod as a single-package workspace.
func discoverGoModule(root string) ([]entities.PackageNode, bool, error) {
	node, found, err := readGoModule(root, ".")
	if err != nil || !found {
		return nil, false, err
	}
	return []entities.PackageNode{node}, true, nil
}

// readGoModule maps a go.mod onto a package node. Indirect requirements are
// recorded as dev dependencies since they never propagate to dependents.
func readGoModule(root, rel string) (entities.PackageNode, bool, error) {
	modPath := filepath.Join(root, filepath.FromSlash(rel), "go.mod")
	data, ok, err := readIfExists(modPath)
	if err != nil || !ok {
		return entities.PackageNode{}, false, err
	}
	file, err := modfile.ParseLax(modPath, data, nil)
	if err != nil {
		return entities.PackageNode{}, false, fmt.Errorf("failed to parse %s: %w", modPath, err)
	}
	if file.Module == nil {
		return entities.PackageNode{}, false, fmt.Errorf("%s has no module directive", modPath)
	}

	node := entities.PackageNode{
		Name:            file.Module.Mod.Path,
		Path:            rel,
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
	for _, req := range file.Require {
		if req.Indirect {
			node.DevDependencies[req.Mod.Path] = req.Mod.Version
			continue
		}
		node.Dependencies[req.Mod.Path] = req.Mod.Version
	}
	return node, true, nil
}
