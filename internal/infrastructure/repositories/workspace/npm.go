package workspace

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const packageManifest = "package.json"

type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Workspaces           json.RawMessage   `json:"workspaces"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// workspacePatterns accepts both `"workspaces": [...]` and `"workspaces": {"packages": [...]}`.
func (p packageJSON) workspacePatterns() ([]string, error) {
	if len(p.Workspaces) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(p.Workspaces, &list); err == nil {
		return list, nil
	}
	var object struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(p.Workspaces, &object); err != nil {
		return nil, fmt.Errorf("unsupported workspaces field: %w", err)
	}
	return object.Packages, nil
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

func readPackageJSON(path string) (packageJSON, bool, error) {
	data, ok, err := readIfExists(path)
	if err != nil || !ok {
		return packageJSON{}, ok, err
	}
	var manifest packageJSON
	if unmarshalErr := json.Unmarshal(data, &manifest); unmarshalErr != nil {
		return packageJSON{}, false, fmt.Errorf("failed to parse %s: %w", path, unmarshalErr)
	}
	return manifest, true, nil
}

func (p packageJSON) node(rel string) entities.PackageNode {
	name := p.Name
	if name == "" && rel == "." {
		name = "root"
	} else if name == "" {
		name = filepath.Base(rel)
	}
	return entities.PackageNode{
		Name:                 name,
		Path:                 rel,
		Version:              p.Version,
		Dependencies:         p.Dependencies,
		DevDependencies:      p.DevDependencies,
		PeerDependencies:     p.PeerDependencies,
		OptionalDependencies: p.OptionalDependencies,
	}
}

func nodesFor(root string, patterns []string) ([]entities.PackageNode, error) {
	dirs, err := expandPatterns(root, patterns, packageManifest)
	if err != nil {
		return nil, err
	}
	packages := make([]entities.PackageNode, 0, len(dirs))
	for _, dir := range dirs {
		manifest, ok, readErr := readPackageJSON(filepath.Join(root, filepath.FromSlash(dir), packageManifest))
		if readErr != nil {
			return nil, readErr
		}
		if ok {
			packages = append(packages, manifest.node(dir))
		}
	}
	return packages, nil
}

// discoverPnpm reads pnpm-workspace.yaml.
func discoverPnpm(root string) ([]entities.PackageNode, bool, error) {
	data, ok, err := readIfExists(filepath.Join(root, "pnpm-workspace.yaml"))
	if err != nil || !ok {
		return nil, false, err
	}
	var manifest pnpmWorkspace
	if unmarshalErr := yaml.Unmarshal(data, &manifest); unmarshalErr != nil {
		return nil, false, fmt.Errorf("failed to parse pnpm-workspace.yaml: %w", unmarshalErr)
	}
	packages, err := nodesFor(root, manifest.Packages)
	if err != nil {
		return nil, false, err
	}
	return packages, len(packages) > 0, nil
}

// discoverNpm reads the root package.json. Without workspaces the root
// package is the only package.
func discoverNpm(root string) ([]entities.PackageNode, bool, error) {
	manifest, ok, err := readPackageJSON(filepath.Join(root, packageManifest))
	if err != nil || !ok {
		return nil, false, err
	}
	patterns, err := manifest.workspacePatterns()
	if err != nil {
		return nil, false, err
	}
	if len(patterns) == 0 {
		return []entities.PackageNode{manifest.node(".")}, true, nil
	}
	packages, err := nodesFor(root, patterns)
	if err != nil {
		return nil, false, err
	}
	return packages, len(packages) > 0, nil
}
