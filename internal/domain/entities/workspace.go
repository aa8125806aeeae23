package entities

import (
	"path"
	"strings"
)

// DependencyKind is one of the four declared dependency maps of a package.
type DependencyKind string

const (
	KindRuntime  DependencyKind = "runtime"
	KindDev      DependencyKind = "dev"
	KindPeer     DependencyKind = "peer"
	KindOptional DependencyKind = "optional"
)

// PackageNode is a package discovered in the workspace. It is read-only after discovery.
type PackageNode struct {
	Name                 string
	Path                 string // slash-separated, relative to the workspace root
	Version              string
	Dependencies         map[string]string
	DevDependencies      map[string]string
	PeerDependencies     map[string]string
	OptionalDependencies map[string]string
}

// DependsOn returns the kind under which the package declares name, checking
// runtime, peer, optional and dev in that order.
func (p PackageNode) DependsOn(name string) (DependencyKind, bool) {
	if _, ok := p.Dependencies[name]; ok {
		return KindRuntime, true
	}
	if _, ok := p.PeerDependencies[name]; ok {
		return KindPeer, true
	}
	if _, ok := p.OptionalDependencies[name]; ok {
		return KindOptional, true
	}
	if _, ok := p.DevDependencies[name]; ok {
		return KindDev, true
	}
	return "", false
}

// Contains reports whether the slash-separated file path lives under the package directory.
func (p PackageNode) Contains(file string) bool {
	dir := path.Clean(strings.TrimPrefix(p.Path, "./"))
	file = path.Clean(strings.TrimPrefix(file, "./"))
	if dir == "." || dir == "" {
		return true
	}
	return file == dir || strings.HasPrefix(file, dir+"/")
}

// Workspace is the discovered package set of a repository.
type Workspace struct {
	Root     string
	Packages []PackageNode
}

// Find returns the package with the given name.
func (w Workspace) Find(name string) (PackageNode, bool) {
	for _, p := range w.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return PackageNode{}, false
}

// RelationshipType is the kind of edge between two packages.
type RelationshipType string

const (
	RelInternalDependency RelationshipType = "internal-dependency"
	RelPeerDependency     RelationshipType = "peer-dependency"
	RelDevDependency      RelationshipType = "dev-dependency"
	RelVersionConsistency RelationshipType = "version-consistency"
	RelAffectedByUpdate   RelationshipType = "affected-by-update"
)

// ImpactLevel is the three-step impact of a relationship.
type ImpactLevel string

const (
	ImpactLevelLow    ImpactLevel = "low"
	ImpactLevelMedium ImpactLevel = "medium"
	ImpactLevelHigh   ImpactLevel = "high"
)

// Rank orders low < medium < high.
func (i ImpactLevel) Rank() int {
	switch i {
	case ImpactLevelHigh:
		return 2 //nolint:mnd // ordinal
	case ImpactLevelMedium:
		return 1
	default:
		return 0
	}
}

// PackageRelationship is a directed edge derived from PackageNode data.
type PackageRelationship struct {
	Source     string
	Target     string
	Type       RelationshipType
	Confidence float64
	Impact     ImpactLevel
	Reason     string
}

// ConsolidationStrategy is how affected packages are split into changesets.
type ConsolidationStrategy string

const (
	StrategySingle   ConsolidationStrategy = "single"
	StrategyMultiple ConsolidationStrategy = "multiple"
	StrategyGrouped  ConsolidationStrategy = "grouped"
)

// GroupingResult is the output of the relationship grouper.
type GroupingResult struct {
	Affected         []string
	DirectlyAffected []string
	Indirect         []string
	Relationships    []PackageRelationship
	Groups           [][]string
	Strategy         ConsolidationStrategy
	Risk             RiskLevel
	// PackageFacts maps a package to the names of the dependencies that touch it.
	PackageFacts map[string][]string
	Reasoning    []string
}
