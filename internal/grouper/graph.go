package grouper

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// edgeProfile is the confidence and impact carried by an edge of each kind.
type edgeProfile struct {
	relType    entities.RelationshipType
	confidence float64
	impact     entities.ImpactLevel
}

//nolint:gochecknoglobals // lookup table
var kindProfiles = map[entities.DependencyKind]edgeProfile{
	entities.KindRuntime:  {entities.RelInternalDependency, 1.0, entities.ImpactLevelHigh},
	entities.KindPeer:     {entities.RelPeerDependency, 0.9, entities.ImpactLevelMedium},
	entities.KindOptional: {entities.RelInternalDependency, 0.7, entities.ImpactLevelMedium},
	entities.KindDev:      {entities.RelDevDependency, 0.6, entities.ImpactLevelLow},
}

const (
	versionConsistencyConfidence = 0.8
	affectedByUpdateConfidence   = 0.9
)

// graph is an arena of workspace packages addressed by index. Edges point from
// the dependent package to the package it depends on.
type graph struct {
	nodes      []entities.PackageNode
	names      []string
	index      map[string]int
	edges      []edge
	dependents [][]int // reverse adjacency over propagating edges
}

type edge struct {
	from, to int
	kind     entities.DependencyKind
}

func packageName(node entities.PackageNode) string {
	if node.Name != "" {
		return node.Name
	}
	return node.Path
}

func buildGraph(workspace entities.Workspace, includeDev bool) *graph {
	g := &graph{
		nodes:      workspace.Packages,
		names:      make([]string, len(workspace.Packages)),
		index:      make(map[string]int, len(workspace.Packages)),
		dependents: make([][]int, len(workspace.Packages)),
	}
	for i, node := range workspace.Packages {
		g.names[i] = packageName(node)
		g.index[g.names[i]] = i
	}
	for from, node := range workspace.Packages {
		for to, name := range g.names {
			if from == to {
				continue
			}
			kind, ok := node.DependsOn(name)
			if !ok || (kind == entities.KindDev && !includeDev) {
				continue
			}
			g.edges = append(g.edges, edge{from: from, to: to, kind: kind})
			if kind != entities.KindDev {
				g.dependents[to] = append(g.dependents[to], from)
			}
		}
	}
	return g
}

// expandDependents walks reverse edges from the direct set with a worklist and
// returns the indirect packages in discovery order, plus the package each one
// was reached from.
func (g *graph) expandDependents(direct []int) ([]int, map[int]int) {
	visited := make([]bool, len(g.nodes))
	for _, i := range direct {
		visited[i] = true
	}
	worklist := append([]int(nil), direct...)
	parent := map[int]int{}
	var indirect []int
	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]
		for _, dependent := range g.dependents[current] {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			parent[dependent] = current
			indirect = append(indirect, dependent)
			worklist = append(worklist, dependent)
		}
	}
	return indirect, parent
}

// components finds connected components of the affected subset over internal
// and peer edges, treating edges as undirected.
func (g *graph) components(affected []int) [][]int {
	inSet := make([]bool, len(g.nodes))
	for _, i := range affected {
		inSet[i] = true
	}
	adjacency := make([][]int, len(g.nodes))
	for _, e := range g.edges {
		if e.kind == entities.KindDev || !inSet[e.from] || !inSet[e.to] {
			continue
		}
		adjacency[e.from] = append(adjacency[e.from], e.to)
		adjacency[e.to] = append(adjacency[e.to], e.from)
	}

	visited := make([]bool, len(g.nodes))
	var groups [][]int
	for _, start := range affected {
		if visited[start] {
			continue
		}
		visited[start] = true
		group := []int{start}
		worklist := []int{start}
		for len(worklist) > 0 {
			current := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, next := range adjacency[current] {
				if !visited[next] {
					visited[next] = true
					group = append(group, next)
					worklist = append(worklist, next)
				}
			}
		}
		sort.Ints(group)
		groups = append(groups, group)
	}
	return groups
}

func (g *graph) relationships(affected []int, parent map[int]int, updated map[string]bool) []entities.PackageRelationship {
	inSet := make([]bool, len(g.nodes))
	for _, i := range affected {
		inSet[i] = true
	}

	var out []entities.PackageRelationship
	for _, e := range g.edges {
		if !inSet[e.from] || !inSet[e.to] {
			continue
		}
		profile := kindProfiles[e.kind]
		out = append(out, entities.PackageRelationship{
			Source:     g.names[e.from],
			Target:     g.names[e.to],
			Type:       profile.relType,
			Confidence: profile.confidence,
			Impact:     profile.impact,
			Reason:     fmt.Sprintf("%s declares a %s dependency on %s", g.names[e.from], e.kind, g.names[e.to]),
		})
	}

	for i := 0; i < len(affected); i++ {
		for j := i + 1; j < len(affected); j++ {
			a, b := g.nodes[affected[i]], g.nodes[affected[j]]
			shared := sharedUpdates(a, b, updated)
			if len(shared) == 0 {
				continue
			}
			out = append(out, entities.PackageRelationship{
				Source:     g.names[affected[i]],
				Target:     g.names[affected[j]],
				Type:       entities.RelVersionConsistency,
				Confidence: versionConsistencyConfidence,
				Impact:     entities.ImpactLevelMedium,
				Reason:     fmt.Sprintf("both depend on updated %v", shared),
			})
		}
	}

	dependents := make([]int, 0, len(parent))
	for dependent := range parent {
		dependents = append(dependents, dependent)
	}
	sort.Ints(dependents)
	for _, dependent := range dependents {
		source := parent[dependent]
		out = append(out, entities.PackageRelationship{
			Source:     g.names[source],
			Target:     g.names[dependent],
			Type:       entities.RelAffectedByUpdate,
			Confidence: affectedByUpdateConfidence,
			Impact:     entities.ImpactLevelHigh,
			Reason:     fmt.Sprintf("%s consumes the updated %s", g.names[dependent], g.names[source]),
		})
	}
	return out
}

func sharedUpdates(a, b entities.PackageNode, updated map[string]bool) []string {
	var shared []string
	for name := range updated {
		if _, ok := a.DependsOn(name); !ok {
			continue
		}
		if _, ok := b.DependsOn(name); ok {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	return shared
}
