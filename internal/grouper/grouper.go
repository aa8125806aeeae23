// Package grouper works out which workspace packages a batch of dependency
// updates touches, how those packages relate, and how their changesets should
// be consolidated.
package grouper

import (
	"fmt"
	"path"
	"sort"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const (
	highRiskPackages   = 5
	mediumRiskPackages = 2
	defaultRootPackage = "root"
)

// Grouper builds grouping results under fixed options.
type Grouper struct {
	options entities.GroupingOptions
}

// New creates a grouper.
func New(options entities.GroupingOptions) *Grouper {
	return &Grouper{options: options}
}

// Group partitions the workspace into directly and indirectly affected
// packages, derives the relationship edges among them and picks a strategy.
func (g *Grouper) Group(
	workspace entities.Workspace,
	facts []entities.DependencyFact,
	changedFiles []string,
) entities.GroupingResult {
	if len(workspace.Packages) == 0 {
		return g.groupWithoutWorkspace(facts)
	}

	gr := buildGraph(workspace, g.options.IncludeDevDependencies)
	direct, packageFacts := g.directlyAffected(gr, facts, changedFiles)
	if len(direct) == 0 {
		logger.Debugf("[grouper] No workspace package matched the updates, using scopes")
		return g.groupWithoutWorkspace(facts)
	}

	indirect, parent := gr.expandDependents(direct)
	affected := append(append([]int(nil), direct...), indirect...)
	sort.Ints(affected)

	updated := make(map[string]bool, len(facts))
	for _, fact := range facts {
		updated[fact.Name] = true
	}

	result := entities.GroupingResult{
		Affected:         gr.namesOf(affected),
		DirectlyAffected: gr.namesOf(direct),
		Indirect:         gr.namesOf(indirect),
		Relationships:    gr.relationships(affected, parent, updated),
		PackageFacts:     packageFacts,
	}
	for _, component := range gr.components(affected) {
		result.Groups = append(result.Groups, gr.namesOf(component))
	}
	g.finish(&result)

	logger.Debugf(
		"[grouper] %d affected (%d direct, %d indirect), %d relationships, strategy %s, risk %s",
		len(result.Affected), len(result.DirectlyAffected), len(result.Indirect),
		len(result.Relationships), result.Strategy, result.Risk,
	)
	return result
}

func (gr *graph) namesOf(indices []int) []string {
	names := make([]string, 0, len(indices))
	for _, i := range indices {
		names = append(names, gr.names[i])
	}
	return names
}

// directlyAffected matches facts to packages by scope first, then by declared
// dependency. Packages holding changed files are affected even without a fact.
func (g *Grouper) directlyAffected(
	gr *graph,
	facts []entities.DependencyFact,
	changedFiles []string,
) ([]int, map[string][]string) {
	hit := make([]bool, len(gr.nodes))
	packageFacts := map[string][]string{}
	attribute := func(i int, fact string) {
		hit[i] = true
		for _, existing := range packageFacts[gr.names[i]] {
			if existing == fact {
				return
			}
		}
		packageFacts[gr.names[i]] = append(packageFacts[gr.names[i]], fact)
	}

	for _, fact := range facts {
		if fact.Scope != "" {
			if i, ok := gr.matchScope(fact.Scope); ok {
				attribute(i, fact.Name)
				continue
			}
		}
		for i, node := range gr.nodes {
			kind, ok := node.DependsOn(fact.Name)
			if ok && (kind != entities.KindDev || g.options.IncludeDevDependencies) {
				attribute(i, fact.Name)
			}
		}
	}

	single := len(gr.nodes) == 1
	for _, file := range changedFiles {
		for i, node := range gr.nodes {
			if !single && isRootPath(node.Path) {
				continue
			}
			if node.Contains(file) {
				hit[i] = true
			}
		}
	}

	var direct []int
	for i, ok := range hit {
		if ok {
			direct = append(direct, i)
		}
	}
	return direct, packageFacts
}

func (gr *graph) matchScope(scope string) (int, bool) {
	if i, ok := gr.index[scope]; ok {
		return i, true
	}
	want := cleanPath(scope)
	for i, node := range gr.nodes {
		if cleanPath(node.Path) == want {
			return i, true
		}
	}
	return 0, false
}

func cleanPath(p string) string {
	return path.Clean(strings.TrimPrefix(strings.TrimPrefix(p, "/"), "./"))
}

func isRootPath(p string) bool {
	clean := cleanPath(p)
	return clean == "." || clean == ""
}

// groupWithoutWorkspace treats every distinct fact scope as a package, with
// unscoped facts landing on the root package.
func (g *Grouper) groupWithoutWorkspace(facts []entities.DependencyFact) entities.GroupingResult {
	root := g.options.RootPackage
	if root == "" {
		root = defaultRootPackage
	}

	result := entities.GroupingResult{PackageFacts: map[string][]string{}}
	for _, fact := range facts {
		pkg := fact.Scope
		if pkg == "" {
			pkg = root
		}
		if _, seen := result.PackageFacts[pkg]; !seen {
			result.Affected = append(result.Affected, pkg)
		}
		if !containsString(result.PackageFacts[pkg], fact.Name) {
			result.PackageFacts[pkg] = append(result.PackageFacts[pkg], fact.Name)
		}
	}
	if len(result.Affected) == 0 {
		result.Affected = []string{root}
	}
	sort.Strings(result.Affected)
	result.DirectlyAffected = append([]string(nil), result.Affected...)
	for _, pkg := range result.Affected {
		result.Groups = append(result.Groups, []string{pkg})
	}
	result.Reasoning = append(result.Reasoning, "no workspace packages discovered, grouping by dependency scope")
	g.finish(&result)
	return result
}

func (g *Grouper) finish(result *entities.GroupingResult) {
	result.Strategy = g.strategy(*result)
	result.Risk = riskOf(*result)
	result.Reasoning = append(result.Reasoning,
		fmt.Sprintf("%d packages affected directly, %d indirectly", len(result.DirectlyAffected), len(result.Indirect)),
		fmt.Sprintf("consolidation strategy %s", result.Strategy),
	)
}

func (g *Grouper) strategy(result entities.GroupingResult) entities.ConsolidationStrategy {
	if len(result.Affected) <= 1 || !g.options.AllowSeparateChangesets {
		return entities.StrategySingle
	}
	if g.options.EnableGrouping {
		for _, rel := range result.Relationships {
			if rel.Type == entities.RelInternalDependency {
				return entities.StrategyGrouped
			}
		}
	}
	return entities.StrategyMultiple
}

func riskOf(result entities.GroupingResult) entities.RiskLevel {
	switch n := len(result.Affected); {
	case n > highRiskPackages:
		return entities.RiskHigh
	case n > mediumRiskPackages || len(result.Indirect) > 0:
		return entities.RiskMedium
	default:
		return entities.RiskLow
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
