// Package assembler turns consolidation units and their bump decisions into
// changeset candidates with a human-readable summary.
package assembler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const (
	maxSummaryRelationships = 5
	idFileNameLength        = 8
	defaultFilePrefix       = "deps"
)

//nolint:gochecknoglobals // stable namespace for deterministic ids
var candidateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rios0rios0/autochangeset"))

//nolint:gochecknoglobals // compiled once
var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Unit is one consolidation unit: the packages released together, the
// dependencies behind the release and the decision taken for them.
type Unit struct {
	Packages      []string
	Dependencies  []entities.CategorizedDependency
	Relationships []entities.PackageRelationship
	Decision      entities.BumpDecision
}

// Assembler builds changeset candidates.
type Assembler struct {
	prefix string
}

// New creates an assembler writing file names with the configured prefix.
func New(options entities.OutputOptions) *Assembler {
	prefix := options.FilePrefix
	if prefix == "" {
		prefix = defaultFilePrefix
	}
	return &Assembler{prefix: prefix}
}

// Units splits the affected packages according to the grouping strategy:
// everything together, one unit per package, or one unit per component.
func Units(grouping entities.GroupingResult) [][]string {
	switch grouping.Strategy {
	case entities.StrategyMultiple:
		units := make([][]string, 0, len(grouping.Affected))
		for _, pkg := range grouping.Affected {
			units = append(units, []string{pkg})
		}
		return units
	case entities.StrategyGrouped:
		return grouping.Groups
	case entities.StrategySingle:
		fallthrough
	default:
		if len(grouping.Affected) == 0 {
			return nil
		}
		return [][]string{grouping.Affected}
	}
}

// RelationshipsWithin keeps the edges whose both ends are in the package set.
func RelationshipsWithin(all []entities.PackageRelationship, packages []string) []entities.PackageRelationship {
	set := toSet(packages)
	var out []entities.PackageRelationship
	for _, rel := range all {
		if set[rel.Source] && set[rel.Target] {
			out = append(out, rel)
		}
	}
	return out
}

// Assemble builds the candidate for one unit. Every release entry carries the
// unit's final bump.
func (a *Assembler) Assemble(unit Unit) entities.ChangesetCandidate {
	packages := uniqueSorted(unit.Packages)
	releases := make([]entities.Release, 0, len(packages))
	for _, pkg := range packages {
		releases = append(releases, entities.Release{Package: pkg, Bump: unit.Decision.Bump})
	}

	relationships := append([]entities.PackageRelationship(nil), unit.Relationships...)
	SortRelationships(relationships)

	metadata := entities.ChangesetMetadata{
		Grouped:   len(packages) > 1 || len(unit.Dependencies) > 1,
		Reasoning: append([]string(nil), unit.Decision.Reasoning...),
	}
	names := make([]string, 0, len(unit.Dependencies))
	for _, dep := range unit.Dependencies {
		names = append(names, dep.Fact.Name)
		metadata.Security = metadata.Security || dep.Primary == entities.CategorySecurity
		metadata.Breaking = metadata.Breaking || dep.Fact.Breaking
	}
	metadata.Dependencies = uniqueSorted(names)

	decision := unit.Decision
	id := CandidateID(packages, metadata.Dependencies, string(decision.Bump))
	return entities.ChangesetCandidate{
		ID:            id,
		FileName:      a.FileName(packages, id),
		Packages:      packages,
		Summary:       summarize(unit.Dependencies, relationships, decision),
		Releases:      releases,
		Relationships: relationships,
		Metadata:      metadata,
		Decision:      &decision,
	}
}

// CandidateID derives a stable id from the sorted package and dependency sets.
func CandidateID(packages, dependencies []string, extra ...string) string {
	key := strings.Join(uniqueSorted(packages), ",") + "|" + strings.Join(uniqueSorted(dependencies), ",")
	if len(extra) > 0 {
		key += "|" + strings.Join(extra, "|")
	}
	return uuid.NewSHA1(candidateNamespace, []byte(key)).String()
}

// FileName renders "<prefix>-<slug>-<id prefix>.md".
func (a *Assembler) FileName(packages []string, id string) string {
	slug := "changes"
	switch len(packages) {
	case 0:
	case 1:
		slug = slugify(packages[0])
	default:
		slug = fmt.Sprintf("%s-and-%d-more", slugify(packages[0]), len(packages)-1)
	}
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > idFileNameLength {
		short = short[:idFileNameLength]
	}
	return fmt.Sprintf("%s-%s-%s.md", a.prefix, slug, short)
}

func slugify(s string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "package"
	}
	return slug
}

// SortRelationships orders edges by confidence, then impact, then endpoints.
func SortRelationships(relationships []entities.PackageRelationship) {
	sort.SliceStable(relationships, func(i, j int) bool {
		a, b := relationships[i], relationships[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Impact.Rank() != b.Impact.Rank() {
			return a.Impact.Rank() > b.Impact.Rank()
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
}

func uniqueSorted(values []string) []string {
	set := toSet(values)
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
