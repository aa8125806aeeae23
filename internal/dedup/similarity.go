package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const (
	packageWeight    = 0.6
	dependencyWeight = 0.4
	lowOverlap       = 0.5
)

// Similarity is the comparison of two candidates.
type Similarity struct {
	ContentMatch      bool
	PackageOverlap    float64
	DependencyOverlap float64
	Semantic          float64
	MergeEligible     bool
	MergeRisk         entities.RiskLevel
}

// ContentHash hashes the canonical form of a candidate: sorted packages,
// releases sorted by package and the summary with whitespace collapsed.
func ContentHash(candidate entities.ChangesetCandidate) string {
	packages := append([]string(nil), candidate.Packages...)
	sort.Strings(packages)
	releases := make([]string, 0, len(candidate.Releases))
	for _, r := range entities.SortReleases(candidate.Releases) {
		releases = append(releases, r.Package+":"+string(r.Bump))
	}
	canonical := strings.Join(packages, ",") + "\n" +
		strings.Join(releases, ",") + "\n" +
		strings.Join(strings.Fields(candidate.Summary), " ")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Jaccard is |a ∩ b| / |a ∪ b| over the distinct values. Two empty sets have
// no overlap.
func Jaccard(a, b []string) float64 {
	setA, setB := toSet(a), toSet(b)
	union := len(setA)
	intersection := 0
	for v := range setB {
		if setA[v] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Compare computes the similarity of two candidates. It is symmetric.
func (e *Engine) Compare(a, b entities.ChangesetCandidate) Similarity {
	sim := Similarity{
		ContentMatch:      ContentHash(a) == ContentHash(b),
		PackageOverlap:    Jaccard(a.Packages, b.Packages),
		DependencyOverlap: Jaccard(a.Metadata.Dependencies, b.Metadata.Dependencies),
	}
	sim.Semantic = packageWeight*sim.PackageOverlap + dependencyWeight*sim.DependencyOverlap

	switch {
	case a.Metadata.Breaking || b.Metadata.Breaking:
		sim.MergeRisk = entities.RiskHigh
	case sim.PackageOverlap < lowOverlap && sim.DependencyOverlap < lowOverlap:
		sim.MergeRisk = entities.RiskMedium
	default:
		sim.MergeRisk = entities.RiskLow
	}

	sim.MergeEligible = e.options.MergeStrategy != entities.MergeDisabled &&
		a.Metadata.Security == b.Metadata.Security &&
		a.Metadata.Breaking == b.Metadata.Breaking &&
		(sim.PackageOverlap > 0 || sim.DependencyOverlap > 0)
	return sim
}

// Similar reports whether b duplicates a closely enough to be dropped.
func (e *Engine) Similar(sim Similarity) bool {
	return sim.ContentMatch || sim.Semantic >= e.options.SimilarityThreshold
}

// riskAllowed applies the merge strategy: conservative merges only low risk,
// aggressive also medium. High risk is never merged.
func (e *Engine) riskAllowed(risk entities.RiskLevel) bool {
	switch e.options.MergeStrategy {
	case entities.MergeAggressive:
		return risk.Rank() <= entities.RiskMedium.Rank()
	case entities.MergeConservative:
		return risk == entities.RiskLow
	case entities.MergeDisabled:
		return false
	default:
		return risk == entities.RiskLow
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func releaseKey(releases []entities.Release) string {
	parts := make([]string, 0, len(releases))
	seen := map[string]bool{}
	for _, r := range entities.SortReleases(releases) {
		key := r.Package + ":" + string(r.Bump)
		if !seen[key] {
			seen[key] = true
			parts = append(parts, key)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
