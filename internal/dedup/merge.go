package dedup

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/autochangeset/internal/assembler"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const defaultMaxGroupSize = 5

// mergeStage folds eligible candidates greedily, in order, into groups whose
// total weight stays within the configured maximum.
func (e *Engine) mergeStage(candidates []entities.ChangesetCandidate, result *Result) []entities.ChangesetCandidate {
	if e.options.MergeStrategy == entities.MergeDisabled {
		return candidates
	}
	limit := e.options.MaxGroupSize
	if limit <= 0 {
		limit = defaultMaxGroupSize
	}

	consumed := make([]bool, len(candidates))
	out := make([]entities.ChangesetCandidate, 0, len(candidates))
	for i := range candidates {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		members := []entities.ChangesetCandidate{candidates[i]}
		merged := candidates[i]
		risk := entities.RiskLow
		for j := i + 1; j < len(candidates); j++ {
			if consumed[j] || merged.Weight()+candidates[j].Weight() > limit {
				continue
			}
			sim := e.Compare(merged, candidates[j])
			if !sim.MergeEligible || !e.riskAllowed(sim.MergeRisk) {
				continue
			}
			consumed[j] = true
			members = append(members, candidates[j])
			merged = e.Merge(members...)
			risk = maxRisk(risk, sim.MergeRisk)
		}

		if len(members) == 1 {
			out = append(out, candidates[i])
			continue
		}
		out = append(out, merged)
		sources := make([]string, 0, len(members))
		for _, m := range members {
			sources = append(sources, m.ID)
		}
		result.Merges = append(result.Merges, MergeOperation{Sources: sources, Result: merged.ID, Risk: risk})
		result.Summary.Merged += len(members)
		result.Reasoning = append(result.Reasoning, fmt.Sprintf(
			"merged %d candidates into %s (%s risk)", len(members), merged.FileName, risk,
		))
	}
	return out
}

func maxRisk(a, b entities.RiskLevel) entities.RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Merge combines candidates: packages and dependencies are unioned, each
// package keeps its highest bump and the security and breaking flags are OR-ed.
func (e *Engine) Merge(members ...entities.ChangesetCandidate) entities.ChangesetCandidate {
	bumps := map[string]entities.BumpType{}
	var dependencies, mergedFrom, reasoning []string
	var relationships []entities.PackageRelationship
	seenRel := map[string]bool{}
	merged := entities.ChangesetCandidate{Metadata: entities.ChangesetMetadata{Grouped: true}}

	for _, m := range members {
		for _, r := range m.Releases {
			bumps[r.Package] = entities.MaxBump(bumps[r.Package], r.Bump)
		}
		for _, pkg := range m.Packages {
			if _, ok := bumps[pkg]; !ok {
				bumps[pkg] = ""
			}
		}
		dependencies = append(dependencies, m.Metadata.Dependencies...)
		reasoning = append(reasoning, m.Metadata.Reasoning...)
		if len(m.Metadata.MergedFrom) > 0 {
			mergedFrom = append(mergedFrom, m.Metadata.MergedFrom...)
		} else {
			mergedFrom = append(mergedFrom, m.ID)
		}
		for _, rel := range m.Relationships {
			key := rel.Source + "|" + rel.Target + "|" + string(rel.Type)
			if !seenRel[key] {
				seenRel[key] = true
				relationships = append(relationships, rel)
			}
		}
		merged.Metadata.Security = merged.Metadata.Security || m.Metadata.Security
		merged.Metadata.Breaking = merged.Metadata.Breaking || m.Metadata.Breaking
		if m.Decision != nil && (merged.Decision == nil || m.Decision.Bump.Rank() > merged.Decision.Bump.Rank()) {
			merged.Decision = m.Decision
		}
	}

	for pkg, bump := range bumps {
		merged.Packages = append(merged.Packages, pkg)
		if bump.IsValid() {
			merged.Releases = append(merged.Releases, entities.Release{Package: pkg, Bump: bump})
		}
	}
	sort.Strings(merged.Packages)
	merged.Releases = entities.SortReleases(merged.Releases)
	merged.Metadata.Dependencies = unique(dependencies)
	merged.Metadata.MergedFrom = unique(mergedFrom)
	merged.Metadata.Reasoning = append(reasoning, fmt.Sprintf("merged from %d changesets", len(merged.Metadata.MergedFrom)))
	assembler.SortRelationships(relationships)
	merged.Relationships = relationships

	merged.ID = assembler.CandidateID(merged.Packages, merged.Metadata.Dependencies, merged.Metadata.MergedFrom...)
	if e.assembler != nil {
		merged.FileName = e.assembler.FileName(merged.Packages, merged.ID)
	} else {
		merged.FileName = merged.ID + ".md"
	}
	merged.Summary = assembler.MergedSummary(
		merged.Packages, merged.Metadata.Dependencies, len(merged.Metadata.MergedFrom),
	)
	return merged
}

func unique(values []string) []string {
	set := toSet(values)
	out := make([]string, 0, len(set))
	for v := range set {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
