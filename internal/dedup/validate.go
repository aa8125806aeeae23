package dedup

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const maxRemovedRatio = 0.8

// validate compares the final set with the original candidates. Packages whose
// releases were found in an existing changeset count as covered.
func (e *Engine) validate(
	original, final []entities.ChangesetCandidate,
	existing []ExistingMatch,
) []string {
	var warnings []string
	if n := len(original); n > 0 {
		removed := n - len(final)
		if ratio := float64(removed) / float64(n); ratio > maxRemovedRatio {
			warnings = append(warnings, fmt.Sprintf(
				"%d of %d candidates (%.0f%%) were removed", removed, n, ratio*100, //nolint:mnd // percent
			))
		}
	}

	present := map[string]bool{}
	bumps := map[string]map[entities.BumpType]bool{}
	for _, candidate := range final {
		for _, pkg := range candidate.Packages {
			present[pkg] = true
		}
		for _, r := range candidate.Releases {
			present[r.Package] = true
			if bumps[r.Package] == nil {
				bumps[r.Package] = map[entities.BumpType]bool{}
			}
			bumps[r.Package][r.Bump] = true
		}
	}
	for _, match := range existing {
		for _, r := range match.Existing.Releases {
			present[r.Package] = true
		}
	}

	missing := map[string]bool{}
	for _, candidate := range original {
		for _, pkg := range candidate.Packages {
			if !present[pkg] {
				missing[pkg] = true
			}
		}
	}
	for _, pkg := range sortedKeys(missing) {
		warnings = append(warnings, fmt.Sprintf("package %s is no longer released by any changeset", pkg))
	}

	for _, pkg := range sortedKeys(bumps) {
		if len(bumps[pkg]) > 1 {
			kinds := make([]string, 0, len(bumps[pkg]))
			for bump := range bumps[pkg] {
				kinds = append(kinds, string(bump))
			}
			sort.Strings(kinds)
			warnings = append(warnings, fmt.Sprintf("package %s is released with different bump types %v", pkg, kinds))
		}
	}
	return warnings
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
