package dedup

import (
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// Inspect audits changesets that are already persisted: it reports files that
// duplicate each other and packages released with conflicting bump types.
// Nothing is merged and nothing is removed from disk.
func (e *Engine) Inspect(existing []entities.ExistingChangeset) Result {
	candidates := make([]entities.ChangesetCandidate, 0, len(existing))
	for _, changeset := range existing {
		candidates = append(candidates, fromExisting(changeset))
	}

	result := Result{Summary: Summary{Original: len(candidates)}}
	current := candidates
	if e.options.ContentDedup {
		current = e.contentStage(current, &result)
	}
	if e.options.SemanticDedup {
		current = e.semanticStage(current, &result)
	}
	result.Candidates = current

	for _, dup := range result.Duplicates {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%s duplicates %s (%s, similarity %.2f)", dup.Candidate.FileName, dup.KeptID, dup.Stage, dup.Similarity,
		))
	}
	result.Warnings = append(result.Warnings, e.validate(candidates, candidates, nil)...)

	result.Summary.Final = len(current)
	result.Summary.Warnings = len(result.Warnings)
	result.Reasoning = append(result.Reasoning, fmt.Sprintf(
		"%d persisted changesets inspected, %d redundant", len(candidates), len(candidates)-len(current),
	))
	logger.Debugf("[dedup] %s", result.Reasoning[0])
	return result
}

// fromExisting views a persisted changeset as a candidate named by its file.
func fromExisting(changeset entities.ExistingChangeset) entities.ChangesetCandidate {
	packages := make([]string, 0, len(changeset.Releases))
	for _, r := range changeset.Releases {
		packages = append(packages, r.Package)
	}
	lower := strings.ToLower(changeset.Summary)
	return entities.ChangesetCandidate{
		ID:       changeset.FileName,
		FileName: changeset.FileName,
		Packages: packages,
		Summary:  changeset.Summary,
		Releases: entities.SortReleases(changeset.Releases),
		Metadata: entities.ChangesetMetadata{
			Security: strings.Contains(lower, "security"),
			Breaking: strings.Contains(lower, "breaking"),
		},
	}
}
