// Package dedup removes duplicate changeset candidates, merges overlapping
// ones, drops candidates already persisted and validates what remains. It never
// fails: anomalies become warnings on the result.
package dedup

import (
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/assembler"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// Stage names a dedup stage.
type Stage string

const (
	StageContent  Stage = "content"
	StageSemantic Stage = "semantic"
	StageMerge    Stage = "merge"
	StageExisting Stage = "existing"
)

// Duplicate is a candidate removed because another one covers it.
type Duplicate struct {
	Candidate  entities.ChangesetCandidate
	KeptID     string
	Stage      Stage
	Similarity float64
	Reason     string
}

// MergeOperation records candidates folded into one.
type MergeOperation struct {
	Sources []string
	Result  string
	Risk    entities.RiskLevel
}

// ExistingMatch is a candidate whose releases are already persisted.
type ExistingMatch struct {
	Candidate entities.ChangesetCandidate
	Existing  entities.ExistingChangeset
}

// Summary holds the counters of a run.
type Summary struct {
	Original           int
	Final              int
	ContentDuplicates  int
	SemanticDuplicates int
	Merged             int
	ExistingDuplicates int
	Warnings           int
}

// Result is the outcome of a dedup run.
type Result struct {
	Candidates      []entities.ChangesetCandidate
	Duplicates      []Duplicate
	Merges          []MergeOperation
	ExistingMatches []ExistingMatch
	Reasoning       []string
	Warnings        []string
	Summary         Summary
}

// Engine runs the dedup stages.
type Engine struct {
	options   entities.DedupOptions
	assembler *assembler.Assembler
	now       func() time.Time
}

// New creates an engine. The assembler names merged candidates.
func New(options entities.DedupOptions, asm *assembler.Assembler) *Engine {
	return &Engine{options: options, assembler: asm, now: time.Now}
}

// Run applies content dedup, semantic dedup and merging, repeating the three
// stages until a fixpoint so that running it again on its output changes
// nothing. The existing-file check and validation follow once.
func (e *Engine) Run(
	candidates []entities.ChangesetCandidate,
	existing []entities.ExistingChangeset,
) Result {
	result := Result{Summary: Summary{Original: len(candidates)}}
	if len(candidates) == 0 {
		result.Warnings = append(result.Warnings, "no changeset candidates to deduplicate")
		result.Summary.Warnings = len(result.Warnings)
		return result
	}

	current := append([]entities.ChangesetCandidate(nil), candidates...)
	for {
		before := len(current)
		if e.options.ContentDedup {
			current = e.contentStage(current, &result)
		}
		if e.options.SemanticDedup {
			current = e.semanticStage(current, &result)
		}
		if e.options.Merge {
			current = e.mergeStage(current, &result)
		}
		if len(current) == before {
			break
		}
	}

	if e.options.ExistingCheck && len(existing) > 0 {
		current = e.existingStage(current, existing, &result)
	}
	result.Candidates = current

	if e.options.Validate {
		result.Warnings = append(result.Warnings, e.validate(candidates, current, result.ExistingMatches)...)
	}

	result.Summary.Final = len(current)
	result.Summary.Warnings = len(result.Warnings)
	result.Reasoning = append(result.Reasoning, fmt.Sprintf(
		"%d candidates reduced to %d (%d content, %d semantic, %d merged, %d already persisted)",
		result.Summary.Original, result.Summary.Final, result.Summary.ContentDuplicates,
		result.Summary.SemanticDuplicates, result.Summary.Merged, result.Summary.ExistingDuplicates,
	))
	logger.Debugf("[dedup] %s", result.Reasoning[len(result.Reasoning)-1])
	return result
}

func (e *Engine) contentStage(candidates []entities.ChangesetCandidate, result *Result) []entities.ChangesetCandidate {
	kept := make([]entities.ChangesetCandidate, 0, len(candidates))
	firstByHash := map[string]string{}
	for _, candidate := range candidates {
		hash := ContentHash(candidate)
		if keptID, seen := firstByHash[hash]; seen {
			result.Duplicates = append(result.Duplicates, Duplicate{
				Candidate:  candidate,
				KeptID:     keptID,
				Stage:      StageContent,
				Similarity: 1,
				Reason:     "identical packages, releases and summary",
			})
			result.Summary.ContentDuplicates++
			continue
		}
		firstByHash[hash] = candidate.ID
		kept = append(kept, candidate)
	}
	return kept
}

func (e *Engine) semanticStage(candidates []entities.ChangesetCandidate, result *Result) []entities.ChangesetCandidate {
	removed := make([]bool, len(candidates))
	for i := range candidates {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if removed[j] {
				continue
			}
			sim := e.Compare(candidates[i], candidates[j])
			if !e.Similar(sim) {
				continue
			}
			removed[j] = true
			result.Duplicates = append(result.Duplicates, Duplicate{
				Candidate:  candidates[j],
				KeptID:     candidates[i].ID,
				Stage:      StageSemantic,
				Similarity: sim.Semantic,
				Reason: fmt.Sprintf(
					"semantic similarity %.2f (packages %.2f, dependencies %.2f)",
					sim.Semantic, sim.PackageOverlap, sim.DependencyOverlap,
				),
			})
			result.Summary.SemanticDuplicates++
		}
	}

	kept := make([]entities.ChangesetCandidate, 0, len(candidates))
	for i, candidate := range candidates {
		if !removed[i] {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func (e *Engine) existingStage(
	candidates []entities.ChangesetCandidate,
	existing []entities.ExistingChangeset,
	result *Result,
) []entities.ChangesetCandidate {
	now := e.now()
	recent := make([]entities.ExistingChangeset, 0, len(existing))
	for _, changeset := range existing {
		if e.options.MaxExistingAge > 0 && !changeset.ModifiedAt.IsZero() && changeset.Age(now) > e.options.MaxExistingAge {
			continue
		}
		recent = append(recent, changeset)
	}

	kept := make([]entities.ChangesetCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := releaseKey(candidate.Releases)
		match := -1
		for i, changeset := range recent {
			if releaseKey(changeset.Releases) == key {
				match = i
				break
			}
		}
		if match < 0 {
			kept = append(kept, candidate)
			continue
		}
		result.ExistingMatches = append(result.ExistingMatches, ExistingMatch{Candidate: candidate, Existing: recent[match]})
		result.Duplicates = append(result.Duplicates, Duplicate{
			Candidate:  candidate,
			KeptID:     recent[match].FileName,
			Stage:      StageExisting,
			Similarity: 1,
			Reason:     fmt.Sprintf("releases already persisted in %s", recent[match].FileName),
		})
		result.Summary.ExistingDuplicates++
	}
	return kept
}
