// Package normalizer converts heterogeneous per-ecosystem change records into
// uniform dependency facts and builds the semver impact assessment of a batch.
package normalizer

import (
	"fmt"
	"path"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const (
	cvssCritical = 9.0
	cvssHigh     = 7.0
	cvssModerate = 4.0
)

// Result is the output of a normalization pass.
type Result struct {
	Facts      []entities.DependencyFact
	Assessment entities.ImpactAssessment
	Skipped    []string
}

// Normalize turns change records into facts. Records are collapsed by
// (manager, scope, name), keeping the largest impact and OR-ing the flags.
func Normalize(changes []entities.DependencyChange) Result {
	var result Result
	index := make(map[string]int, len(changes))
	confidences := make(map[string]entities.DependencyImpact, len(changes))
	order := make([]string, 0, len(changes))

	for _, change := range changes {
		name := strings.TrimSpace(change.Name)
		if name == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("record from %q has no dependency name", change.Source))
			logger.Warnf("[normalizer] Skipping record without a dependency name (source %q)", change.Source)
			continue
		}

		fact, impactEntry := normalizeOne(change)
		key := string(fact.Manager) + "|" + fact.Scope + "|" + fact.Name
		if i, seen := index[key]; seen {
			result.Facts[i] = combineFacts(result.Facts[i], fact)
		} else {
			index[key] = len(result.Facts)
			result.Facts = append(result.Facts, fact)
		}

		if existing, ok := confidences[fact.Name]; ok {
			if impactEntry.Impact.Rank() <= existing.Impact.Rank() {
				continue
			}
		} else {
			order = append(order, fact.Name)
		}
		confidences[fact.Name] = impactEntry
	}

	entries := make([]entities.DependencyImpact, 0, len(order))
	for _, name := range order {
		entries = append(entries, confidences[name])
	}
	result.Assessment = BuildAssessment(entries)

	logger.Debugf(
		"[normalizer] %d records → %d facts (%d skipped), overall impact %s",
		len(changes), len(result.Facts), len(result.Skipped), result.Assessment.OverallImpact,
	)
	return result
}

func normalizeOne(change entities.DependencyChange) (entities.DependencyFact, entities.DependencyImpact) {
	manager := entities.ParseManager(change.Manager)
	name := strings.TrimSpace(change.Name)
	versions := CompareVersions(manager, change.FromVersion, change.ToVersion)

	impact := versions.Impact
	confidence := entities.ConfidenceLow
	reason := versions.Reason
	if versions.Parsed {
		confidence = entities.ConfidenceHigh
	}
	if declared, ok := ImpactFromUpdateType(change.UpdateType); ok {
		if versions.Parsed && declared != impact {
			confidence = entities.ConfidenceMedium
			reason = fmt.Sprintf("declared %s update overrides computed %s", declared, impact)
		} else if !versions.Parsed {
			confidence = entities.ConfidenceMedium
			reason = fmt.Sprintf("declared %s update (versions not comparable)", declared)
		}
		impact = declared
	}

	severity := entities.ParseSeverity(change.Severity)
	if severity == entities.SeverityNone && change.CVSS > 0 {
		severity = severityFromCVSS(change.CVSS)
	}
	security := severity != entities.SeverityNone ||
		len(change.Advisories) > 0 ||
		strings.TrimSpace(change.AlertState) != ""

	fact := entities.DependencyFact{
		Name:           name,
		Manager:        manager,
		CurrentVersion: strings.TrimSpace(change.FromVersion),
		NewVersion:     strings.TrimSpace(change.ToVersion),
		Impact:         impact,
		Security:       security,
		Severity:       severity,
		Breaking:       change.Breaking,
		Downgrade:      versions.Downgrade,
		Prerelease:     versions.Prerelease || impact == entities.ImpactPrerelease,
		Scope:          resolveScope(change),
		Advisories:     append([]string(nil), change.Advisories...),
	}

	return fact, entities.DependencyImpact{
		Name:       name,
		Impact:     impact,
		Confidence: confidence,
		Reasoning:  reason,
	}
}

func resolveScope(change entities.DependencyChange) string {
	if scope := strings.TrimSpace(change.Scope); scope != "" {
		return scope
	}
	dir := strings.TrimSpace(change.Directory)
	if dir == "" {
		return ""
	}
	dir = path.Clean(strings.TrimPrefix(dir, "/"))
	if dir == "." {
		return ""
	}
	return dir
}

func severityFromCVSS(score float64) entities.Severity {
	switch {
	case score >= cvssCritical:
		return entities.SeverityCritical
	case score >= cvssHigh:
		return entities.SeverityHigh
	case score >= cvssModerate:
		return entities.SeverityModerate
	default:
		return entities.SeverityLow
	}
}

func combineFacts(a, b entities.DependencyFact) entities.DependencyFact {
	combined := a
	if b.Impact.Rank() > a.Impact.Rank() {
		combined.Impact = b.Impact
		combined.NewVersion = b.NewVersion
		combined.Prerelease = b.Prerelease
		combined.Downgrade = b.Downgrade
	}
	combined.Security = a.Security || b.Security
	combined.Severity = entities.MaxSeverity(a.Severity, b.Severity)
	combined.Breaking = a.Breaking || b.Breaking
	combined.Advisories = mergeStrings(a.Advisories, b.Advisories)
	return combined
}

func mergeStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// BuildAssessment aggregates per-dependency impacts: the overall impact is the
// largest one and confidence is the mean of the entries on the three-point scale.
func BuildAssessment(entries []entities.DependencyImpact) entities.ImpactAssessment {
	assessment := entities.ImpactAssessment{
		Dependencies:  entries,
		OverallImpact: entities.ImpactNone,
		Confidence:    entities.ConfidenceHigh,
	}
	if len(entries) == 0 {
		assessment.RecommendedBump = entities.BumpPatch
		assessment.Reasoning = []string{"no dependency changes to assess"}
		return assessment
	}

	total := 0.0
	for _, entry := range entries {
		if entry.Impact.Rank() > assessment.OverallImpact.Rank() {
			assessment.OverallImpact = entry.Impact
		}
		total += entry.Confidence.Score()
	}
	assessment.Confidence = entities.ConfidenceFromMean(total / float64(len(entries)))
	assessment.RecommendedBump = assessment.OverallImpact.Bump()
	assessment.Reasoning = []string{
		fmt.Sprintf("%d dependencies assessed, largest change is %s", len(entries), assessment.OverallImpact),
		fmt.Sprintf("semver impact recommends a %s release", assessment.RecommendedBump),
	}
	return assessment
}
