// Package categorizer assigns each dependency fact a primary category,
// secondary categories, a confidence and a risk level, and aggregates them.
package categorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const securityMinorRiskThreshold = 75

// ErrMissingImpact is returned when a fact has no impact-assessment entry. It is
// a contract violation between the normalizer and the categorizer.
var ErrMissingImpact = errors.New("dependency has no impact assessment entry")

// Categorizer classifies dependency facts.
type Categorizer struct {
	options entities.CategorizationOptions
}

// New creates a categorizer with the given options.
func New(options entities.CategorizationOptions) *Categorizer {
	return &Categorizer{options: options}
}

// Categorize classifies every fact and builds the aggregate summary.
func (c *Categorizer) Categorize(
	facts []entities.DependencyFact,
	assessment entities.ImpactAssessment,
) (entities.CategorizationResult, error) {
	deps := make([]entities.CategorizedDependency, 0, len(facts))
	for _, fact := range facts {
		entry, ok := assessment.Lookup(fact.Name)
		if !ok {
			return entities.CategorizationResult{}, fmt.Errorf("%w: %s", ErrMissingImpact, fact.Name)
		}
		deps = append(deps, c.CategorizeOne(fact, entry))
	}

	summary := Summarize(deps, assessment)
	logger.Debugf(
		"[categorizer] %d dependencies, primary %s, average risk %.1f, recommends %s",
		summary.Total, summary.PrimaryCategory, summary.AverageRisk, summary.RecommendedBump,
	)
	return entities.CategorizationResult{Dependencies: deps, Summary: summary}, nil
}

// CategorizeOne classifies a single fact against its impact entry.
func (c *Categorizer) CategorizeOne(
	fact entities.DependencyFact,
	entry entities.DependencyImpact,
) entities.CategorizedDependency {
	dep := entities.CategorizedDependency{
		Fact:       fact,
		Confidence: entry.Confidence,
	}
	if dep.Confidence == "" {
		dep.Confidence = entities.ConfidenceHigh
	}
	secondary := map[entities.Category]bool{}
	impactCategory := entities.CategoryFromImpact(fact.Impact)

	if fact.Security {
		dep.Primary = entities.CategorySecurity
		dep.Risk = riskFromSeverity(fact.Severity)
		dep.HighPriority = fact.Severity.Rank() >= entities.SeverityHigh.Rank()
		secondary[impactCategory] = true
		dep.Reasoning = append(dep.Reasoning, fmt.Sprintf(
			"security update (severity %s) takes precedence over the %s version change",
			fact.Severity, fact.Impact,
		))
	} else {
		dep.Primary = impactCategory
		dep.Risk = entities.RiskLow
		if impactCategory == entities.CategoryMajor {
			dep.Risk = entities.RiskMedium
		}
		dep.Reasoning = append(dep.Reasoning, fmt.Sprintf(
			"%s version change %s → %s", fact.Impact, fact.CurrentVersion, fact.NewVersion,
		))
	}

	if fact.Breaking {
		secondary[entities.CategoryMajor] = true
		dep.Risk = dep.Risk.AtLeast(entities.RiskHigh)
		dep.HighPriority = true
		dep.Reasoning = append(dep.Reasoning, "breaking change raises risk to at least high")
	}

	if fact.Downgrade {
		dep.Confidence = dep.Confidence.Degrade()
		dep.Reasoning = append(dep.Reasoning, "version downgrade lowers confidence")
	}

	if fact.Prerelease && c.options.PrereleaseLowersRisk {
		dep.Risk = dep.Risk.Step(-1)
		dep.HighPriority = false
		dep.Reasoning = append(dep.Reasoning, "prerelease target lowers risk and clears priority")
	}

	if override, ok := c.options.ManagerOverrides[fact.Manager]; ok {
		dep = applyManagerOverride(dep, override, secondary)
	}

	if fact.Breaking {
		dep.Risk = dep.Risk.AtLeast(entities.RiskHigh)
	}

	delete(secondary, dep.Primary)
	dep.Secondary = sortedCategories(secondary)
	return dep
}

func applyManagerOverride(
	dep entities.CategorizedDependency,
	override entities.ManagerOverride,
	secondary map[entities.Category]bool,
) entities.CategorizedDependency {
	if target, ok := override.CategoryRemap[dep.Primary]; ok && dep.Primary != entities.CategorySecurity && target != "" {
		secondary[dep.Primary] = true
		dep.Reasoning = append(dep.Reasoning, fmt.Sprintf(
			"%s rule remaps category %s → %s", dep.Fact.Manager, dep.Primary, target,
		))
		dep.Primary = target
	}

	if steps := RiskSteps(override.RiskFactor); steps != 0 {
		before := dep.Risk
		dep.Risk = dep.Risk.Step(steps)
		dep.Reasoning = append(dep.Reasoning, fmt.Sprintf(
			"%s risk factor %.2f moves risk %s → %s", dep.Fact.Manager, override.RiskFactor, before, dep.Risk,
		))
	}
	return dep
}

// RiskSteps converts a risk factor into index steps: factor > 1 moves up by
// round(factor-1), factor < 1 moves down by round((1-factor)*2). Zero is neutral.
func RiskSteps(factor float64) int {
	switch {
	case factor == 0 || factor == 1:
		return 0
	case factor > 1:
		return int(math.Round(factor - 1))
	default:
		return -int(math.Round((1 - factor) * 2)) //nolint:mnd // two steps per unit below one
	}
}

func riskFromSeverity(severity entities.Severity) entities.RiskLevel {
	switch severity {
	case entities.SeverityCritical:
		return entities.RiskCritical
	case entities.SeverityHigh:
		return entities.RiskHigh
	case entities.SeverityModerate:
		return entities.RiskMedium
	case entities.SeverityLow:
		return entities.RiskLow
	default:
		return entities.RiskMedium
	}
}

func sortedCategories(set map[entities.Category]bool) []entities.Category {
	out := make([]entities.Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Precedence() > out[j].Precedence()
	})
	return out
}

// Summarize aggregates categorized dependencies.
func Summarize(
	deps []entities.CategorizedDependency,
	assessment entities.ImpactAssessment,
) entities.CategorizationSummary {
	summary := entities.CategorizationSummary{
		Total:             len(deps),
		Counts:            map[entities.Category]int{},
		PrimaryCategory:   entities.CategoryPatch,
		OverallConfidence: entities.ConfidenceHigh,
	}
	if len(deps) == 0 {
		summary.RecommendedBump = entities.BumpPatch
		summary.Reasoning = []string{"no dependencies to categorize"}
		return summary
	}

	confidenceTotal, riskTotal := 0.0, 0.0
	for _, dep := range deps {
		summary.Counts[dep.Primary]++
		if dep.Primary.Precedence() > summary.PrimaryCategory.Precedence() {
			summary.PrimaryCategory = dep.Primary
		}
		if dep.Primary == entities.CategorySecurity {
			summary.HasSecurity = true
		}
		if dep.Fact.Breaking {
			summary.HasBreaking = true
		}
		if dep.HighPriority {
			summary.HighPriorityCount++
		}
		confidenceTotal += dep.Confidence.Score()
		riskTotal += dep.Risk.Score()
	}
	n := float64(len(deps))
	summary.OverallConfidence = entities.ConfidenceFromMean(confidenceTotal / n)
	summary.AverageRisk = riskTotal / n

	switch {
	case summary.HasBreaking:
		summary.RecommendedBump = entities.BumpMajor
		summary.Reasoning = append(summary.Reasoning, "breaking change present, recommending major")
	case summary.PrimaryCategory == entities.CategorySecurity && summary.AverageRisk >= securityMinorRiskThreshold:
		summary.RecommendedBump = entities.BumpMinor
		summary.Reasoning = append(summary.Reasoning, fmt.Sprintf(
			"security update with average risk %.1f, recommending minor", summary.AverageRisk,
		))
	case summary.PrimaryCategory == entities.CategorySecurity:
		summary.RecommendedBump = entities.BumpPatch
		summary.Reasoning = append(summary.Reasoning, fmt.Sprintf(
			"security update with average risk %.1f, recommending patch", summary.AverageRisk,
		))
	default:
		summary.RecommendedBump = assessment.RecommendedBump
		if !summary.RecommendedBump.IsValid() {
			summary.RecommendedBump = entities.BumpPatch
		}
		summary.Reasoning = append(summary.Reasoning, fmt.Sprintf(
			"deferring to semver impact recommendation %s", summary.RecommendedBump,
		))
	}
	return summary
}
