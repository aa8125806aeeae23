package decision

import (
	"fmt"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const (
	breakingRiskBonus   = 10
	securityRiskBonus   = 5
	groupedRiskPerDep   = 2
	maxRiskScore        = 100
	patchRiskMultiplier = 0.8
	majorRiskMultiplier = 1.2
)

func assessRisk(input entities.DecisionInput, bump entities.BumpType, base float64) entities.RiskAssessment {
	multiplier := 1.0
	switch bump {
	case entities.BumpPatch:
		multiplier = patchRiskMultiplier
	case entities.BumpMajor:
		multiplier = majorRiskMultiplier
	case entities.BumpMinor:
	}

	score := base * multiplier
	factors := []string{fmt.Sprintf("aggregate risk %.1f × %.1f for a %s release", base, multiplier, bump)}
	if hasBreaking(input) {
		score += breakingRiskBonus
		factors = append(factors, fmt.Sprintf("breaking changes +%d", breakingRiskBonus))
	}
	if hasSecurity(input) {
		score += securityRiskBonus
		factors = append(factors, fmt.Sprintf("security updates +%d", securityRiskBonus))
	}
	if input.Grouped {
		n := dependencyCount(input)
		score += float64(groupedRiskPerDep * n)
		factors = append(factors, fmt.Sprintf("grouped update of %d dependencies +%d", n, groupedRiskPerDep*n))
	}
	score = min(max(score, 0), maxRiskScore)

	return entities.RiskAssessment{
		Level:   entities.RiskFromScore(score),
		Score:   score,
		Factors: factors,
	}
}

func alternatives(
	input entities.DecisionInput,
	final, semverBump, categoryBump entities.BumpType,
) []entities.AlternativeDecision {
	var out []entities.AlternativeDecision
	if semverBump != final {
		confidence := input.Impact.Confidence
		if confidence == "" {
			confidence = entities.ConfidenceMedium
		}
		out = append(out, entities.AlternativeDecision{
			Bump:       semverBump,
			Confidence: confidence,
			Source:     "semver-impact",
			Reasoning:  fmt.Sprintf("largest version change alone calls for %s", semverBump),
		})
	}
	if categoryBump != final && categoryBump != semverBump {
		out = append(out, entities.AlternativeDecision{
			Bump:       categoryBump,
			Confidence: input.Categorization.Summary.OverallConfidence.Degrade(),
			Source:     "categorization",
			Reasoning:  fmt.Sprintf("category summary alone calls for %s", categoryBump),
		})
	}
	return out
}
