//go:build unit

package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/decision"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/test/domain/entitybuilders"
)

func newEngine(t *testing.T, policy entities.DecisionPolicy) *decision.Engine {
	t.Helper()
	engine, err := decision.New(policy)
	require.NoError(t, err)
	return engine
}

// unitInput builds a decision input whose categorization recommends categoryBump
// with high confidence and whose semver impact recommends semverBump.
func unitInput(semverBump, categoryBump entities.BumpType, facts ...entities.DependencyFact) entities.DecisionInput {
	summary := entities.CategorizationSummary{
		Total:             len(facts),
		OverallConfidence: entities.ConfidenceHigh,
		RecommendedBump:   categoryBump,
	}
	deps := make([]entities.CategorizedDependency, 0, len(facts))
	for _, fact := range facts {
		summary.HasSecurity = summary.HasSecurity || fact.Security
		summary.HasBreaking = summary.HasBreaking || fact.Breaking
		deps = append(deps, entities.CategorizedDependency{Fact: fact, Confidence: entities.ConfidenceHigh})
	}
	return entities.DecisionInput{
		Categorization: entities.CategorizationResult{Dependencies: deps, Summary: summary},
		Impact: entities.ImpactAssessment{
			RecommendedBump: semverBump,
			Confidence:      entities.ConfidenceHigh,
		},
		Manager:         entities.ManagerNpm,
		DependencyCount: len(facts),
	}
}

func TestDecideBaseAndSecurity(t *testing.T) {
	t.Parallel()

	t.Run("should raise a critical security patch to the configured minimum", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithSecurity(entities.SeverityCritical).BuildFact()
		input := unitInput(entities.BumpPatch, entities.BumpPatch, fact)
		engine := newEngine(t, entities.DecisionPolicy{
			SecurityTakesPrecedence: true,
			SecurityMinimumBump:     map[entities.Severity]entities.BumpType{entities.SeverityCritical: entities.BumpMinor},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.GreaterOrEqual(t, result.Bump.Rank(), entities.BumpMinor.Rank())
		assert.Contains(t, result.OverriddenRules, decision.RuleSecurityPrecedence)
		assert.Equal(t, entities.ConfidenceHigh, result.Confidence)
	})

	t.Run("should take the severity from the security analysis too", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpPatch, entities.BumpPatch, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Security = &entities.SecurityAnalysis{Vulnerabilities: []entities.Vulnerability{
			{Dependency: "test-dependency", Advisory: "GHSA-xxxx", Severity: entities.SeverityHigh},
		}}
		engine := newEngine(t, entities.DecisionPolicy{
			SecurityTakesPrecedence: true,
			SecurityMinimumBump:     map[entities.Severity]entities.BumpType{entities.SeverityHigh: entities.BumpMinor},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
	})

	t.Run("should take the higher recommendation when categorization is unsure", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMinor, entities.BumpPatch, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Categorization.Summary.OverallConfidence = entities.ConfidenceMedium
		engine := newEngine(t, entities.DecisionPolicy{})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.Empty(t, result.OverriddenRules)
	})

	t.Run("should list the differing semver recommendation as an alternative", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMajor, entities.BumpPatch, entitybuilders.NewDependencyFactBuilder().BuildFact())
		engine := newEngine(t, entities.DecisionPolicy{})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpPatch, result.Bump)
		require.Len(t, result.Alternatives, 1)
		assert.Equal(t, entities.BumpMajor, result.Alternatives[0].Bump)
		assert.Equal(t, "semver-impact", result.Alternatives[0].Source)
	})
}

func TestDecideBreaking(t *testing.T) {
	t.Parallel()

	t.Run("should force major for breaking changes and record the override", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithBreaking().BuildFact()
		input := unitInput(entities.BumpPatch, entities.BumpPatch, fact)
		engine := newEngine(t, entities.DecisionPolicy{BreakingChangesAlwaysMajor: true})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMajor, result.Bump)
		assert.Contains(t, result.OverriddenRules, decision.RuleBreakingOverride)
	})

	t.Run("should force major for a critical breaking indicator even when the toggle is off", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMinor, entities.BumpMinor, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Breaking = &entities.BreakingChangeAnalysis{
			HasBreakingChanges: true,
			Indicators: []entities.BreakingIndicator{
				{Dependency: "test-dependency", Severity: entities.SeverityCritical, Description: "API removed"},
			},
		}
		engine := newEngine(t, entities.DecisionPolicy{})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMajor, result.Bump)
	})
}

func TestDecideManagerRules(t *testing.T) {
	t.Parallel()

	t.Run("should cap at the manager maximum", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMajor, entities.BumpMajor, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Manager = entities.ManagerGitHubActions
		engine := newEngine(t, entities.DecisionPolicy{
			ManagerRules: map[entities.Manager]entities.ManagerRule{
				entities.ManagerGitHubActions: {MaxBump: entities.BumpMinor, DefaultBump: entities.BumpPatch, AllowDowngrade: true},
			},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.Equal(t, []string{decision.RuleManagerMaxBump}, result.OverriddenRules)
	})

	t.Run("should fall back to the manager default when downgrades are allowed", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMinor, entities.BumpMinor, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Manager = entities.ManagerDocker
		engine := newEngine(t, entities.DecisionPolicy{
			ManagerRules: map[entities.Manager]entities.ManagerRule{
				entities.ManagerDocker: {DefaultBump: entities.BumpPatch, AllowDowngrade: true},
			},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpPatch, result.Bump)
		assert.Contains(t, result.OverriddenRules, decision.RuleManagerDefault)
	})

	t.Run("should release majors as minor for major-as-minor managers", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMajor, entities.BumpMajor, entitybuilders.NewDependencyFactBuilder().BuildFact())
		engine := newEngine(t, entities.DecisionPolicy{
			ManagerRules: map[entities.Manager]entities.ManagerRule{
				entities.ManagerNpm: {MajorAsMinor: true, DefaultBump: entities.BumpPatch, AllowDowngrade: true},
			},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.NotContains(t, result.OverriddenRules, decision.RuleManagerDefault)
	})
}

func TestDecideOrganizationRules(t *testing.T) {
	t.Parallel()

	t.Run("should hold non breaking majors at minor in conservative mode", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpMajor, entities.BumpMajor, entitybuilders.NewDependencyFactBuilder().BuildFact())
		engine := newEngine(t, entities.DecisionPolicy{
			Organization: entities.OrganizationRules{ConservativeMode: true},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.Contains(t, result.OverriddenRules, decision.RuleConservativeMode)
	})

	t.Run("should keep breaking majors in conservative mode", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithBreaking().BuildFact()
		input := unitInput(entities.BumpMajor, entities.BumpMajor, fact)
		engine := newEngine(t, entities.DecisionPolicy{
			Organization: entities.OrganizationRules{ConservativeMode: true},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMajor, result.Bump)
	})

	t.Run("should stop at the first forcing pattern", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithName("lodash").BuildFact()
		input := unitInput(entities.BumpPatch, entities.BumpPatch, fact)
		engine := newEngine(t, entities.DecisionPolicy{
			Organization: entities.OrganizationRules{DependencyRules: []entities.DependencyRule{
				{Pattern: "^lodash$", Force: entities.BumpMinor},
				{Pattern: ".*", Force: entities.BumpMajor},
			}},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.Equal(t, []string{"dependency-pattern:^lodash$"}, result.OverriddenRules)
	})

	t.Run("should cap matching dependencies and keep evaluating", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithName("eslint-plugin-react").BuildFact()
		input := unitInput(entities.BumpMajor, entities.BumpMajor, fact)
		engine := newEngine(t, entities.DecisionPolicy{
			Organization: entities.OrganizationRules{DependencyRules: []entities.DependencyRule{
				{Pattern: "^eslint", MaxBump: entities.BumpMinor},
				{Pattern: "plugin", MaxBump: entities.BumpPatch},
				{Pattern: "^typescript$", Force: entities.BumpMajor},
			}},
		})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpPatch, result.Bump)
		assert.Len(t, result.OverriddenRules, 2)
	})
}

func TestDecideRisk(t *testing.T) {
	t.Parallel()

	t.Run("should never lower the bump when the risk score grows", func(t *testing.T) {
		t.Parallel()

		// given
		engine := newEngine(t, entities.DecisionPolicy{
			Risk: entities.RiskThresholds{Enabled: true, ForceMajorAbove: 90, PatchCeiling: 40, MinorCeiling: 70},
		})
		fact := entitybuilders.NewDependencyFactBuilder().BuildFact()

		for _, base := range []entities.BumpType{entities.BumpPatch, entities.BumpMinor, entities.BumpMajor} {
			previous := 0
			for score := 0.0; score <= 120; score += 5 {
				input := unitInput(base, base, fact)
				input.RiskScore = &score

				// when
				rank := engine.Decide(input).Bump.Rank()

				// then
				assert.GreaterOrEqual(t, rank, previous, "base %s score %.0f", base, score)
				assert.GreaterOrEqual(t, rank, base.Rank())
				previous = rank
			}
		}
	})

	t.Run("should ratchet patch to minor above the patch ceiling", func(t *testing.T) {
		t.Parallel()

		// given
		engine := newEngine(t, entities.DecisionPolicy{
			Risk: entities.RiskThresholds{Enabled: true, ForceMajorAbove: 100, PatchCeiling: 75, MinorCeiling: 100},
		})
		input := unitInput(entities.BumpPatch, entities.BumpPatch, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Categorization.Summary.AverageRisk = 80

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.Contains(t, result.OverriddenRules, decision.RuleRiskRatchet)
	})

	t.Run("should score and bucket the risk assessment", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithSecurity(entities.SeverityModerate).BuildFact()
		input := unitInput(entities.BumpPatch, entities.BumpPatch, fact)
		input.Categorization.Summary.AverageRisk = 50
		engine := newEngine(t, entities.DecisionPolicy{})

		// when
		result := engine.Decide(input)

		// then
		assert.InDelta(t, 45.0, result.Risk.Score, 0.001)
		assert.Equal(t, entities.RiskMedium, result.Risk.Level)
		assert.Len(t, result.Risk.Factors, 2)
	})
}

func TestDecideGrouped(t *testing.T) {
	t.Parallel()

	groupOf := func(impacts ...entities.SemverImpact) []entities.DependencyFact {
		facts := make([]entities.DependencyFact, 0, len(impacts))
		for i, impact := range impacts {
			facts = append(facts, entitybuilders.NewDependencyFactBuilder().
				WithName(string(rune('a'+i))).
				WithImpact(impact).
				BuildFact())
		}
		return facts
	}

	t.Run("should resolve the majority strategy to the most frequent bump", func(t *testing.T) {
		t.Parallel()

		// given
		facts := groupOf(
			entities.ImpactPatch, entities.ImpactPatch, entities.ImpactPatch,
			entities.ImpactMinor, entities.ImpactMajor,
		)
		input := unitInput(entities.BumpMajor, entities.BumpMajor, facts...)
		input.Grouped = true
		engine := newEngine(t, entities.DecisionPolicy{GroupedStrategy: entities.GroupedMajority})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpPatch, result.Bump)
		assert.Contains(t, result.OverriddenRules, decision.RuleGroupedMajority)
	})

	t.Run("should break majority ties towards the higher bump", func(t *testing.T) {
		t.Parallel()

		// given
		facts := groupOf(entities.ImpactPatch, entities.ImpactMinor, entities.ImpactMinor, entities.ImpactPatch)
		input := unitInput(entities.BumpPatch, entities.BumpPatch, facts...)
		input.Grouped = true
		engine := newEngine(t, entities.DecisionPolicy{GroupedStrategy: entities.GroupedMajority})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
	})

	t.Run("should hold grouped majors at minor with the conservative strategy", func(t *testing.T) {
		t.Parallel()

		// given
		facts := groupOf(entities.ImpactMajor, entities.ImpactPatch)
		input := unitInput(entities.BumpMajor, entities.BumpMajor, facts...)
		input.Grouped = true
		engine := newEngine(t, entities.DecisionPolicy{GroupedStrategy: entities.GroupedConservative})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.BumpMinor, result.Bump)
	})

	t.Run("should degrade confidence for large grouped updates", func(t *testing.T) {
		t.Parallel()

		// given
		facts := groupOf(
			entities.ImpactPatch, entities.ImpactPatch, entities.ImpactPatch,
			entities.ImpactPatch, entities.ImpactPatch, entities.ImpactPatch,
		)
		input := unitInput(entities.BumpPatch, entities.BumpPatch, facts...)
		input.Grouped = true
		engine := newEngine(t, entities.DecisionPolicy{GroupedStrategy: entities.GroupedHighest})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.ConfidenceMedium, result.Confidence)
		assert.InDelta(t, 12.0, result.Risk.Score, 0.001)
	})
}

func TestDecideConfidence(t *testing.T) {
	t.Parallel()

	t.Run("should drop to low when the impact assessment is unsure", func(t *testing.T) {
		t.Parallel()

		// given
		input := unitInput(entities.BumpPatch, entities.BumpPatch, entitybuilders.NewDependencyFactBuilder().BuildFact())
		input.Impact.Confidence = entities.ConfidenceLow
		engine := newEngine(t, entities.DecisionPolicy{})

		// when
		result := engine.Decide(input)

		// then
		assert.Equal(t, entities.ConfidenceLow, result.Confidence)
	})

	t.Run("should drop to medium when more than two rules overrode the bump", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithName("left-pad").BuildFact()
		input := unitInput(entities.BumpMajor, entities.BumpMajor, fact)
		engine := newEngine(t, entities.DecisionPolicy{
			ManagerRules: map[entities.Manager]entities.ManagerRule{
				entities.ManagerNpm: {MajorAsMinor: true},
			},
			Organization: entities.OrganizationRules{DependencyRules: []entities.DependencyRule{
				{Pattern: "pad", MaxBump: entities.BumpPatch},
			}},
			Risk: entities.RiskThresholds{Enabled: true, ForceMajorAbove: 100, PatchCeiling: 10, MinorCeiling: 100},
		})
		input.Categorization.Summary.AverageRisk = 25

		// when
		result := engine.Decide(input)

		// then
		assert.Len(t, result.OverriddenRules, 3)
		assert.Equal(t, entities.BumpMinor, result.Bump)
		assert.Equal(t, entities.ConfidenceMedium, result.Confidence)
	})
}
