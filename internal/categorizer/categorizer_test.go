//go:build unit

package categorizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/categorizer"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/test/domain/entitybuilders"
)

func TestCategorizeOne(t *testing.T) {
	t.Parallel()

	t.Run("should let security dominate the semver category", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().
			WithImpact(entities.ImpactMajor).
			WithSecurity(entities.SeverityCritical).
			BuildFact()
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name, Confidence: entities.ConfidenceHigh})

		// then
		assert.Equal(t, entities.CategorySecurity, dep.Primary)
		assert.Equal(t, []entities.Category{entities.CategoryMajor}, dep.Secondary)
		assert.Equal(t, entities.RiskCritical, dep.Risk)
		assert.True(t, dep.HighPriority)
	})

	t.Run("should map every severity onto a risk level", func(t *testing.T) {
		t.Parallel()

		cases := map[entities.Severity]entities.RiskLevel{
			entities.SeverityCritical: entities.RiskCritical,
			entities.SeverityHigh:     entities.RiskHigh,
			entities.SeverityModerate: entities.RiskMedium,
			entities.SeverityLow:      entities.RiskLow,
			entities.SeverityNone:     entities.RiskMedium,
		}
		c := categorizer.New(entities.CategorizationOptions{})
		for severity, expected := range cases {
			// given
			fact := entitybuilders.NewDependencyFactBuilder().WithSecurity(severity).BuildFact()

			// when
			dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name})

			// then
			assert.Equal(t, expected, dep.Risk, "severity %s", severity)
		}
	})

	t.Run("should add major and raise risk for breaking changes", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().
			WithImpact(entities.ImpactMinor).
			WithBreaking().
			BuildFact()
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name})

		// then
		assert.Equal(t, entities.CategoryMinor, dep.Primary)
		assert.True(t, dep.HasCategory(entities.CategoryMajor))
		assert.Equal(t, entities.RiskHigh, dep.Risk)
	})

	t.Run("should lower confidence one step on downgrade", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithDowngrade().BuildFact()
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name, Confidence: entities.ConfidenceMedium})

		// then
		assert.Equal(t, entities.ConfidenceLow, dep.Confidence)
	})

	t.Run("should lower risk and clear priority for prereleases when configured", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().
			WithSecurity(entities.SeverityHigh).
			WithPrerelease().
			BuildFact()
		c := categorizer.New(entities.CategorizationOptions{PrereleaseLowersRisk: true})

		// when
		dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name})

		// then
		assert.Equal(t, entities.RiskMedium, dep.Risk)
		assert.False(t, dep.HighPriority)
	})

	t.Run("should keep breaking risk floor after a lowering manager factor", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().
			WithManager(entities.ManagerGitHubActions).
			WithImpact(entities.ImpactMajor).
			WithBreaking().
			BuildFact()
		c := categorizer.New(entities.CategorizationOptions{
			ManagerOverrides: map[entities.Manager]entities.ManagerOverride{
				entities.ManagerGitHubActions: {RiskFactor: 0.5},
			},
		})

		// when
		dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name})

		// then
		assert.Equal(t, entities.RiskHigh, dep.Risk)
	})

	t.Run("should remap a non security category through the manager override", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().
			WithManager(entities.ManagerDocker).
			WithImpact(entities.ImpactMajor).
			BuildFact()
		c := categorizer.New(entities.CategorizationOptions{
			ManagerOverrides: map[entities.Manager]entities.ManagerOverride{
				entities.ManagerDocker: {
					CategoryRemap: map[entities.Category]entities.Category{entities.CategoryMajor: entities.CategoryMinor},
					RiskFactor:    2,
				},
			},
		})

		// when
		dep := c.CategorizeOne(fact, entities.DependencyImpact{Name: fact.Name})

		// then
		assert.Equal(t, entities.CategoryMinor, dep.Primary)
		assert.Equal(t, []entities.Category{entities.CategoryMajor}, dep.Secondary)
		assert.Equal(t, entities.RiskHigh, dep.Risk)
	})
}

func TestRiskSteps(t *testing.T) {
	t.Parallel()

	t.Run("should round factor deltas into index steps", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 0, categorizer.RiskSteps(1))
		assert.Equal(t, 0, categorizer.RiskSteps(0))
		assert.Equal(t, 1, categorizer.RiskSteps(1.5))
		assert.Equal(t, 2, categorizer.RiskSteps(3))
		assert.Equal(t, -1, categorizer.RiskSteps(0.5))
		assert.Equal(t, -2, categorizer.RiskSteps(0.1))
		assert.Equal(t, 0, categorizer.RiskSteps(0.9))
	})
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	t.Run("should fail when a fact has no impact entry", func(t *testing.T) {
		t.Parallel()

		// given
		fact := entitybuilders.NewDependencyFactBuilder().WithName("orphan").BuildFact()
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		_, err := c.Categorize([]entities.DependencyFact{fact}, entities.ImpactAssessment{})

		// then
		require.ErrorIs(t, err, categorizer.ErrMissingImpact)
		assert.Contains(t, err.Error(), "orphan")
	})

	t.Run("should follow category precedence for the overall category", func(t *testing.T) {
		t.Parallel()

		builder := entitybuilders.NewDependencyFactBuilder()
		patch := builder.WithName("a").WithImpact(entities.ImpactPatch).BuildFact()
		minor := builder.WithName("b").WithImpact(entities.ImpactMinor).BuildFact()
		major := builder.WithName("c").WithImpact(entities.ImpactMajor).BuildFact()
		security := builder.WithName("d").WithImpact(entities.ImpactPatch).WithSecurity(entities.SeverityLow).BuildFact()
		c := categorizer.New(entities.CategorizationOptions{})

		cases := []struct {
			facts    []entities.DependencyFact
			expected entities.Category
		}{
			{[]entities.DependencyFact{patch}, entities.CategoryPatch},
			{[]entities.DependencyFact{patch, minor}, entities.CategoryMinor},
			{[]entities.DependencyFact{minor, major, patch}, entities.CategoryMajor},
			{[]entities.DependencyFact{major, security, minor}, entities.CategorySecurity},
		}
		for _, tc := range cases {
			// when
			result, err := c.Categorize(tc.facts, entitybuilders.AssessmentFor(tc.facts...))

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result.Summary.PrimaryCategory)
		}
	})

	t.Run("should recommend minor for high risk security batches", func(t *testing.T) {
		t.Parallel()

		// given
		facts := []entities.DependencyFact{
			entitybuilders.NewDependencyFactBuilder().WithName("a").WithSecurity(entities.SeverityCritical).BuildFact(),
			entitybuilders.NewDependencyFactBuilder().WithName("b").WithSecurity(entities.SeverityModerate).BuildFact(),
		}
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		result, err := c.Categorize(facts, entitybuilders.AssessmentFor(facts...))

		// then
		require.NoError(t, err)
		assert.InDelta(t, 75.0, result.Summary.AverageRisk, 0.001)
		assert.Equal(t, entities.BumpMinor, result.Summary.RecommendedBump)
		assert.True(t, result.Summary.HasSecurity)
		assert.Equal(t, 1, result.Summary.HighPriorityCount)
	})

	t.Run("should recommend major when any change is breaking", func(t *testing.T) {
		t.Parallel()

		// given
		facts := []entities.DependencyFact{
			entitybuilders.NewDependencyFactBuilder().WithName("a").WithSecurity(entities.SeverityLow).BuildFact(),
			entitybuilders.NewDependencyFactBuilder().WithName("b").WithBreaking().BuildFact(),
		}
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		result, err := c.Categorize(facts, entitybuilders.AssessmentFor(facts...))

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BumpMajor, result.Summary.RecommendedBump)
	})

	t.Run("should defer to the semver recommendation otherwise", func(t *testing.T) {
		t.Parallel()

		// given
		facts := []entities.DependencyFact{
			entitybuilders.NewDependencyFactBuilder().WithName("a").WithImpact(entities.ImpactMinor).BuildFact(),
		}
		c := categorizer.New(entities.CategorizationOptions{})

		// when
		result, err := c.Categorize(facts, entitybuilders.AssessmentFor(facts...))

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BumpMinor, result.Summary.RecommendedBump)
		assert.Equal(t, entities.ConfidenceHigh, result.Summary.OverallConfidence)
		assert.Equal(t, 1, result.Summary.Counts[entities.CategoryMinor])
	})
}
