//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// DependencyFactBuilder helps create test dependency facts with a fluent interface.
type DependencyFactBuilder struct {
	*testkit.BaseBuilder
	name       string
	manager    entities.Manager
	currentVer string
	newVer     string
	impact     entities.SemverImpact
	security   bool
	severity   entities.Severity
	breaking   bool
	downgrade  bool
	prerelease bool
	scope      string
}

// NewDependencyFactBuilder creates a new builder with a patch-level npm update as default.
func NewDependencyFactBuilder() *DependencyFactBuilder {
	return &DependencyFactBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "test-dependency",
		manager:     entities.ManagerNpm,
		currentVer:  "1.0.0",
		newVer:      "1.0.1",
		impact:      entities.ImpactPatch,
		severity:    entities.SeverityNone,
	}
}

// WithName sets the dependency name.
func (b *DependencyFactBuilder) WithName(name string) *DependencyFactBuilder {
	b.name = name
	return b
}

// WithManager sets the package manager.
func (b *DependencyFactBuilder) WithManager(manager entities.Manager) *DependencyFactBuilder {
	b.manager = manager
	return b
}

// WithVersions sets the current and new versions.
func (b *DependencyFactBuilder) WithVersions(current, next string) *DependencyFactBuilder {
	b.currentVer = current
	b.newVer = next
	return b
}

// WithImpact sets the semver impact.
func (b *DependencyFactBuilder) WithImpact(impact entities.SemverImpact) *DependencyFactBuilder {
	b.impact = impact
	return b
}

// WithSecurity marks the fact as a security update of the given severity.
func (b *DependencyFactBuilder) WithSecurity(severity entities.Severity) *DependencyFactBuilder {
	b.security = true
	b.severity = severity
	return b
}

// WithBreaking marks the fact as a breaking change.
func (b *DependencyFactBuilder) WithBreaking() *DependencyFactBuilder {
	b.breaking = true
	return b
}

// WithDowngrade marks the fact as a downgrade.
func (b *DependencyFactBuilder) WithDowngrade() *DependencyFactBuilder {
	b.downgrade = true
	return b
}

// WithPrerelease marks the target version as a prerelease.
func (b *DependencyFactBuilder) WithPrerelease() *DependencyFactBuilder {
	b.prerelease = true
	return b
}

// WithScope sets the workspace scope.
func (b *DependencyFactBuilder) WithScope(scope string) *DependencyFactBuilder {
	b.scope = scope
	return b
}

// Build creates the fact (satisfies testkit.Builder interface).
func (b *DependencyFactBuilder) Build() interface{} {
	return b.BuildFact()
}

// BuildFact creates the fact with a concrete return type.
func (b *DependencyFactBuilder) BuildFact() entities.DependencyFact {
	return entities.DependencyFact{
		Name:           b.name,
		Manager:        b.manager,
		CurrentVersion: b.currentVer,
		NewVersion:     b.newVer,
		Impact:         b.impact,
		Security:       b.security,
		Severity:       b.severity,
		Breaking:       b.breaking,
		Downgrade:      b.downgrade,
		Prerelease:     b.prerelease,
		Scope:          b.scope,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *DependencyFactBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	fresh := NewDependencyFactBuilder()
	fresh.BaseBuilder = b.BaseBuilder
	*b = *fresh
	return b
}

// Clone creates a deep copy of the DependencyFactBuilder.
func (b *DependencyFactBuilder) Clone() testkit.Builder {
	clone := *b
	clone.BaseBuilder = b.BaseBuilder.Clone().(*testkit.BaseBuilder)
	return &clone
}

// AssessmentFor builds an impact assessment with one high-confidence entry per fact.
func AssessmentFor(facts ...entities.DependencyFact) entities.ImpactAssessment {
	assessment := entities.ImpactAssessment{
		OverallImpact:   entities.ImpactNone,
		RecommendedBump: entities.BumpPatch,
		Confidence:      entities.ConfidenceHigh,
	}
	for _, fact := range facts {
		assessment.Dependencies = append(assessment.Dependencies, entities.DependencyImpact{
			Name:       fact.Name,
			Impact:     fact.Impact,
			Confidence: entities.ConfidenceHigh,
		})
		if fact.Impact.Rank() > assessment.OverallImpact.Rank() {
			assessment.OverallImpact = fact.Impact
		}
	}
	assessment.RecommendedBump = assessment.OverallImpact.Bump()
	return assessment
}
