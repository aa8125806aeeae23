//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// ChangesetCandidateBuilder helps create test changeset candidates with a fluent interface.
type ChangesetCandidateBuilder struct {
	*testkit.BaseBuilder
	id           string
	summary      string
	releases     []entities.Release
	dependencies []string
	security     bool
	breaking     bool
}

// NewChangesetCandidateBuilder creates a new builder with a single patch release of "web".
func NewChangesetCandidateBuilder() *ChangesetCandidateBuilder {
	return &ChangesetCandidateBuilder{
		BaseBuilder:  testkit.NewBaseBuilder(),
		id:           "candidate-1",
		summary:      "Update dependencies",
		releases:     []entities.Release{{Package: "web", Bump: entities.BumpPatch}},
		dependencies: []string{"lodash"},
	}
}

// WithID sets the candidate id.
func (b *ChangesetCandidateBuilder) WithID(id string) *ChangesetCandidateBuilder {
	b.id = id
	return b
}

// WithSummary sets the summary text.
func (b *ChangesetCandidateBuilder) WithSummary(summary string) *ChangesetCandidateBuilder {
	b.summary = summary
	return b
}

// WithReleases replaces the release list.
func (b *ChangesetCandidateBuilder) WithReleases(releases ...entities.Release) *ChangesetCandidateBuilder {
	b.releases = releases
	return b
}

// WithDependencies replaces the affected dependency names.
func (b *ChangesetCandidateBuilder) WithDependencies(names ...string) *ChangesetCandidateBuilder {
	b.dependencies = names
	return b
}

// WithSecurity marks the candidate as a security update.
func (b *ChangesetCandidateBuilder) WithSecurity() *ChangesetCandidateBuilder {
	b.security = true
	return b
}

// WithBreaking marks the candidate as breaking.
func (b *ChangesetCandidateBuilder) WithBreaking() *ChangesetCandidateBuilder {
	b.breaking = true
	return b
}

// Build creates the candidate (satisfies testkit.Builder interface).
func (b *ChangesetCandidateBuilder) Build() interface{} {
	return b.BuildCandidate()
}

// BuildCandidate creates the candidate with a concrete return type.
func (b *ChangesetCandidateBuilder) BuildCandidate() entities.ChangesetCandidate {
	packages := make([]string, 0, len(b.releases))
	for _, r := range b.releases {
		packages = append(packages, r.Package)
	}
	return entities.ChangesetCandidate{
		ID:       b.id,
		FileName: b.id + ".md",
		Packages: packages,
		Summary:  b.summary,
		Releases: append([]entities.Release(nil), b.releases...),
		Metadata: entities.ChangesetMetadata{
			Security:     b.security,
			Breaking:     b.breaking,
			Dependencies: append([]string(nil), b.dependencies...),
		},
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *ChangesetCandidateBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	fresh := NewChangesetCandidateBuilder()
	fresh.BaseBuilder = b.BaseBuilder
	*b = *fresh
	return b
}

// Clone creates a deep copy of the ChangesetCandidateBuilder.
func (b *ChangesetCandidateBuilder) Clone() testkit.Builder {
	clone := *b
	clone.BaseBuilder = b.BaseBuilder.Clone().(*testkit.BaseBuilder)
	clone.releases = append([]entities.Release(nil), b.releases...)
	clone.dependencies = append([]string(nil), b.dependencies...)
	return &clone
}
