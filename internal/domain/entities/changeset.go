package entities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// Release is one package→bump entry of a changeset.
type Release struct {
	Package string
	Bump    BumpType
}

// ChangesetMetadata carries the audit trail of a candidate.
type ChangesetMetadata struct {
	Grouped      bool
	Security     bool
	Breaking     bool
	Dependencies []string
	Reasoning    []string
	// MergedFrom lists the ids of the candidates a merged candidate replaced.
	MergedFrom []string
}

// ChangesetCandidate is a changeset that has not been persisted yet.
type ChangesetCandidate struct {
	ID            string
	FileName      string
	Packages      []string
	Summary       string
	Releases      []Release
	Relationships []PackageRelationship
	Metadata      ChangesetMetadata
	Decision      *BumpDecision
}

// Weight is the number of original candidates this candidate stands for.
func (c ChangesetCandidate) Weight() int {
	if n := len(c.Metadata.MergedFrom); n > 0 {
		return n
	}
	return 1
}

// ReleaseFor returns the bump of the named package.
func (c ChangesetCandidate) ReleaseFor(pkg string) (BumpType, bool) {
	for _, r := range c.Releases {
		if r.Package == pkg {
			return r.Bump, true
		}
	}
	return "", false
}

// ExistingChangeset is a changeset previously persisted by an earlier run or by a person.
type ExistingChangeset struct {
	FileName   string
	Releases   []Release
	Summary    string
	ModifiedAt time.Time
}

// Age is the time elapsed since the changeset was last modified.
func (e ExistingChangeset) Age(now time.Time) time.Duration {
	return now.Sub(e.ModifiedAt)
}

// SortReleases returns a copy of releases sorted by package name (stable).
func SortReleases(releases []Release) []Release {
	sorted := make([]Release, len(releases))
	copy(sorted, releases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Package < sorted[j].Package
	})
	return sorted
}

// RenderChangeset produces the on-disk form: a front-matter block of
// `'<package>': <bump>` lines sorted by package, a blank line and the summary.
func RenderChangeset(releases []Release, summary string) string {
	var b strings.Builder
	b.WriteString(frontMatterDelimiter + "\n")
	for _, r := range SortReleases(releases) {
		fmt.Fprintf(&b, "'%s': %s\n", strings.ReplaceAll(r.Package, "'", "''"), r.Bump)
	}
	b.WriteString(frontMatterDelimiter + "\n\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	return b.String()
}

// ParseChangeset reads the front matter and summary of a changeset file.
func ParseChangeset(content string) ([]Release, string, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterDelimiter+"\n") {
		return nil, "", errors.New("changeset has no front matter")
	}
	rest := strings.TrimPrefix(normalized, frontMatterDelimiter+"\n")
	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	var header, body string
	switch {
	case strings.HasPrefix(rest, frontMatterDelimiter):
		body = strings.TrimPrefix(rest, frontMatterDelimiter)
	case end < 0:
		return nil, "", errors.New("changeset front matter is not terminated")
	default:
		header = rest[:end]
		body = rest[end+len("\n"+frontMatterDelimiter):]
	}

	var raw map[string]string
	if err := yaml.Unmarshal([]byte(header), &raw); err != nil {
		return nil, "", fmt.Errorf("failed to parse changeset front matter: %w", err)
	}

	releases := make([]Release, 0, len(raw))
	for pkg, value := range raw {
		bump, err := ParseBumpType(value)
		if err != nil {
			return nil, "", fmt.Errorf("package %q: %w", pkg, err)
		}
		releases = append(releases, Release{Package: pkg, Bump: bump})
	}

	return SortReleases(releases), strings.TrimSpace(body), nil
}
