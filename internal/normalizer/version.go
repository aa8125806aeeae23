package normalizer

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"golang.org/x/mod/semver"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// VersionChange is the comparison of two version strings.
type VersionChange struct {
	Impact     entities.SemverImpact
	Downgrade  bool
	Prerelease bool
	Parsed     bool
	Reason     string
}

// CompareVersions classifies the change from → to. Go modules are compared with
// Go's own semver rules (v prefix, pseudo-versions, +incompatible); every other
// ecosystem goes through a tolerant parser that accepts ranges and short forms.
func CompareVersions(manager entities.Manager, from, to string) VersionChange {
	if manager == entities.ManagerGoMod {
		if change, ok := compareGoVersions(from, to); ok {
			return change
		}
	}
	if manager == entities.ManagerDocker {
		from, to = stripCommonVariant(from, to)
	}
	return compareLooseVersions(from, to)
}

func compareGoVersions(from, to string) (VersionChange, bool) {
	cur := canonicalGoVersion(from)
	next := canonicalGoVersion(to)
	if !semver.IsValid(cur) || !semver.IsValid(next) {
		return VersionChange{}, false
	}

	change := VersionChange{Parsed: true, Prerelease: semver.Prerelease(next) != ""}
	cmp := semver.Compare(next, cur)
	if cmp == 0 {
		change.Impact = entities.ImpactNone
		change.Reason = fmt.Sprintf("%s and %s are the same Go module version", from, to)
		return change, true
	}
	lo, hi := cur, next
	if cmp < 0 {
		change.Downgrade = true
		lo, hi = next, cur
	}

	switch {
	case semver.Major(lo) != semver.Major(hi):
		change.Impact = entities.ImpactMajor
	case semver.MajorMinor(lo) != semver.MajorMinor(hi):
		change.Impact = entities.ImpactMinor
	case trimPrerelease(lo) != trimPrerelease(hi):
		change.Impact = entities.ImpactPatch
	default:
		change.Impact = entities.ImpactPrerelease
	}
	change.Reason = fmt.Sprintf("Go module version %s → %s is a %s change", from, to, change.Impact)
	return change, true
}

func canonicalGoVersion(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.TrimSuffix(v, "+incompatible")
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

func trimPrerelease(v string) string {
	if pre := semver.Prerelease(v); pre != "" {
		return strings.TrimSuffix(semver.Canonical(v), pre)
	}
	return semver.Canonical(v)
}

func compareLooseVersions(from, to string) VersionChange {
	cur, curErr := parseLoose(from)
	next, nextErr := parseLoose(to)
	if curErr != nil || nextErr != nil {
		return VersionChange{
			Impact: entities.ImpactPatch,
			Reason: fmt.Sprintf("versions %q → %q are not semantic versions, assuming patch", from, to),
		}
	}

	change := VersionChange{Parsed: true, Prerelease: next.Prerelease() != ""}
	cmp := next.Compare(cur)
	if cmp == 0 {
		change.Impact = entities.ImpactNone
		change.Reason = fmt.Sprintf("%s and %s are the same version", from, to)
		return change
	}
	lo, hi := cur, next
	if cmp < 0 {
		change.Downgrade = true
		lo, hi = next, cur
	}

	switch {
	case lo.Major() != hi.Major():
		change.Impact = entities.ImpactMajor
	case lo.Minor() != hi.Minor():
		change.Impact = entities.ImpactMinor
	case lo.Patch() != hi.Patch():
		change.Impact = entities.ImpactPatch
	default:
		change.Impact = entities.ImpactPrerelease
	}
	change.Reason = fmt.Sprintf("version %s → %s is a %s change", from, to, change.Impact)
	return change
}

// parseLoose strips range operators (^1.2.3, ~1.2, >=1.0.0, ==2.1) before parsing.
func parseLoose(raw string) (*mm.Version, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimLeft(v, "^~=<>! ")
	if idx := strings.IndexAny(v, " ,|"); idx >= 0 {
		v = v[:idx]
	}
	if v == "" {
		return nil, fmt.Errorf("empty version %q", raw)
	}
	return mm.NewVersion(v)
}

// stripCommonVariant drops an image variant suffix shared by both tags
// (3.19-alpine → 3.20-alpine compares 3.19 with 3.20).
func stripCommonVariant(from, to string) (string, string) {
	fromBase, fromVariant, fromOK := strings.Cut(from, "-")
	toBase, toVariant, toOK := strings.Cut(to, "-")
	if fromOK && toOK && fromVariant == toVariant {
		return fromBase, toBase
	}
	return from, to
}

// ImpactFromUpdateType parses Dependabot's "version-update:semver-<level>" strings.
func ImpactFromUpdateType(raw string) (entities.SemverImpact, bool) {
	level := strings.ToLower(strings.TrimSpace(raw))
	level = strings.TrimPrefix(level, "version-update:")
	level = strings.TrimPrefix(level, "semver-")
	switch level {
	case "major":
		return entities.ImpactMajor, true
	case "minor":
		return entities.ImpactMinor, true
	case "patch":
		return entities.ImpactPatch, true
	case "prerelease":
		return entities.ImpactPrerelease, true
	default:
		return "", false
	}
}
