package entities

import (
	"fmt"
	"strings"
)

// BumpType is the semantic-versioning release category assigned to a package.
type BumpType string

const (
	BumpPatch BumpType = "patch"
	BumpMinor BumpType = "minor"
	BumpMajor BumpType = "major"
)

// Rank returns the total order patch < minor < major. Unknown values rank below patch.
func (b BumpType) Rank() int {
	switch b {
	case BumpPatch:
		return 1
	case BumpMinor:
		return 2 //nolint:mnd // ordinal
	case BumpMajor:
		return 3 //nolint:mnd // ordinal
	default:
		return 0
	}
}

// IsValid reports whether b is one of patch, minor or major.
func (b BumpType) IsValid() bool { return b.Rank() > 0 }

// MaxBump returns the higher-ranked of the two bump types.
func MaxBump(a, b BumpType) BumpType {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// MinBump returns the lower-ranked of the two valid bump types.
func MinBump(a, b BumpType) BumpType {
	if !b.IsValid() {
		return a
	}
	if !a.IsValid() || b.Rank() < a.Rank() {
		return b
	}
	return a
}

// ParseBumpType parses a bump type, case-insensitively.
func ParseBumpType(raw string) (BumpType, error) {
	b := BumpType(strings.ToLower(strings.TrimSpace(raw)))
	if !b.IsValid() {
		return "", fmt.Errorf("unknown bump type %q", raw)
	}
	return b, nil
}

// RiskLevel is a four-step ordinal risk scale.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns 0 (low) through 3 (critical). Unknown values rank as medium.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2 //nolint:mnd // ordinal
	case RiskCritical:
		return 3 //nolint:mnd // ordinal
	default:
		return 1
	}
}

// Score maps the level onto the 0–100 numeric risk scale.
func (r RiskLevel) Score() float64 {
	return float64(r.Rank()+1) * 25 //nolint:mnd // low=25 … critical=100
}

// Step moves the level by delta steps, clamped to [low, critical].
func (r RiskLevel) Step(delta int) RiskLevel {
	return riskFromRank(r.Rank() + delta)
}

// AtLeast returns r raised to floor when it ranks lower.
func (r RiskLevel) AtLeast(floor RiskLevel) RiskLevel {
	if floor.Rank() > r.Rank() {
		return floor
	}
	return r
}

func riskFromRank(rank int) RiskLevel {
	switch {
	case rank <= 0:
		return RiskLow
	case rank == 1:
		return RiskMedium
	case rank == 2: //nolint:mnd // ordinal
		return RiskHigh
	default:
		return RiskCritical
	}
}

// RiskFromScore buckets a 0–100 score: <20 low, <50 medium, <80 high, else critical.
func RiskFromScore(score float64) RiskLevel {
	switch {
	case score < 20: //nolint:mnd // bucket edge
		return RiskLow
	case score < 50: //nolint:mnd // bucket edge
		return RiskMedium
	case score < 80: //nolint:mnd // bucket edge
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Confidence is a three-step ordinal confidence scale.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Score maps high=3, medium=2, low=1.
func (c Confidence) Score() float64 {
	switch c {
	case ConfidenceHigh:
		return 3 //nolint:mnd // ordinal
	case ConfidenceMedium:
		return 2 //nolint:mnd // ordinal
	default:
		return 1
	}
}

// Degrade lowers confidence by one step, never below low.
func (c Confidence) Degrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceFromMean buckets a mean score: ≥2.5 high, ≥1.5 medium, else low.
func ConfidenceFromMean(mean float64) Confidence {
	switch {
	case mean >= 2.5: //nolint:mnd // bucket edge
		return ConfidenceHigh
	case mean >= 1.5: //nolint:mnd // bucket edge
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Severity is a security advisory severity.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders none < low < moderate < high < critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2 //nolint:mnd // ordinal
	case SeverityHigh:
		return 3 //nolint:mnd // ordinal
	case SeverityCritical:
		return 4 //nolint:mnd // ordinal
	default:
		return 0
	}
}

// MaxSeverity returns the higher-ranked severity.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseSeverity accepts the advisory vocabularies used by GitHub, npm and OSV.
// Unknown text maps to none.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return SeverityLow
	case "moderate", "medium":
		return SeverityModerate
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityNone
	}
}

// SemverImpact is the magnitude of a version change.
type SemverImpact string

const (
	ImpactNone       SemverImpact = "none"
	ImpactPrerelease SemverImpact = "prerelease"
	ImpactPatch      SemverImpact = "patch"
	ImpactMinor      SemverImpact = "minor"
	ImpactMajor      SemverImpact = "major"
)

// Rank orders none < prerelease < patch < minor < major.
func (i SemverImpact) Rank() int {
	switch i {
	case ImpactPrerelease:
		return 1
	case ImpactPatch:
		return 2 //nolint:mnd // ordinal
	case ImpactMinor:
		return 3 //nolint:mnd // ordinal
	case ImpactMajor:
		return 4 //nolint:mnd // ordinal
	default:
		return 0
	}
}

// Bump is the release bump an impact recommends on its own.
func (i SemverImpact) Bump() BumpType {
	switch i {
	case ImpactMajor:
		return BumpMajor
	case ImpactMinor:
		return BumpMinor
	default:
		return BumpPatch
	}
}

// Category is the primary or secondary classification of a dependency update.
type Category string

const (
	CategorySecurity Category = "security"
	CategoryMajor    Category = "major"
	CategoryMinor    Category = "minor"
	CategoryPatch    Category = "patch"
)

// Precedence orders patch < minor < major < security.
func (c Category) Precedence() int {
	switch c {
	case CategorySecurity:
		return 4 //nolint:mnd // ordinal
	case CategoryMajor:
		return 3 //nolint:mnd // ordinal
	case CategoryMinor:
		return 2 //nolint:mnd // ordinal
	case CategoryPatch:
		return 1
	default:
		return 0
	}
}

// CategoryFromImpact maps a semver impact onto its category; prerelease and none are patch.
func CategoryFromImpact(impact SemverImpact) Category {
	switch impact {
	case ImpactMajor:
		return CategoryMajor
	case ImpactMinor:
		return CategoryMinor
	default:
		return CategoryPatch
	}
}
