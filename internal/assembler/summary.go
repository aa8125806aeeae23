package assembler

import (
	"fmt"
	"strings"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

func summarize(
	deps []entities.CategorizedDependency,
	relationships []entities.PackageRelationship,
	decision entities.BumpDecision,
) string {
	var b strings.Builder
	b.WriteString(title(deps))
	b.WriteString("\n")

	if len(deps) > 1 {
		b.WriteString("\n")
		for _, dep := range deps {
			fmt.Fprintf(&b, "- %s\n", describe(dep))
		}
	}

	if len(relationships) > 0 {
		b.WriteString("\nRelated packages:\n")
		shown := relationships
		if len(shown) > maxSummaryRelationships {
			shown = shown[:maxSummaryRelationships]
		}
		for _, rel := range shown {
			fmt.Fprintf(&b, "- %s → %s (%s)\n", rel.Source, rel.Target, rel.Type)
		}
		if extra := len(relationships) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "- …and %d more\n", extra)
		}
	}

	if decision.Bump.IsValid() {
		fmt.Fprintf(&b, "\nRelease type: %s (confidence %s, risk %s)\n",
			decision.Bump, decision.Confidence, decision.Risk.Level)
	}
	return strings.TrimSpace(b.String())
}

func title(deps []entities.CategorizedDependency) string {
	security, breaking := false, false
	for _, dep := range deps {
		security = security || dep.Primary == entities.CategorySecurity
		breaking = breaking || dep.Fact.Breaking
	}
	var prefix string
	switch {
	case security && breaking:
		prefix = "Security (breaking): "
	case security:
		prefix = "Security: "
	case breaking:
		prefix = "Breaking: "
	}

	switch len(deps) {
	case 0:
		return prefix + "Update internal dependencies"
	case 1:
		return prefix + "Update " + describe(deps[0])
	default:
		return fmt.Sprintf("%sUpdate %d dependencies", prefix, len(deps))
	}
}

func describe(dep entities.CategorizedDependency) string {
	fact := dep.Fact
	text := fmt.Sprintf("`%s`", fact.Name)
	if fact.CurrentVersion != "" || fact.NewVersion != "" {
		text += fmt.Sprintf(" from %s to %s", orUnknown(fact.CurrentVersion), orUnknown(fact.NewVersion))
	}
	var tags []string
	if fact.Security && fact.Severity != entities.SeverityNone {
		tags = append(tags, fmt.Sprintf("%s severity", fact.Severity))
	}
	if len(fact.Advisories) > 0 {
		tags = append(tags, strings.Join(fact.Advisories, ", "))
	}
	if fact.Breaking {
		tags = append(tags, "breaking")
	}
	if len(tags) > 0 {
		text += " (" + strings.Join(tags, "; ") + ")"
	}
	return text
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// MergedSummary describes a candidate produced by merging several others.
func MergedSummary(packages, dependencies []string, sources int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Update %d %s across %d %s\n",
		len(dependencies), plural(len(dependencies), "dependency", "dependencies"),
		len(packages), plural(len(packages), "package", "packages"))
	if len(dependencies) > 0 {
		b.WriteString("\n")
		for _, dep := range dependencies {
			fmt.Fprintf(&b, "- `%s`\n", dep)
		}
	}
	fmt.Fprintf(&b, "\nConsolidated from %d changesets.", sources)
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
