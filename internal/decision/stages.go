package decision

import (
	"regexp"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

func (e *Engine) baseStage(t *trail, summary entities.CategorizationSummary, semverBump, categoryBump entities.BumpType) {
	if summary.OverallConfidence == entities.ConfidenceHigh {
		t.bump = categoryBump
		t.note("base: categorization recommends %s with high confidence", categoryBump)
		return
	}
	t.bump = entities.MaxBump(semverBump, categoryBump)
	t.note(
		"base: categorization confidence is %s, taking the higher of semver %s and categorization %s",
		summary.OverallConfidence, semverBump, categoryBump,
	)
}

func (e *Engine) securityStage(t *trail, input entities.DecisionInput) {
	if !e.policy.SecurityTakesPrecedence || !hasSecurity(input) {
		return
	}
	severity := highestSeverity(input)
	minimum, ok := e.securityMinimum(severity)
	if !ok {
		t.note("security: no minimum bump configured for severity %s", severity)
		return
	}
	if minimum.Rank() > t.bump.Rank() {
		t.set(RuleSecurityPrecedence, minimum, "%s severity requires at least %s", severity, minimum)
		return
	}
	t.note("security: %s already satisfies the %s minimum for %s severity", t.bump, minimum, severity)
}

// securityMinimum looks up the configured minimum; a security update without a
// known severity is treated as moderate.
func (e *Engine) securityMinimum(severity entities.Severity) (entities.BumpType, bool) {
	if severity == entities.SeverityNone {
		severity = entities.SeverityModerate
	}
	minimum, ok := e.policy.SecurityMinimumBump[severity]
	return minimum, ok && minimum.IsValid()
}

func highestSeverity(input entities.DecisionInput) entities.Severity {
	highest := entities.SeverityNone
	for _, dep := range input.Categorization.Dependencies {
		if dep.Fact.Security {
			highest = entities.MaxSeverity(highest, dep.Fact.Severity)
		}
	}
	if input.Security != nil {
		highest = entities.MaxSeverity(highest, input.Security.HighestSeverity())
	}
	return highest
}

func (e *Engine) breakingStage(t *trail, input entities.DecisionInput) {
	if hasBreaking(input) && e.policy.BreakingChangesAlwaysMajor {
		t.set(RuleBreakingOverride, entities.BumpMajor, "breaking changes always release as major")
	}
	if input.Breaking == nil {
		return
	}
	for _, indicator := range input.Breaking.Indicators {
		if indicator.Severity == entities.SeverityCritical {
			t.set(RuleBreakingOverride, entities.BumpMajor, "critical breaking indicator on %s", indicator.Dependency)
			return
		}
	}
}

func (e *Engine) managerStage(t *trail, manager entities.Manager) {
	rule, ok := e.policy.ManagerRules[manager]
	if !ok {
		return
	}
	applied := false
	if rule.MajorAsMinor && t.bump == entities.BumpMajor {
		applied = t.set(RuleManagerMajorAsMinor, entities.BumpMinor, "%s releases majors as minor", manager)
	}
	if rule.MaxBump.IsValid() && t.bump.Rank() > rule.MaxBump.Rank() {
		applied = t.set(RuleManagerMaxBump, rule.MaxBump, "%s is capped at %s", manager, rule.MaxBump) || applied
	}
	if rule.AllowDowngrade && !applied && rule.DefaultBump.IsValid() && rule.DefaultBump.Rank() < t.bump.Rank() {
		t.set(RuleManagerDefault, rule.DefaultBump, "%s allows falling back to its default", manager)
	}
}

func (e *Engine) organizationStage(t *trail, input entities.DecisionInput) {
	org := e.policy.Organization
	if org.ConservativeMode && t.bump == entities.BumpMajor && !hasSecurity(input) && !hasBreaking(input) {
		t.set(RuleConservativeMode, entities.BumpMinor, "conservative mode holds non-breaking majors at minor")
	}

	names := dependencyNames(input)
	for _, rule := range org.DependencyRules {
		re, err := e.compile(rule.Pattern)
		if err != nil {
			logger.Warnf("[decision] Skipping invalid dependency pattern %q: %v", rule.Pattern, err)
			continue
		}
		matched, ok := firstMatch(re, names)
		if !ok {
			continue
		}
		name := RuleDependencyPattern + ":" + rule.Pattern
		if rule.Force.IsValid() {
			if !t.set(name, rule.Force, "%s matches and forces %s", matched, rule.Force) {
				t.note("%s: %s matches and keeps %s", name, matched, t.bump)
			}
			return
		}
		if rule.MaxBump.IsValid() && t.bump.Rank() > rule.MaxBump.Rank() {
			t.set(name, rule.MaxBump, "%s matches and caps at %s", matched, rule.MaxBump)
		}
	}
}

func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.patterns.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.patterns.Add(pattern, re)
	return re, nil
}

func dependencyNames(input entities.DecisionInput) []string {
	names := make([]string, 0, len(input.Categorization.Dependencies))
	for _, dep := range input.Categorization.Dependencies {
		names = append(names, dep.Fact.Name)
	}
	return names
}

func firstMatch(re *regexp.Regexp, names []string) (string, bool) {
	for _, name := range names {
		if re.MatchString(name) {
			return name, true
		}
	}
	return "", false
}

func riskScore(input entities.DecisionInput) float64 {
	if input.RiskScore != nil {
		return *input.RiskScore
	}
	return input.Categorization.Summary.AverageRisk
}

func (e *Engine) riskStage(t *trail, score float64) {
	thresholds := e.policy.Risk
	if !thresholds.Enabled {
		return
	}
	switch {
	case score > thresholds.ForceMajorAbove:
		t.set(RuleRiskForceMajor, entities.BumpMajor, "risk score %.1f above %.1f", score, thresholds.ForceMajorAbove)
	case t.bump == entities.BumpPatch && score > thresholds.PatchCeiling:
		t.set(RuleRiskRatchet, entities.BumpMinor, "risk score %.1f above the patch ceiling %.1f", score, thresholds.PatchCeiling)
	case t.bump == entities.BumpMinor && score > thresholds.MinorCeiling:
		t.set(RuleRiskRatchet, entities.BumpMajor, "risk score %.1f above the minor ceiling %.1f", score, thresholds.MinorCeiling)
	}
}

func (e *Engine) groupedStage(t *trail, input entities.DecisionInput) {
	switch e.policy.GroupedStrategy {
	case entities.GroupedConservative:
		if t.bump == entities.BumpMajor {
			t.set(RuleGroupedConservative, entities.BumpMinor, "grouped updates release majors as minor")
		}
	case entities.GroupedMajority:
		if bump, ok := e.majorityBump(input); ok {
			t.set(RuleGroupedMajority, bump, "most dependencies in the group call for %s", bump)
		}
	case entities.GroupedHighest:
		t.note("grouped: keeping the highest bump %s", t.bump)
	}
}

// majorityBump counts the bump each dependency calls for on its own. Ties go
// to the higher bump so the outcome does not depend on input order.
func (e *Engine) majorityBump(input entities.DecisionInput) (entities.BumpType, bool) {
	counts := map[entities.BumpType]int{}
	for _, dep := range input.Categorization.Dependencies {
		counts[e.individualBump(dep)]++
	}
	if len(counts) == 0 {
		return "", false
	}
	bumps := make([]entities.BumpType, 0, len(counts))
	for bump := range counts {
		bumps = append(bumps, bump)
	}
	sort.Slice(bumps, func(i, j int) bool {
		if counts[bumps[i]] != counts[bumps[j]] {
			return counts[bumps[i]] > counts[bumps[j]]
		}
		return bumps[i].Rank() > bumps[j].Rank()
	})
	return bumps[0], true
}

func (e *Engine) individualBump(dep entities.CategorizedDependency) entities.BumpType {
	if dep.Fact.Breaking {
		return entities.BumpMajor
	}
	bump := dep.Fact.Impact.Bump()
	if dep.Fact.Security {
		if minimum, ok := e.securityMinimum(dep.Fact.Severity); ok {
			bump = entities.MaxBump(bump, minimum)
		}
	}
	return bump
}
