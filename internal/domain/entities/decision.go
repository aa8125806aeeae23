package entities

// BreakingIndicator is one signal from a breaking-change analysis.
type BreakingIndicator struct {
	Dependency  string
	Severity    Severity
	Description string
}

// BreakingChangeAnalysis is an optional sub-analysis fed to the decision engine.
type BreakingChangeAnalysis struct {
	HasBreakingChanges bool
	Indicators         []BreakingIndicator
}

// Vulnerability is one advisory affecting a dependency.
type Vulnerability struct {
	Dependency string
	Advisory   string
	Severity   Severity
}

// SecurityAnalysis is an optional sub-analysis fed to the decision engine.
type SecurityAnalysis struct {
	Vulnerabilities []Vulnerability
}

// HighestSeverity returns the most severe vulnerability severity.
func (a SecurityAnalysis) HighestSeverity() Severity {
	highest := SeverityNone
	for _, v := range a.Vulnerabilities {
		highest = MaxSeverity(highest, v.Severity)
	}
	return highest
}

// DecisionInput is everything the decision engine consumes for one consolidation unit.
type DecisionInput struct {
	Categorization  CategorizationResult
	Impact          ImpactAssessment
	Manager         Manager
	Grouped         bool
	DependencyCount int
	Breaking        *BreakingChangeAnalysis
	Security        *SecurityAnalysis
	// RiskScore overrides the categorization average risk when set.
	RiskScore *float64
}

// RiskAssessment is the numeric and bucketed risk of a decision.
type RiskAssessment struct {
	Level   RiskLevel
	Score   float64
	Factors []string
}

// AlternativeDecision is a recommendation that was considered and not taken.
type AlternativeDecision struct {
	Bump       BumpType
	Confidence Confidence
	Source     string
	Reasoning  string
}

// BumpDecision is the final release bump for one consolidation unit.
type BumpDecision struct {
	Bump            BumpType
	Confidence      Confidence
	Reasoning       []string
	OverriddenRules []string
	Risk            RiskAssessment
	Alternatives    []AlternativeDecision
}
