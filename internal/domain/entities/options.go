package entities

import "time"

// ManagerOverride remaps categories and scales risk for one package manager.
type ManagerOverride struct {
	CategoryRemap map[Category]Category
	// RiskFactor > 1 raises risk by round(factor-1) steps, < 1 lowers it by
	// round((1-factor)*2) steps. Zero means no adjustment.
	RiskFactor float64
}

// CategorizationOptions configures the categorization engine.
type CategorizationOptions struct {
	PrereleaseLowersRisk bool
	ManagerOverrides     map[Manager]ManagerOverride
}

// ManagerRule is the decision-engine policy of one package manager.
type ManagerRule struct {
	MajorAsMinor   bool
	MaxBump        BumpType // empty means uncapped
	DefaultBump    BumpType
	AllowDowngrade bool
}

// DependencyRule is an organization rule keyed by a dependency-name regular expression.
// A rule with Force set stops further evaluation when it matches; MaxBump caps.
type DependencyRule struct {
	Pattern string
	Force   BumpType
	MaxBump BumpType
}

// OrganizationRules is the organization-wide part of the decision policy.
type OrganizationRules struct {
	ConservativeMode bool
	DependencyRules  []DependencyRule
}

// RiskThresholds drive the risk-based adjustment stage. Comparisons are strict.
type RiskThresholds struct {
	Enabled         bool
	ForceMajorAbove float64
	PatchCeiling    float64
	MinorCeiling    float64
}

// GroupedBumpStrategy is how a grouped update resolves its final bump.
type GroupedBumpStrategy string

const (
	GroupedHighest      GroupedBumpStrategy = "highest"
	GroupedConservative GroupedBumpStrategy = "conservative"
	GroupedMajority     GroupedBumpStrategy = "majority"
)

// DecisionPolicy is the fully-populated decision-engine configuration.
type DecisionPolicy struct {
	SecurityTakesPrecedence    bool
	BreakingChangesAlwaysMajor bool
	SecurityMinimumBump        map[Severity]BumpType
	ManagerRules               map[Manager]ManagerRule
	Risk                       RiskThresholds
	Organization               OrganizationRules
	GroupedStrategy            GroupedBumpStrategy
}

// GroupingOptions configures the package relationship grouper.
type GroupingOptions struct {
	AllowSeparateChangesets bool
	EnableGrouping          bool
	IncludeDevDependencies  bool
	RootPackage             string
}

// MergeStrategy controls how eagerly eligible candidates are merged.
type MergeStrategy string

const (
	MergeDisabled     MergeStrategy = "disabled"
	MergeConservative MergeStrategy = "conservative" // low-risk merges only
	MergeAggressive   MergeStrategy = "aggressive"   // low and medium risk
)

// DedupOptions configures the deduplication and merge engine.
type DedupOptions struct {
	ContentDedup        bool
	SemanticDedup       bool
	Merge               bool
	ExistingCheck       bool
	Validate            bool
	SimilarityThreshold float64
	MergeStrategy       MergeStrategy
	MaxGroupSize        int
	MaxExistingAge      time.Duration
}

// SourceOptions selects the fact collaborators of a run.
type SourceOptions struct {
	Root             string // repository checkout, set at run time
	FactsFile        string
	Terraform        bool
	TerraformBaseRef string
}

// OutputOptions controls where changesets are written.
type OutputOptions struct {
	Directory  string
	FilePrefix string
}

// GitHubOptions points at a remote repository holding persisted changesets.
type GitHubOptions struct {
	Repository string // owner/name
	Branch     string
	Token      string
}
