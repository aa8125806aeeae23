package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"dario.cat/mergo"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultSimilarityThreshold = 0.8
	defaultMaxGroupSize        = 5
	defaultMaxExistingAge      = 7 * 24 * time.Hour
	defaultPatchCeiling        = 75
	defaultNoThreshold         = 100
)

// Settings is the resolved configuration of a run. Every field is populated.
type Settings struct {
	Sources        SourceOptions
	Categorization CategorizationOptions
	Decision       DecisionPolicy
	Grouping       GroupingOptions
	Dedup          DedupOptions
	Output         OutputOptions
	GitHub         GitHubOptions
}

// FileSettings is the YAML schema of the configuration file. Pointer fields
// distinguish "not set" from zero values so that defaults can be layered underneath.
type FileSettings struct {
	Sources        SourcesFile        `yaml:"sources"`
	Categorization CategorizationFile `yaml:"categorization"`
	Decision       DecisionFile       `yaml:"decision"`
	Grouping       GroupingFile       `yaml:"grouping"`
	Deduplication  DeduplicationFile  `yaml:"deduplication"`
	Output         OutputFile         `yaml:"output"`
	GitHub         GitHubFile         `yaml:"github"`
}

type SourcesFile struct {
	FactsFile        *string `yaml:"facts_file"`
	Terraform        *bool   `yaml:"terraform"`
	TerraformBaseRef *string `yaml:"terraform_base_ref"`
}

type ManagerOverrideFile struct {
	Remap      map[string]string `yaml:"remap"`
	RiskFactor *float64          `yaml:"risk_factor"`
}

type CategorizationFile struct {
	PrereleaseLowersRisk *bool                          `yaml:"prerelease_lowers_risk"`
	Managers             map[string]ManagerOverrideFile `yaml:"managers"`
}

type ManagerRuleFile struct {
	MajorAsMinor   *bool   `yaml:"major_as_minor"`
	MaxBump        *string `yaml:"max_bump"`
	DefaultBump    *string `yaml:"default_bump"`
	AllowDowngrade *bool   `yaml:"allow_downgrade"`
}

type DependencyRuleFile struct {
	Pattern string `yaml:"pattern"`
	Force   string `yaml:"force"`
	MaxBump string `yaml:"max_bump"`
}

type RiskFile struct {
	Enabled         *bool    `yaml:"enabled"`
	ForceMajorAbove *float64 `yaml:"force_major_above"`
	PatchCeiling    *float64 `yaml:"patch_ceiling"`
	MinorCeiling    *float64 `yaml:"minor_ceiling"`
}

type OrganizationFile struct {
	ConservativeMode *bool                `yaml:"conservative_mode"`
	DependencyRules  []DependencyRuleFile `yaml:"dependency_rules"`
}

type DecisionFile struct {
	SecurityTakesPrecedence    *bool                      `yaml:"security_takes_precedence"`
	BreakingChangesAlwaysMajor *bool                      `yaml:"breaking_changes_always_major"`
	SecurityMinimumBump        map[string]string          `yaml:"security_minimum_bump"`
	Managers                   map[string]ManagerRuleFile `yaml:"managers"`
	Risk                       RiskFile                   `yaml:"risk"`
	Organization               OrganizationFile           `yaml:"organization"`
	GroupedStrategy            *string                    `yaml:"grouped_strategy"`
}

type GroupingFile struct {
	AllowSeparateChangesets *bool   `yaml:"allow_separate_changesets"`
	EnableGrouping          *bool   `yaml:"enable_grouping"`
	IncludeDevDependencies  *bool   `yaml:"include_dev_dependencies"`
	RootPackage             *string `yaml:"root_package"`
}

type DeduplicationFile struct {
	ContentDedup        *bool    `yaml:"content"`
	SemanticDedup       *bool    `yaml:"semantic"`
	Merge               *bool    `yaml:"merge"`
	ExistingCheck       *bool    `yaml:"existing_check"`
	Validate            *bool    `yaml:"validate"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	MergeStrategy       *string  `yaml:"merge_strategy"`
	MaxGroupSize        *int     `yaml:"max_group_size"`
	MaxExistingAge      *string  `yaml:"max_existing_age"`
}

type OutputFile struct {
	Directory  *string `yaml:"directory"`
	FilePrefix *string `yaml:"file_prefix"`
}

type GitHubFile struct {
	Repository *string `yaml:"repository"`
	Branch     *string `yaml:"branch"`
	Token      *string `yaml:"token"`
}

func ptr[T any](v T) *T { return &v }

// DefaultFileSettings returns a complete settings document with every field set.
func DefaultFileSettings() FileSettings {
	return FileSettings{
		Sources: SourcesFile{
			FactsFile:        ptr(""),
			Terraform:        ptr(false),
			TerraformBaseRef: ptr("HEAD"),
		},
		Categorization: CategorizationFile{
			PrereleaseLowersRisk: ptr(true),
			Managers: map[string]ManagerOverrideFile{
				string(ManagerGitHubActions): {RiskFactor: ptr(0.5)},
			},
		},
		Decision: DecisionFile{
			SecurityTakesPrecedence:    ptr(true),
			BreakingChangesAlwaysMajor: ptr(true),
			SecurityMinimumBump: map[string]string{
				string(SeverityLow):      string(BumpPatch),
				string(SeverityModerate): string(BumpPatch),
				string(SeverityHigh):     string(BumpMinor),
				string(SeverityCritical): string(BumpMinor),
			},
			Managers: map[string]ManagerRuleFile{
				string(ManagerGitHubActions): {MaxBump: ptr(string(BumpMinor)), DefaultBump: ptr(string(BumpPatch))},
				string(ManagerDocker):        {DefaultBump: ptr(string(BumpPatch))},
			},
			Risk: RiskFile{
				Enabled:         ptr(true),
				ForceMajorAbove: ptr(float64(defaultNoThreshold)),
				PatchCeiling:    ptr(float64(defaultPatchCeiling)),
				MinorCeiling:    ptr(float64(defaultNoThreshold)),
			},
			Organization: OrganizationFile{
				ConservativeMode: ptr(false),
				DependencyRules:  nil,
			},
			GroupedStrategy: ptr(string(GroupedHighest)),
		},
		Grouping: GroupingFile{
			AllowSeparateChangesets: ptr(true),
			EnableGrouping:          ptr(true),
			IncludeDevDependencies:  ptr(false),
			RootPackage:             ptr(""),
		},
		Deduplication: DeduplicationFile{
			ContentDedup:        ptr(true),
			SemanticDedup:       ptr(true),
			Merge:               ptr(true),
			ExistingCheck:       ptr(true),
			Validate:            ptr(true),
			SimilarityThreshold: ptr(defaultSimilarityThreshold),
			MergeStrategy:       ptr(string(MergeConservative)),
			MaxGroupSize:        ptr(defaultMaxGroupSize),
			MaxExistingAge:      ptr(defaultMaxExistingAge.String()),
		},
		Output: OutputFile{
			Directory:  ptr(".changeset"),
			FilePrefix: ptr("deps"),
		},
		GitHub: GitHubFile{
			Repository: ptr(""),
			Branch:     ptr(""),
			Token:      ptr(""),
		},
	}
}

// MergeFileSettings layers overrides onto defaults. Per-manager maps are merged
// key by key so that a partial manager entry keeps the remaining default fields.
func MergeFileSettings(defaults, overrides FileSettings) (FileSettings, error) {
	merged := defaults
	decisionManagers := overrides.Decision.Managers
	categorizationManagers := overrides.Categorization.Managers
	overrides.Decision.Managers = nil
	overrides.Categorization.Managers = nil

	if err := mergo.Merge(&merged, overrides, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return FileSettings{}, fmt.Errorf("failed to merge settings: %w", err)
	}

	if merged.Decision.Managers == nil {
		merged.Decision.Managers = map[string]ManagerRuleFile{}
	}
	for name, rule := range decisionManagers {
		base := merged.Decision.Managers[name]
		if err := mergo.Merge(&base, rule, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return FileSettings{}, fmt.Errorf("failed to merge manager %q: %w", name, err)
		}
		merged.Decision.Managers[name] = base
	}

	if merged.Categorization.Managers == nil {
		merged.Categorization.Managers = map[string]ManagerOverrideFile{}
	}
	for name, override := range categorizationManagers {
		base := merged.Categorization.Managers[name]
		if err := mergo.Merge(&base, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return FileSettings{}, fmt.Errorf("failed to merge manager %q: %w", name, err)
		}
		merged.Categorization.Managers[name] = base
	}

	return merged, nil
}

// DefaultSettings returns the resolved defaults.
func DefaultSettings() *Settings {
	settings, err := ResolveSettings(DefaultFileSettings())
	if err != nil {
		panic(err) // defaults are static; failing here is a programming error
	}
	return settings
}

// NewSettings reads a YAML configuration file, layers it onto the defaults and resolves it.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var file FileSettings
	if unmarshalErr := yaml.Unmarshal(data, &file); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}
	if file.GitHub.Token != nil {
		file.GitHub.Token = ptr(ResolveToken(*file.GitHub.Token))
	}

	merged, err := MergeFileSettings(DefaultFileSettings(), file)
	if err != nil {
		return nil, err
	}
	return ResolveSettings(merged)
}

// ResolveSettings converts a merged settings document into typed options and validates it.
func ResolveSettings(file FileSettings) (*Settings, error) {
	var errs []error

	decision, decisionErrs := resolveDecision(file.Decision)
	errs = append(errs, decisionErrs...)

	dedupOpts, dedupErrs := resolveDedup(file.Deduplication)
	errs = append(errs, dedupErrs...)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Settings{
		Sources: SourceOptions{
			FactsFile:        deref(file.Sources.FactsFile),
			Terraform:        deref(file.Sources.Terraform),
			TerraformBaseRef: deref(file.Sources.TerraformBaseRef),
		},
		Categorization: resolveCategorization(file.Categorization),
		Decision:       decision,
		Grouping: GroupingOptions{
			AllowSeparateChangesets: deref(file.Grouping.AllowSeparateChangesets),
			EnableGrouping:          deref(file.Grouping.EnableGrouping),
			IncludeDevDependencies:  deref(file.Grouping.IncludeDevDependencies),
			RootPackage:             deref(file.Grouping.RootPackage),
		},
		Dedup: dedupOpts,
		Output: OutputOptions{
			Directory:  deref(file.Output.Directory),
			FilePrefix: deref(file.Output.FilePrefix),
		},
		GitHub: GitHubOptions{
			Repository: deref(file.GitHub.Repository),
			Branch:     deref(file.GitHub.Branch),
			Token:      deref(file.GitHub.Token),
		},
	}, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func resolveCategorization(file CategorizationFile) CategorizationOptions {
	overrides := make(map[Manager]ManagerOverride, len(file.Managers))
	for name, o := range file.Managers {
		remap := make(map[Category]Category, len(o.Remap))
		for from, to := range o.Remap {
			remap[Category(strings.ToLower(from))] = Category(strings.ToLower(to))
		}
		overrides[ParseManager(name)] = ManagerOverride{
			CategoryRemap: remap,
			RiskFactor:    deref(o.RiskFactor),
		}
	}
	return CategorizationOptions{
		PrereleaseLowersRisk: deref(file.PrereleaseLowersRisk),
		ManagerOverrides:     overrides,
	}
}

func optionalBump(raw *string, field string) (BumpType, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "", nil
	}
	bump, err := ParseBumpType(*raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return bump, nil
}

func resolveDecision(file DecisionFile) (DecisionPolicy, []error) {
	var errs []error

	minimums := make(map[Severity]BumpType, len(file.SecurityMinimumBump))
	for sev, raw := range file.SecurityMinimumBump {
		bump, err := ParseBumpType(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("decision.security_minimum_bump.%s: %w", sev, err))
			continue
		}
		minimums[ParseSeverity(sev)] = bump
	}

	rules := make(map[Manager]ManagerRule, len(file.Managers))
	for name, r := range file.Managers {
		maxBump, maxErr := optionalBump(r.MaxBump, "decision.managers."+name+".max_bump")
		defaultBump, defErr := optionalBump(r.DefaultBump, "decision.managers."+name+".default_bump")
		if maxErr != nil || defErr != nil {
			errs = append(errs, errors.Join(maxErr, defErr))
			continue
		}
		rules[ParseManager(name)] = ManagerRule{
			MajorAsMinor:   deref(r.MajorAsMinor),
			MaxBump:        maxBump,
			DefaultBump:    defaultBump,
			AllowDowngrade: deref(r.AllowDowngrade),
		}
	}

	depRules := make([]DependencyRule, 0, len(file.Organization.DependencyRules))
	for i, r := range file.Organization.DependencyRules {
		field := fmt.Sprintf("decision.organization.dependency_rules[%d]", i)
		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("%s.pattern: %w", field, err))
			continue
		}
		force, forceErr := optionalBump(&r.Force, field+".force")
		maxBump, maxErr := optionalBump(&r.MaxBump, field+".max_bump")
		if forceErr != nil || maxErr != nil {
			errs = append(errs, errors.Join(forceErr, maxErr))
			continue
		}
		depRules = append(depRules, DependencyRule{Pattern: r.Pattern, Force: force, MaxBump: maxBump})
	}

	strategy := GroupedBumpStrategy(strings.ToLower(deref(file.GroupedStrategy)))
	switch strategy {
	case GroupedHighest, GroupedConservative, GroupedMajority:
	default:
		errs = append(errs, fmt.Errorf("decision.grouped_strategy: unknown strategy %q", strategy))
	}

	return DecisionPolicy{
		SecurityTakesPrecedence:    deref(file.SecurityTakesPrecedence),
		BreakingChangesAlwaysMajor: deref(file.BreakingChangesAlwaysMajor),
		SecurityMinimumBump:        minimums,
		ManagerRules:               rules,
		Risk: RiskThresholds{
			Enabled:         deref(file.Risk.Enabled),
			ForceMajorAbove: deref(file.Risk.ForceMajorAbove),
			PatchCeiling:    deref(file.Risk.PatchCeiling),
			MinorCeiling:    deref(file.Risk.MinorCeiling),
		},
		Organization: OrganizationRules{
			ConservativeMode: deref(file.Organization.ConservativeMode),
			DependencyRules:  depRules,
		},
		GroupedStrategy: strategy,
	}, errs
}

func resolveDedup(file DeduplicationFile) (DedupOptions, []error) {
	var errs []error

	threshold := deref(file.SimilarityThreshold)
	if threshold < 0 || threshold > 1 {
		errs = append(errs, fmt.Errorf("deduplication.similarity_threshold must be within [0,1], got %v", threshold))
	}

	strategy := MergeStrategy(strings.ToLower(deref(file.MergeStrategy)))
	switch strategy {
	case MergeDisabled, MergeConservative, MergeAggressive:
	default:
		errs = append(errs, fmt.Errorf("deduplication.merge_strategy: unknown strategy %q", strategy))
	}

	maxAge, err := time.ParseDuration(deref(file.MaxExistingAge))
	if err != nil {
		errs = append(errs, fmt.Errorf("deduplication.max_existing_age: %w", err))
	}

	groupSize := deref(file.MaxGroupSize)
	if groupSize < 1 {
		errs = append(errs, fmt.Errorf("deduplication.max_group_size must be positive, got %d", groupSize))
	}

	return DedupOptions{
		ContentDedup:        deref(file.ContentDedup),
		SemanticDedup:       deref(file.SemanticDedup),
		Merge:               deref(file.Merge),
		ExistingCheck:       deref(file.ExistingCheck),
		Validate:            deref(file.Validate),
		SimilarityThreshold: threshold,
		MergeStrategy:       strategy,
		MaxGroupSize:        groupSize,
		MaxExistingAge:      maxAge,
	}, errs
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		".github",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".autochangeset.yaml",
		".autochangeset.yml",
		"autochangeset.yaml",
		"autochangeset.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// ResolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func ResolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}
