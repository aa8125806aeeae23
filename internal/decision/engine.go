// Package decision turns a categorization of a consolidation unit into a single
// bump decision through an ordered rule pipeline. Each stage may override the
// bump chosen by the previous one and records why it did so.
package decision

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

const (
	patternCacheSize        = 256
	overriddenRulesForDoubt = 2
	largeGroupSize          = 5
)

// Rule names recorded in BumpDecision.OverriddenRules.
const (
	RuleSecurityPrecedence  = "security-precedence"
	RuleBreakingOverride    = "breaking-change-override"
	RuleManagerMajorAsMinor = "manager-major-as-minor"
	RuleManagerMaxBump      = "manager-max-bump"
	RuleManagerDefault      = "manager-default"
	RuleConservativeMode    = "organization-conservative"
	RuleDependencyPattern   = "dependency-pattern"
	RuleRiskForceMajor      = "risk-force-major"
	RuleRiskRatchet         = "risk-ratchet"
	RuleGroupedConservative = "grouped-conservative"
	RuleGroupedMajority     = "grouped-majority"
)

// Engine decides bump types under a fixed policy. It is safe for sequential use
// across many units of one run; compiled dependency patterns are cached.
type Engine struct {
	policy   entities.DecisionPolicy
	patterns *lru.Cache[string, *regexp.Regexp]
}

// New creates an engine for the given policy.
func New(policy entities.DecisionPolicy) (*Engine, error) {
	cache, err := lru.New[string, *regexp.Regexp](patternCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}
	return &Engine{policy: policy, patterns: cache}, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() entities.DecisionPolicy {
	return e.policy
}

// trail accumulates the bump as it flows through the stages.
type trail struct {
	bump       entities.BumpType
	reasoning  []string
	overridden []string
}

func (t *trail) note(format string, args ...any) {
	t.reasoning = append(t.reasoning, fmt.Sprintf(format, args...))
}

// set moves the bump and records the rule only when the bump actually changes.
func (t *trail) set(rule string, bump entities.BumpType, format string, args ...any) bool {
	if bump == t.bump || !bump.IsValid() {
		return false
	}
	t.note("%s: %s → %s (%s)", rule, t.bump, bump, fmt.Sprintf(format, args...))
	t.bump = bump
	for _, existing := range t.overridden {
		if existing == rule {
			return true
		}
	}
	t.overridden = append(t.overridden, rule)
	return true
}

// Decide runs the rule pipeline for one consolidation unit.
func (e *Engine) Decide(input entities.DecisionInput) entities.BumpDecision {
	summary := input.Categorization.Summary
	semverBump := input.Impact.RecommendedBump
	if !semverBump.IsValid() {
		semverBump = entities.BumpPatch
	}
	categoryBump := summary.RecommendedBump
	if !categoryBump.IsValid() {
		categoryBump = semverBump
	}

	t := &trail{}
	e.baseStage(t, summary, semverBump, categoryBump)
	e.securityStage(t, input)
	e.breakingStage(t, input)
	e.managerStage(t, input.Manager)
	e.organizationStage(t, input)
	score := riskScore(input)
	e.riskStage(t, score)
	if input.Grouped {
		e.groupedStage(t, input)
	}

	decision := entities.BumpDecision{
		Bump:            t.bump,
		Confidence:      e.confidence(input, len(t.overridden)),
		Reasoning:       t.reasoning,
		OverriddenRules: t.overridden,
		Risk:            assessRisk(input, t.bump, score),
		Alternatives:    alternatives(input, t.bump, semverBump, categoryBump),
	}
	logger.Debugf(
		"[decision] %s bump (confidence %s, risk %s %.1f), overridden rules %v",
		decision.Bump, decision.Confidence, decision.Risk.Level, decision.Risk.Score, decision.OverriddenRules,
	)
	return decision
}

func (e *Engine) confidence(input entities.DecisionInput, overridden int) entities.Confidence {
	confidence := entities.ConfidenceHigh
	if overridden > overriddenRulesForDoubt {
		confidence = entities.ConfidenceMedium
	}
	if input.Impact.Confidence == entities.ConfidenceLow {
		confidence = entities.ConfidenceLow
	}
	if hasSecurity(input) && confidence != entities.ConfidenceLow {
		confidence = entities.ConfidenceHigh
	}
	if input.Grouped && dependencyCount(input) > largeGroupSize {
		confidence = confidence.Degrade()
	}
	return confidence
}

func hasSecurity(input entities.DecisionInput) bool {
	if input.Categorization.Summary.HasSecurity {
		return true
	}
	return input.Security != nil && len(input.Security.Vulnerabilities) > 0
}

func hasBreaking(input entities.DecisionInput) bool {
	if input.Categorization.Summary.HasBreaking {
		return true
	}
	return input.Breaking != nil && input.Breaking.HasBreakingChanges
}

func dependencyCount(input entities.DecisionInput) int {
	if input.DependencyCount > 0 {
		return input.DependencyCount
	}
	return len(input.Categorization.Dependencies)
}
