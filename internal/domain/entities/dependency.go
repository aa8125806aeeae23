package entities

import "strings"

// Manager is the package ecosystem a dependency belongs to.
type Manager string

const (
	ManagerNpm           Manager = "npm"
	ManagerYarn          Manager = "yarn"
	ManagerPnpm          Manager = "pnpm"
	ManagerGoMod         Manager = "gomod"
	ManagerPip           Manager = "pip"
	ManagerPoetry        Manager = "poetry"
	ManagerCargo         Manager = "cargo"
	ManagerComposer      Manager = "composer"
	ManagerBundler       Manager = "bundler"
	ManagerMaven         Manager = "maven"
	ManagerGradle        Manager = "gradle"
	ManagerNuget         Manager = "nuget"
	ManagerDocker        Manager = "docker"
	ManagerTerraform     Manager = "terraform"
	ManagerGitHubActions Manager = "github-actions"
	ManagerUnknown       Manager = "unknown"
)

// ParseManager maps ecosystem spellings (Dependabot, Renovate and plain names) onto a Manager.
func ParseManager(raw string) Manager {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "npm", "npm_and_yarn", "npm-and-yarn":
		return ManagerNpm
	case "yarn":
		return ManagerYarn
	case "pnpm":
		return ManagerPnpm
	case "gomod", "go_modules", "go", "golang":
		return ManagerGoMod
	case "pip", "pipenv", "pip-compile", "python":
		return ManagerPip
	case "poetry":
		return ManagerPoetry
	case "cargo", "rust":
		return ManagerCargo
	case "composer":
		return ManagerComposer
	case "bundler", "rubygems":
		return ManagerBundler
	case "maven":
		return ManagerMaven
	case "gradle":
		return ManagerGradle
	case "nuget":
		return ManagerNuget
	case "docker", "dockerfile", "docker-compose":
		return ManagerDocker
	case "terraform":
		return ManagerTerraform
	case "github_actions", "github-actions", "actions":
		return ManagerGitHubActions
	default:
		return ManagerUnknown
	}
}

// IsJavaScript reports whether the manager belongs to the Node.js family.
func (m Manager) IsJavaScript() bool {
	return m == ManagerNpm || m == ManagerYarn || m == ManagerPnpm
}

// DependencyChange is a raw update record as produced by an ecosystem collaborator.
// Fields are free text; the normalizer turns them into a DependencyFact.
type DependencyChange struct {
	Name        string   `json:"dependencyName" yaml:"dependencyName"`
	Manager     string   `json:"packageEcosystem" yaml:"packageEcosystem"`
	FromVersion string   `json:"prevVersion" yaml:"prevVersion"`
	ToVersion   string   `json:"newVersion" yaml:"newVersion"`
	UpdateType  string   `json:"updateType,omitempty" yaml:"updateType,omitempty"`
	Severity    string   `json:"severity,omitempty" yaml:"severity,omitempty"`
	CVSS        float64  `json:"cvss,omitempty" yaml:"cvss,omitempty"`
	AlertState  string   `json:"alertState,omitempty" yaml:"alertState,omitempty"`
	Advisories  []string `json:"advisories,omitempty" yaml:"advisories,omitempty"`
	Breaking    bool     `json:"breaking,omitempty" yaml:"breaking,omitempty"`
	Scope       string   `json:"scope,omitempty" yaml:"scope,omitempty"`
	Directory   string   `json:"directory,omitempty" yaml:"directory,omitempty"`
	Source      string   `json:"-" yaml:"-"` // collaborator that produced the record
}

// DependencyFact is the uniform, immutable description of one dependency update.
type DependencyFact struct {
	Name           string
	Manager        Manager
	CurrentVersion string
	NewVersion     string
	Impact         SemverImpact
	Security       bool
	Severity       Severity
	Breaking       bool
	Downgrade      bool
	Prerelease     bool
	Scope          string // workspace package name or directory the update applies to
	Advisories     []string
}

// DependencyImpact is the impact-assessment entry for a single dependency.
type DependencyImpact struct {
	Name       string
	Impact     SemverImpact
	Confidence Confidence
	Reasoning  string
}

// ImpactAssessment is the semver-impact view of a whole batch of facts.
type ImpactAssessment struct {
	Dependencies    []DependencyImpact
	OverallImpact   SemverImpact
	RecommendedBump BumpType
	Confidence      Confidence
	Reasoning       []string
}

// Lookup returns the entry for the named dependency.
func (a ImpactAssessment) Lookup(name string) (DependencyImpact, bool) {
	for _, entry := range a.Dependencies {
		if entry.Name == name {
			return entry, true
		}
	}
	return DependencyImpact{}, false
}
