package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/assembler"
	"github.com/rios0rios0/autochangeset/internal/categorizer"
	"github.com/rios0rios0/autochangeset/internal/decision"
	"github.com/rios0rios0/autochangeset/internal/dedup"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
	"github.com/rios0rios0/autochangeset/internal/grouper"
	infraRepos "github.com/rios0rios0/autochangeset/internal/infrastructure/repositories"
	"github.com/rios0rios0/autochangeset/internal/metrics"
	"github.com/rios0rios0/autochangeset/internal/normalizer"
)

// ErrNoFactSource is returned when no fact source is enabled for a run.
var ErrNoFactSource = errors.New("no dependency fact source enabled, pass --facts or --terraform")

// Generate is the interface for the generate command.
type Generate interface {
	Execute(ctx context.Context, settings *entities.Settings, opts GenerateOptions) (*PipelineResult, error)
}

// GenerateOptions holds runtime options for a single run. Non-empty fields
// override the configuration file.
type GenerateOptions struct {
	Root        string
	FactsFile   string
	Terraform   bool
	BaseBranch  string
	PatchFile   string
	DryRun      bool
	Verbose     bool
	MetricsFile string
	GitHubRepo  string // owner/name
}

// PipelineResult keeps every intermediate result of a run for auditing.
type PipelineResult struct {
	Changes        []entities.DependencyChange
	Normalized     normalizer.Result
	Categorization entities.CategorizationResult
	Workspace      entities.Workspace
	ChangedFiles   []string
	Grouping       entities.GroupingResult
	Units          []assembler.Unit
	Candidates     []entities.ChangesetCandidate
	Existing       []entities.ExistingChangeset
	Dedup          dedup.Result
	Written        []string
	Errors         int
}

// GenerateCommand runs the whole pipeline:
// collect facts -> normalize -> categorize -> group -> decide -> assemble -> deduplicate -> persist.
type GenerateCommand struct {
	factRegistry  *infraRepos.FactSourceRegistry
	storeRegistry *infraRepos.ChangesetStoreRegistry
	workspaces    repositories.WorkspaceRepository
	changedFiles  repositories.ChangedFilesRepository
}

// NewGenerateCommand creates a new GenerateCommand with its collaborators.
func NewGenerateCommand(
	factRegistry *infraRepos.FactSourceRegistry,
	storeRegistry *infraRepos.ChangesetStoreRegistry,
	workspaces repositories.WorkspaceRepository,
	changedFiles repositories.ChangedFilesRepository,
) *GenerateCommand {
	return &GenerateCommand{
		factRegistry:  factRegistry,
		storeRegistry: storeRegistry,
		workspaces:    workspaces,
		changedFiles:  changedFiles,
	}
}

// Execute runs the pipeline once. Collaborator failures are logged and
// counted; only configuration faults and contract violations abort the run.
func (it *GenerateCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts GenerateOptions,
) (*PipelineResult, error) {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	started := time.Now()
	recorder := metrics.NewRecorder()
	result := &PipelineResult{}

	sources := sourceOptions(settings.Sources, opts)
	enabled := it.factRegistry.Enabled(sources)
	if len(enabled) == 0 {
		return nil, ErrNoFactSource
	}
	for _, source := range enabled {
		changes, err := source.Collect(ctx, sources)
		if err != nil {
			logger.Errorf("[%s] Failed to collect dependency changes: %v", source.Name(), err)
			result.Errors++
			continue
		}
		logger.Infof("[%s] Collected %d dependency changes", source.Name(), len(changes))
		result.Changes = append(result.Changes, changes...)
	}

	result.Normalized = normalizer.Normalize(result.Changes)
	recorder.ObserveFacts(len(result.Normalized.Facts), len(result.Normalized.Skipped))
	if len(result.Normalized.Facts) == 0 {
		logger.Info("No dependency changes to describe")
		return result, it.finish(recorder, started, opts)
	}

	categorization, err := categorizer.New(settings.Categorization).
		Categorize(result.Normalized.Facts, result.Normalized.Assessment)
	if err != nil {
		return result, err
	}
	result.Categorization = categorization
	recorder.ObserveCategorization(categorization)

	result.Workspace, result.ChangedFiles = it.discover(ctx, opts, result)
	result.Grouping = grouper.New(settings.Grouping).
		Group(result.Workspace, result.Normalized.Facts, result.ChangedFiles)

	engine, err := decision.New(settings.Decision)
	if err != nil {
		return result, fmt.Errorf("invalid decision policy: %w", err)
	}
	asm := assembler.New(settings.Output)
	for _, packages := range assembler.Units(result.Grouping) {
		unit := it.buildUnit(engine, packages, result)
		recorder.ObserveDecision(unit.Decision)
		result.Units = append(result.Units, unit)
		result.Candidates = append(result.Candidates, asm.Assemble(unit))
	}

	result.Existing = it.existing(ctx, settings, opts, result)
	result.Dedup = dedup.New(settings.Dedup, asm).Run(result.Candidates, result.Existing)
	recorder.ObserveDedup(result.Dedup)
	for _, warning := range result.Dedup.Warnings {
		logger.Warnf("[dedup] %s", warning)
	}

	if opts.DryRun {
		for _, candidate := range result.Dedup.Candidates {
			logger.Infof("[dry-run] Would write %s:\n%s", candidate.FileName,
				entities.RenderChangeset(candidate.Releases, candidate.Summary))
		}
	} else if len(result.Dedup.Candidates) > 0 {
		written, saveErr := it.storeRegistry.Local().Save(ctx, it.localLocation(settings, opts), result.Dedup.Candidates)
		result.Written = written
		if saveErr != nil {
			return result, saveErr
		}
	}

	logger.Infof(
		"Run complete: %d facts, %d candidates, %d changesets written, %d duplicates removed, %d errors",
		len(result.Normalized.Facts), len(result.Candidates), len(result.Written),
		len(result.Dedup.Duplicates), result.Errors,
	)
	return result, it.finish(recorder, started, opts)
}

func sourceOptions(configured entities.SourceOptions, opts GenerateOptions) entities.SourceOptions {
	sources := configured
	sources.Root = opts.Root
	if opts.FactsFile != "" {
		sources.FactsFile = opts.FactsFile
	}
	if opts.Terraform {
		sources.Terraform = true
	}
	if opts.BaseBranch != "" && sources.TerraformBaseRef == "HEAD" {
		sources.TerraformBaseRef = opts.BaseBranch
	}
	return sources
}

// discover reads the workspace and the changed files. Either may fail; the
// grouper degrades to scope-based grouping without them.
func (it *GenerateCommand) discover(
	ctx context.Context,
	opts GenerateOptions,
	result *PipelineResult,
) (entities.Workspace, []string) {
	workspace, err := it.workspaces.Discover(ctx, opts.Root)
	if err != nil {
		logger.Warnf("[workspace] Failed to discover packages: %v", err)
		result.Errors++
		workspace = entities.Workspace{Root: opts.Root}
	}

	changed, err := it.changedFiles.ChangedFiles(ctx, repositories.ChangedFilesOptions{
		Root:       opts.Root,
		BaseBranch: opts.BaseBranch,
		PatchFile:  opts.PatchFile,
	})
	if err != nil {
		logger.Warnf("[gitlocal] Failed to compute changed files: %v", err)
		result.Errors++
		changed = nil
	}
	return workspace, changed
}

// buildUnit gathers the dependencies behind a unit and decides its bump. A
// unit made only of indirectly affected packages inherits every dependency of
// the run, since it changes through its dependencies.
func (it *GenerateCommand) buildUnit(
	engine *decision.Engine,
	packages []string,
	result *PipelineResult,
) assembler.Unit {
	names := map[string]bool{}
	for _, pkg := range packages {
		for _, name := range result.Grouping.PackageFacts[pkg] {
			names[name] = true
		}
	}
	deps := result.Categorization.Subset(names)
	if len(deps) == 0 {
		logger.Debugf("[generate] %v has no direct dependency change, using all of them", packages)
		deps = result.Categorization.Dependencies
	}

	entries := make([]entities.DependencyImpact, 0, len(deps))
	for _, dep := range deps {
		if entry, ok := result.Normalized.Assessment.Lookup(dep.Fact.Name); ok {
			entries = append(entries, entry)
		}
	}
	impact := normalizer.BuildAssessment(entries)

	input := entities.DecisionInput{
		Categorization: entities.CategorizationResult{
			Dependencies: deps,
			Summary:      categorizer.Summarize(deps, impact),
		},
		Impact:          impact,
		Manager:         sharedManager(deps),
		Grouped:         len(deps) > 1 || len(packages) > 1,
		DependencyCount: len(deps),
		Breaking:        breakingAnalysis(deps),
		Security:        securityAnalysis(deps),
	}
	return assembler.Unit{
		Packages:      packages,
		Dependencies:  deps,
		Relationships: assembler.RelationshipsWithin(result.Grouping.Relationships, packages),
		Decision:      engine.Decide(input),
	}
}

// sharedManager returns the manager common to every dependency, or "" when they differ.
func sharedManager(deps []entities.CategorizedDependency) entities.Manager {
	var manager entities.Manager
	for i, dep := range deps {
		if i == 0 {
			manager = dep.Fact.Manager
			continue
		}
		if dep.Fact.Manager != manager {
			return ""
		}
	}
	return manager
}

// breakingAnalysis marks a breaking fact that is also a critical security
// update as a critical indicator, which forces a major release.
func breakingAnalysis(deps []entities.CategorizedDependency) *entities.BreakingChangeAnalysis {
	analysis := &entities.BreakingChangeAnalysis{}
	for _, dep := range deps {
		if !dep.Fact.Breaking {
			continue
		}
		severity := entities.SeverityHigh
		if dep.Fact.Security && dep.Fact.Severity == entities.SeverityCritical {
			severity = entities.SeverityCritical
		}
		analysis.HasBreakingChanges = true
		analysis.Indicators = append(analysis.Indicators, entities.BreakingIndicator{
			Dependency:  dep.Fact.Name,
			Severity:    severity,
			Description: fmt.Sprintf("%s %s → %s is marked breaking", dep.Fact.Name, dep.Fact.CurrentVersion, dep.Fact.NewVersion),
		})
	}
	if !analysis.HasBreakingChanges {
		return nil
	}
	return analysis
}

func securityAnalysis(deps []entities.CategorizedDependency) *entities.SecurityAnalysis {
	analysis := &entities.SecurityAnalysis{}
	for _, dep := range deps {
		if !dep.Fact.Security {
			continue
		}
		advisory := strings.Join(dep.Fact.Advisories, ",")
		analysis.Vulnerabilities = append(analysis.Vulnerabilities, entities.Vulnerability{
			Dependency: dep.Fact.Name,
			Advisory:   advisory,
			Severity:   dep.Fact.Severity,
		})
	}
	if len(analysis.Vulnerabilities) == 0 {
		return nil
	}
	return analysis
}

func (it *GenerateCommand) localLocation(
	settings *entities.Settings,
	opts GenerateOptions,
) repositories.ChangesetLocation {
	return repositories.ChangesetLocation{Root: opts.Root, Directory: settings.Output.Directory}
}

// existing reads persisted changesets from the checkout and, when a remote
// repository is configured, from its default branch.
func (it *GenerateCommand) existing(
	ctx context.Context,
	settings *entities.Settings,
	opts GenerateOptions,
	result *PipelineResult,
) []entities.ExistingChangeset {
	if !settings.Dedup.ExistingCheck {
		return nil
	}

	local, err := it.storeRegistry.Local().List(ctx, it.localLocation(settings, opts))
	if err != nil {
		logger.Warnf("[changeset] Failed to read existing changesets: %v", err)
		result.Errors++
	}
	existing := local

	location, remote, ok := remoteLocation(settings, opts)
	if !ok {
		return existing
	}
	reader, err := it.storeRegistry.Reader(remote)
	if err != nil {
		logger.Errorf("Failed to initialize changeset store %q: %v", remote, err)
		result.Errors++
		return existing
	}
	fromRemote, err := reader.List(ctx, location)
	if err != nil {
		logger.Warnf("[%s] Failed to read existing changesets: %v", reader.Name(), err)
		result.Errors++
		return existing
	}

	seen := make(map[string]bool, len(existing))
	for _, changeset := range existing {
		seen[changeset.FileName] = true
	}
	for _, changeset := range fromRemote {
		if !seen[changeset.FileName] {
			existing = append(existing, changeset)
		}
	}
	sort.SliceStable(existing, func(i, j int) bool { return existing[i].FileName < existing[j].FileName })
	return existing
}

func remoteLocation(
	settings *entities.Settings,
	opts GenerateOptions,
) (repositories.ChangesetLocation, string, bool) {
	slug := settings.GitHub.Repository
	if opts.GitHubRepo != "" {
		slug = opts.GitHubRepo
	}
	owner, name, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || name == "" {
		return repositories.ChangesetLocation{}, "", false
	}
	return repositories.ChangesetLocation{
		Directory: settings.Output.Directory,
		Token:     settings.GitHub.Token,
		Repository: entities.Repository{
			Organization:  owner,
			Name:          name,
			DefaultBranch: settings.GitHub.Branch,
			ProviderName:  "github",
		},
	}, "github", true
}

func (it *GenerateCommand) finish(recorder *metrics.Recorder, started time.Time, opts GenerateOptions) error {
	recorder.ObserveDuration(time.Since(started))
	if opts.MetricsFile == "" {
		return nil
	}
	if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	logger.Debugf("Metrics written to %s", opts.MetricsFile)
	return nil
}
