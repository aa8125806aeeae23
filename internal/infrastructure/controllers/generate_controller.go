package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autochangeset/internal/domain/commands"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// GenerateController handles the "generate" subcommand.
type GenerateController struct {
	command commands.Generate
}

// NewGenerateController creates a new GenerateController.
func NewGenerateController(command commands.Generate) *GenerateController {
	return &GenerateController{command: command}
}

// GetBind returns the Cobra command metadata for the generate controller.
func (it *GenerateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "generate [path]",
		Short: "Write changesets for dependency updates",
		Long: `Read dependency update facts, work out which workspace packages they
touch and how hard to bump each of them, and write the resulting
changeset files.

Facts come from a Dependabot/Renovate style JSON or YAML file (--facts)
and/or from Terraform module references that changed against a base
branch (--terraform). Changesets already present in the repository, or
on the default branch of --github-repo, are not written twice.`,
	}
}

// Execute runs the pipeline against the repository checkout.
func (it *GenerateController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	configPath, _ := cmd.Flags().GetString("config")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	factsFile, _ := cmd.Flags().GetString("facts")
	terraform, _ := cmd.Flags().GetBool("terraform")
	baseBranch, _ := cmd.Flags().GetString("base")
	patchFile, _ := cmd.Flags().GetString("patch")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	githubRepo, _ := cmd.Flags().GetString("github-repo")

	settings, err := loadSettings(configPath)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}
	root, err := repositoryRoot(args)
	if err != nil {
		logger.Errorf("invalid repository path: %v", err)
		return
	}

	result, err := it.command.Execute(ctx, settings, commands.GenerateOptions{
		Root:        root,
		FactsFile:   factsFile,
		Terraform:   terraform,
		BaseBranch:  baseBranch,
		PatchFile:   patchFile,
		DryRun:      dryRun,
		Verbose:     verbose,
		MetricsFile: metricsFile,
		GitHubRepo:  githubRepo,
	})
	if err != nil {
		logger.Errorf("Generate failed: %v", err)
		return
	}
	for _, path := range result.Written {
		logger.Infof("Wrote %s", path)
	}
}

// AddFlags adds the generate-specific flags to the given Cobra command.
func (it *GenerateController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("facts", "", "Dependency facts file (Dependabot/Renovate JSON or YAML)")
	cmd.Flags().Bool("terraform", false, "Collect Terraform module updates against the base branch")
	cmd.Flags().String("base", "", "Base branch for changed files and Terraform comparison")
	cmd.Flags().String("patch", "", "Unified diff to read changed files from instead of git")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics of the run to this file")
	cmd.Flags().String("github-repo", "", "Also check changesets on this repository (owner/name)")
}
