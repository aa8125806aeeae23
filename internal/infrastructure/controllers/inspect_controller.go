package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autochangeset/internal/domain/commands"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// InspectController handles the "inspect" subcommand.
type InspectController struct {
	command commands.Inspect
}

// NewInspectController creates a new InspectController.
func NewInspectController(command commands.Inspect) *InspectController {
	return &InspectController{command: command}
}

// GetBind returns the Cobra command metadata for the inspect controller.
func (it *InspectController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "inspect [path]",
		Short: "Report duplicate or conflicting changesets",
		Long: `Read the changeset files already in the repository and report
files that repeat each other and packages released with different
bump types. Nothing is written.`,
	}
}

// Execute audits the persisted changesets.
func (it *InspectController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
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

	if _, err = it.command.Execute(ctx, settings, commands.InspectOptions{
		Root:       root,
		Verbose:    verbose,
		GitHubRepo: githubRepo,
	}); err != nil {
		logger.Errorf("Inspect failed: %v", err)
	}
}

// AddFlags adds the inspect-specific flags to the given Cobra command.
func (it *InspectController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("github-repo", "", "Inspect this repository's default branch instead (owner/name)")
}
