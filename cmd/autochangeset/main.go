package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autochangeset/internal"
)

// flagged is implemented by controllers that declare their own flags.
type flagged interface {
	AddFlags(cmd *cobra.Command)
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "autochangeset",
		Short: "Changeset generator for dependency updates",
		Long: `Turns dependency update facts (Dependabot, Renovate, Terraform module
bumps) into changeset files for a monorepo: it finds the workspace
packages each update touches, decides a semver bump per release unit,
and skips changesets that already exist.

Usage:
  autochangeset generate --facts updates.json   Write changesets for the updates
  autochangeset generate --terraform --base main
  autochangeset inspect                         Audit the existing changesets`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().Bool("dry-run", false,
		"Show what would be written without writing")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")
	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Args:  cobra.MaximumNArgs(1),
			Run: func(command *cobra.Command, arguments []string) {
				controller.Execute(command, arguments)
			},
		}
		if withFlags, ok := controller.(flagged); ok {
			withFlags.AddFlags(subCmd)
		}
		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("Failed to load .env file: %v", err)
	}
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()
	addSubcommands(cobraRoot, injectAppContext())

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'autochangeset': %s", err)
	}
}
