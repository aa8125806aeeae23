//go:build unit

package controllers_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/domain/commands"
	"github.com/rios0rios0/autochangeset/internal/infrastructure/controllers"
	"github.com/rios0rios0/autochangeset/test/domain/commanddoubles"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".autochangeset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newCobraCommand(addFlags func(*cobra.Command)) *cobra.Command {
	//nolint:exhaustruct // test command
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Bool("verbose", false, "")
	addFlags(cmd)
	return cmd
}

func TestGenerateController(t *testing.T) {
	t.Parallel()

	t.Run("should pass flags and configuration to the command", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubGenerateCommand{Result: &commands.PipelineResult{}}
		controller := controllers.NewGenerateController(stub)
		cmd := newCobraCommand(controller.AddFlags)
		config := writeConfig(t, "output:\n  directory: changes\n")
		dir := t.TempDir()
		require.NoError(t, cmd.Flags().Set("config", config))
		require.NoError(t, cmd.Flags().Set("facts", "updates.json"))
		require.NoError(t, cmd.Flags().Set("terraform", "true"))
		require.NoError(t, cmd.Flags().Set("base", "main"))
		require.NoError(t, cmd.Flags().Set("dry-run", "true"))
		require.NoError(t, cmd.Flags().Set("github-repo", "acme/site"))

		// when
		controller.Execute(cmd, []string{dir})

		// then
		require.Equal(t, 1, stub.ExecuteCallCount)
		assert.Equal(t, "changes", stub.LastSettings.Output.Directory)
		assert.Equal(t, commands.GenerateOptions{
			Root:       dir,
			FactsFile:  "updates.json",
			Terraform:  true,
			BaseBranch: "main",
			DryRun:     true,
			GitHubRepo: "acme/site",
		}, stub.LastOpts)
	})

	t.Run("should not run the command when the configuration is invalid", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubGenerateCommand{}
		controller := controllers.NewGenerateController(stub)
		cmd := newCobraCommand(controller.AddFlags)
		require.NoError(t, cmd.Flags().Set("config", writeConfig(t, "decision:\n  grouped_strategy: loudest\n")))

		// when
		controller.Execute(cmd, nil)

		// then
		assert.Equal(t, 0, stub.ExecuteCallCount)
	})

	t.Run("should survive a failing command", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubGenerateCommand{ExecuteErr: errors.New("boom")}
		controller := controllers.NewGenerateController(stub)
		cmd := newCobraCommand(controller.AddFlags)
		require.NoError(t, cmd.Flags().Set("config", writeConfig(t, "{}\n")))

		// when
		controller.Execute(cmd, nil)

		// then
		assert.Equal(t, 1, stub.ExecuteCallCount)
	})
}

func TestInspectController(t *testing.T) {
	t.Parallel()

	t.Run("should inspect the given directory", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubInspectCommand{}
		controller := controllers.NewInspectController(stub)
		cmd := newCobraCommand(controller.AddFlags)
		dir := t.TempDir()
		require.NoError(t, cmd.Flags().Set("config", writeConfig(t, "{}\n")))
		require.NoError(t, cmd.Flags().Set("github-repo", "acme/site"))

		// when
		controller.Execute(cmd, []string{dir})

		// then
		require.Equal(t, 1, stub.ExecuteCallCount)
		assert.Equal(t, dir, stub.LastOpts.Root)
		assert.Equal(t, "acme/site", stub.LastOpts.GitHubRepo)
		assert.Equal(t, ".changeset", stub.LastSettings.Output.Directory)
	})
}
