package entities

import "github.com/spf13/cobra"

// ControllerBind is the Cobra metadata a controller exposes.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is a CLI entry point bound to a Cobra subcommand.
type Controller interface {
	GetBind() ControllerBind
	Execute(command *cobra.Command, arguments []string)
}
