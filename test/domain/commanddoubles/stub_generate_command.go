//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/commands"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// StubGenerateCommand is a stub implementation of commands.Generate.
type StubGenerateCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Result           *commands.PipelineResult
	LastSettings     *entities.Settings
	LastOpts         commands.GenerateOptions
}

var _ commands.Generate = (*StubGenerateCommand)(nil)

func (s *StubGenerateCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.GenerateOptions,
) (*commands.PipelineResult, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.Result, s.ExecuteErr
}
