//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/dedup"
	"github.com/rios0rios0/autochangeset/internal/domain/commands"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// StubInspectCommand is a stub implementation of commands.Inspect.
type StubInspectCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Result           *dedup.Result
	LastSettings     *entities.Settings
	LastOpts         commands.InspectOptions
}

var _ commands.Inspect = (*StubInspectCommand)(nil)

func (s *StubInspectCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.InspectOptions,
) (*dedup.Result, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.Result, s.ExecuteErr
}
