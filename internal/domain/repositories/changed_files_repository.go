package repositories

import (
	"context"
)

// ChangedFilesOptions selects how changed files are computed.
type ChangedFilesOptions struct {
	Root       string // repository checkout
	BaseBranch string // compare HEAD against this branch when set
	PatchFile  string // read a unified diff instead of asking git
}

// ChangedFilesRepository lists the files touched by the update being described.
// Paths are slash-separated and relative to the repository root.
type ChangedFilesRepository interface {
	ChangedFiles(ctx context.Context, opts ChangedFilesOptions) ([]string, error)
}
