package repositories

import (
	"context"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// WorkspaceRepository discovers the packages of a repository checkout.
type WorkspaceRepository interface {
	Discover(ctx context.Context, root string) (entities.Workspace, error)
}
