package entities

import (
	gitforgeEntities "github.com/rios0rios0/gitforge/pkg/global/domain/entities"
)

// Repository is re-exported from gitforge. The remote changeset store uses its
// Organization, Name and DefaultBranch fields.
type Repository = gitforgeEntities.Repository
