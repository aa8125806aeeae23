package internal

import "github.com/rios0rios0/autochangeset/internal/domain/entities"

// AppInternal holds the controllers exposed as CLI subcommands.
type AppInternal struct {
	controllers []entities.Controller
}

// NewAppInternal creates the application from its controllers.
func NewAppInternal(controllers *[]entities.Controller) *AppInternal {
	return &AppInternal{controllers: *controllers}
}

// GetControllers returns the registered controllers.
func (it *AppInternal) GetControllers() []entities.Controller {
	return it.controllers
}
