package controllers

import (
	"path/filepath"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// loadSettings reads the configuration file given with --config, or the first
// one found in the standard locations. Without any file the defaults apply.
func loadSettings(configPath string) (*entities.Settings, error) {
	if configPath == "" {
		found, err := entities.FindConfigFile()
		if err != nil {
			logger.Debugf("No config file found (%v), using defaults", err)
			return entities.DefaultSettings(), nil
		}
		configPath = found
	}

	logger.Infof("Using config file: %s", configPath)
	return entities.NewSettings(configPath)
}

// repositoryRoot returns the absolute checkout directory from the optional path argument.
func repositoryRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	return filepath.Abs(dir)
}
