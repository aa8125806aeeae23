// Package factfile reads dependency change records from a metadata file, such
// as the JSON written by Dependabot's fetch-metadata action or a YAML list.
package factfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

const sourceName = "file"

// record accepts the Dependabot field names plus the single-advisory id.
type record struct {
	entities.DependencyChange `yaml:",inline"`

	GHSAID string `yaml:"ghsaId,omitempty"`
}

type document struct {
	Updates             []record `yaml:"updates"`
	UpdatedDependencies []record `yaml:"updated-dependencies"`
}

// FactFileRepository reads change records from a file.
type FactFileRepository struct{}

// NewFactRepository creates the file-backed fact source.
func NewFactRepository() repositories.FactRepository {
	return &FactFileRepository{}
}

func (r *FactFileRepository) Name() string { return sourceName }

func (r *FactFileRepository) Enabled(opts entities.SourceOptions) bool {
	return strings.TrimSpace(opts.FactsFile) != ""
}

func (r *FactFileRepository) Collect(
	_ context.Context,
	opts entities.SourceOptions,
) ([]entities.DependencyChange, error) {
	path := opts.FactsFile
	if !filepath.IsAbs(path) && opts.Root != "" {
		path = filepath.Join(opts.Root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file %q: %w", path, err)
	}

	records, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse facts file %q: %w", path, err)
	}

	changes := make([]entities.DependencyChange, 0, len(records))
	for _, rec := range records {
		change := rec.DependencyChange
		if rec.GHSAID != "" {
			change.Advisories = append(change.Advisories, rec.GHSAID)
		}
		change.Source = sourceName
		changes = append(changes, change)
	}
	logger.Debugf("[%s] Read %d change records from %s", sourceName, len(changes), path)
	return changes, nil
}

// parse accepts a bare list of records or a document with an "updates" or
// "updated-dependencies" list. JSON input parses as YAML.
func parse(data []byte) ([]record, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var list []record
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Updates) > 0 {
		return doc.Updates, nil
	}
	return doc.UpdatedDependencies, nil
}
