package repositories

import (
	"sort"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	domainRepos "github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// FactSourceRegistry manages all registered dependency fact sources.
type FactSourceRegistry struct {
	sources map[string]domainRepos.FactRepository
}

// NewFactSourceRegistry creates an empty fact source registry.
func NewFactSourceRegistry() *FactSourceRegistry {
	return &FactSourceRegistry{
		sources: make(map[string]domainRepos.FactRepository),
	}
}

// Register adds a fact source under its name.
func (r *FactSourceRegistry) Register(source domainRepos.FactRepository) {
	r.sources[source.Name()] = source
}

// Get returns the fact source with the given name, or nil if not registered.
func (r *FactSourceRegistry) Get(name string) domainRepos.FactRepository {
	return r.sources[name]
}

// Enabled returns the sources that should run for opts, ordered by name.
func (r *FactSourceRegistry) Enabled(opts entities.SourceOptions) []domainRepos.FactRepository {
	var result []domainRepos.FactRepository
	for _, name := range r.Names() {
		if source := r.sources[name]; source.Enabled(opts) {
			result = append(result, source)
		}
	}
	return result
}

// Names returns the sorted list of registered source names.
func (r *FactSourceRegistry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
