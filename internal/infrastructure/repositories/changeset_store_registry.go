package repositories

import (
	"fmt"
	"sort"

	domainRepos "github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

// ChangesetStoreRegistry holds the writable local store and the read-only
// remote readers of persisted changesets.
type ChangesetStoreRegistry struct {
	local   domainRepos.ChangesetRepository
	readers map[string]domainRepos.ChangesetReader
}

// NewChangesetStoreRegistry creates a registry around the local store.
func NewChangesetStoreRegistry(local domainRepos.ChangesetRepository) *ChangesetStoreRegistry {
	return &ChangesetStoreRegistry{
		local:   local,
		readers: map[string]domainRepos.ChangesetReader{local.Name(): local},
	}
}

// Register adds a reader under its name (e.g. "github").
func (r *ChangesetStoreRegistry) Register(reader domainRepos.ChangesetReader) {
	r.readers[reader.Name()] = reader
}

// Local returns the store changesets are written to.
func (r *ChangesetStoreRegistry) Local() domainRepos.ChangesetRepository {
	return r.local
}

// Reader returns the reader registered under name.
func (r *ChangesetStoreRegistry) Reader(name string) (domainRepos.ChangesetReader, error) {
	reader, ok := r.readers[name]
	if !ok {
		return nil, fmt.Errorf("unknown changeset store: %q", name)
	}
	return reader, nil
}

// Names returns the sorted list of registered store names.
func (r *ChangesetStoreRegistry) Names() []string {
	names := make([]string, 0, len(r.readers))
	for name := range r.readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
