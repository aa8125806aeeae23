//go:build unit

package github_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
	"github.com/rios0rios0/autochangeset/internal/infrastructure/repositories/github"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	changeset := base64.StdEncoding.EncodeToString([]byte("---\n'web': minor\n---\n\nUpdate react\n"))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/acme/site":
			fmt.Fprint(w, `{"name":"site","default_branch":"trunk"}`)
		case "/repos/acme/site/contents/.changeset":
			assert.Equal(t, "trunk", r.URL.Query().Get("ref"))
			fmt.Fprint(w, `[
  {"type":"file","name":"deps-web.md","path":".changeset/deps-web.md"},
  {"type":"file","name":"README.md","path":".changeset/README.md"},
  {"type":"file","name":"config.json","path":".changeset/config.json"},
  {"type":"dir","name":"nested","path":".changeset/nested"}
]`)
		case "/repos/acme/site/contents/.changeset/deps-web.md":
			fmt.Fprintf(w, `{"type":"file","name":"deps-web.md","encoding":"base64","content":%q}`, changeset)
		case "/repos/acme/site/commits":
			assert.Equal(t, ".changeset/deps-web.md", r.URL.Query().Get("path"))
			fmt.Fprint(w, `[{"sha":"abc","commit":{"committer":{"date":"2024-05-01T10:00:00Z"}}}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		}
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestList(t *testing.T) {
	t.Parallel()

	t.Run("should read changesets from the default branch", func(t *testing.T) {
		t.Parallel()

		// given
		server := newServer(t)
		reader, err := github.NewChangesetReaderWithBaseURL(server.URL)
		require.NoError(t, err)
		location := repositories.ChangesetLocation{
			Directory:  ".changeset",
			Repository: entities.Repository{Organization: "acme", Name: "site"},
		}

		// when
		existing, listErr := reader.List(context.Background(), location)

		// then
		require.NoError(t, listErr)
		require.Len(t, existing, 1)
		assert.Equal(t, "deps-web.md", existing[0].FileName)
		assert.Equal(t, "Update react", existing[0].Summary)
		assert.Equal(t, []entities.Release{{Package: "web", Bump: entities.BumpMinor}}, existing[0].Releases)
		assert.True(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Equal(existing[0].ModifiedAt))
	})

	t.Run("should return nothing when the directory is missing", func(t *testing.T) {
		t.Parallel()

		// given
		server := newServer(t)
		reader, err := github.NewChangesetReaderWithBaseURL(server.URL)
		require.NoError(t, err)
		location := repositories.ChangesetLocation{
			Directory:  "changes",
			Repository: entities.Repository{Organization: "acme", Name: "site", DefaultBranch: "refs/heads/main"},
		}

		// when
		existing, listErr := reader.List(context.Background(), location)

		// then
		require.NoError(t, listErr)
		assert.Empty(t, existing)
	})

	t.Run("should require an owner and a name", func(t *testing.T) {
		t.Parallel()

		// given
		reader := github.NewChangesetReader()

		// when
		_, err := reader.List(context.Background(), repositories.ChangesetLocation{})

		// then
		require.Error(t, err)
		assert.Equal(t, "github", reader.Name())
	})
}
