// Package github reads changesets already merged into a GitHub repository.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autochangeset/internal/domain/entities"
	"github.com/rios0rios0/autochangeset/internal/domain/repositories"
)

const (
	readerName = "github"
	fileType   = "file"
)

// ChangesetReader lists the changeset files of a repository's branch through the GitHub API.
type ChangesetReader struct {
	baseURL *url.URL
}

// NewChangesetReader creates a reader for github.com.
func NewChangesetReader() repositories.ChangesetReader {
	return &ChangesetReader{}
}

// NewChangesetReaderWithBaseURL creates a reader for another API endpoint
// (GitHub Enterprise or a test server). The URL must end with a slash.
func NewChangesetReaderWithBaseURL(rawURL string) (*ChangesetReader, error) {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", rawURL, err)
	}
	return &ChangesetReader{baseURL: parsed}, nil
}

func (r *ChangesetReader) Name() string { return readerName }

func (r *ChangesetReader) client(token string) *gh.Client {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if r.baseURL != nil {
		client.BaseURL = r.baseURL
	}
	return client
}

// List reads every markdown file of the changeset directory on the
// repository's default branch. A missing directory is not an error.
func (r *ChangesetReader) List(
	ctx context.Context,
	location repositories.ChangesetLocation,
) ([]entities.ExistingChangeset, error) {
	repo := location.Repository
	if repo.Organization == "" || repo.Name == "" {
		return nil, fmt.Errorf("repository owner and name are required, got %q/%q", repo.Organization, repo.Name)
	}
	client := r.client(location.Token)

	branch, err := r.branch(ctx, client, repo)
	if err != nil {
		return nil, err
	}
	dir := strings.Trim(location.Directory, "/")
	if dir == "" {
		dir = ".changeset"
	}

	_, entries, resp, err := client.Repositories.GetContents(
		ctx, repo.Organization, repo.Name, dir,
		&gh.RepositoryContentGetOptions{Ref: branch},
	)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		logger.Debugf("[github] %s/%s has no %s directory on %s", repo.Organization, repo.Name, dir, branch)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", dir, err)
	}

	var existing []entities.ExistingChangeset
	for _, entry := range entries {
		name := entry.GetName()
		if entry.GetType() != fileType || path.Ext(name) != ".md" || strings.EqualFold(name, "README.md") {
			continue
		}
		changeset, readErr := r.read(ctx, client, repo, branch, entry.GetPath())
		if readErr != nil {
			logger.Warnf("[github] Skipping %s: %v", entry.GetPath(), readErr)
			continue
		}
		existing = append(existing, changeset)
	}

	logger.Infof("[github] Read %d changesets from %s/%s@%s", len(existing), repo.Organization, repo.Name, branch)
	return existing, nil
}

func (r *ChangesetReader) branch(ctx context.Context, client *gh.Client, repo entities.Repository) (string, error) {
	if repo.DefaultBranch != "" {
		return strings.TrimPrefix(repo.DefaultBranch, "refs/heads/"), nil
	}
	remote, _, err := client.Repositories.Get(ctx, repo.Organization, repo.Name)
	if err != nil {
		return "", fmt.Errorf("failed to get repository %s/%s: %w", repo.Organization, repo.Name, err)
	}
	return remote.GetDefaultBranch(), nil
}

func (r *ChangesetReader) read(
	ctx context.Context,
	client *gh.Client,
	repo entities.Repository,
	branch, filePath string,
) (entities.ExistingChangeset, error) {
	fileContent, _, _, err := client.Repositories.GetContents(
		ctx, repo.Organization, repo.Name, filePath,
		&gh.RepositoryContentGetOptions{Ref: branch},
	)
	if err != nil {
		return entities.ExistingChangeset{}, fmt.Errorf("failed to get file %q: %w", filePath, err)
	}
	content, err := fileContent.GetContent()
	if err != nil {
		return entities.ExistingChangeset{}, fmt.Errorf("failed to decode file %q: %w", filePath, err)
	}
	releases, summary, err := entities.ParseChangeset(content)
	if err != nil {
		return entities.ExistingChangeset{}, err
	}

	return entities.ExistingChangeset{
		FileName:   path.Base(filePath),
		Releases:   releases,
		Summary:    summary,
		ModifiedAt: r.lastCommit(ctx, client, repo, branch, filePath),
	}, nil
}

// lastCommit returns the committer date of the newest commit touching
// filePath, or the zero time when it cannot be determined.
func (r *ChangesetReader) lastCommit(
	ctx context.Context,
	client *gh.Client,
	repo entities.Repository,
	branch, filePath string,
) time.Time {
	commits, _, err := client.Repositories.ListCommits(ctx, repo.Organization, repo.Name, &gh.CommitsListOptions{
		SHA:         branch,
		Path:        filePath,
		ListOptions: gh.ListOptions{PerPage: 1},
	})
	if err != nil || len(commits) == 0 {
		logger.Debugf("[github] No commit date for %s: %v", filePath, err)
		return time.Time{}
	}
	return commits[0].GetCommit().GetCommitter().GetDate().Time
}
