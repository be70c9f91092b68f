// Package github fetches pull request data through the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/akhil1parekh/github-pr-review-agent/internal/agent"
	"github.com/akhil1parekh/github-pr-review-agent/internal/metrics"
)

// FetchError wraps a failed GitHub API call with the request it belonged to.
type FetchError struct {
	Op     string
	Repo   string
	Number int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("github %s %s#%d: %v", e.Op, e.Repo, e.Number, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client implements agent.Fetcher against the GitHub API.
type Client struct {
	gh      *gogithub.Client
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewClient creates an authenticated client. The metrics collector is
// optional.
func NewClient(ctx context.Context, token string, logger *slog.Logger, collector *metrics.Collector) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &Client{
		gh:      gogithub.NewClient(httpClient),
		logger:  logger,
		metrics: collector,
	}
}

// splitRepo splits an "owner/name" repository path.
func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be in owner/name form, got %q", repo)
	}
	return parts[0], parts[1], nil
}

// PRDetails fetches pull request metadata.
func (c *Client) PRDetails(ctx context.Context, repo string, number int) (agent.PRSnapshot, error) {
	defer c.record(time.Now())

	owner, name, err := splitRepo(repo)
	if err != nil {
		return agent.PRSnapshot{}, &FetchError{Op: "details", Repo: repo, Number: number, Err: err}
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return agent.PRSnapshot{}, &FetchError{Op: "details", Repo: repo, Number: number, Err: err}
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	return agent.PRSnapshot{
		Repo:         repo,
		Number:       number,
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		CreatedAt:    pr.GetCreatedAt().Format(time.RFC3339),
		UpdatedAt:    pr.GetUpdatedAt().Format(time.RFC3339),
		State:        pr.GetState(),
		Mergeable:    pr.GetMergeable(),
		Labels:       labels,
		Commits:      pr.GetCommits(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
	}, nil
}

// PRFiles fetches the changed file list with file contents at the PR head.
// Removed files carry no content. A file whose content cannot be retrieved
// is kept with empty content so the analysis can still use its patch.
func (c *Client) PRFiles(ctx context.Context, repo string, number int) ([]agent.FileRecord, error) {
	defer c.record(time.Now())

	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, &FetchError{Op: "files", Repo: repo, Number: number, Err: err}
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, &FetchError{Op: "files", Repo: repo, Number: number, Err: err}
	}
	headSHA := pr.GetHead().GetSHA()

	var records []agent.FileRecord
	opts := &gogithub.ListOptions{PerPage: 100}
	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, name, number, opts)
		if err != nil {
			return nil, &FetchError{Op: "files", Repo: repo, Number: number, Err: err}
		}

		for _, f := range files {
			record := agent.FileRecord{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Changes:   f.GetChanges(),
				Patch:     f.GetPatch(),
			}
			if record.Status != agent.FileRemoved {
				record.Content = c.fileContent(ctx, owner, name, record.Filename, headSHA)
			}
			records = append(records, record)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

// fileContent retrieves one file's content at the given ref. Failures are
// logged and yield empty content.
func (c *Client) fileContent(ctx context.Context, owner, name, path, ref string) string {
	contents, _, _, err := c.gh.Repositories.GetContents(ctx, owner, name, path,
		&gogithub.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		c.logger.Warn("could not fetch file content", "file", path, "ref", ref, "error", err)
		return ""
	}
	if contents == nil {
		return ""
	}
	decoded, err := contents.GetContent()
	if err != nil {
		c.logger.Warn("could not decode file content", "file", path, "error", err)
		return ""
	}
	return decoded
}

func (c *Client) record(start time.Time) {
	if c.metrics != nil {
		c.metrics.Record(metrics.OpGitHubFetch, time.Since(start))
	}
}
