package collector

import (
	"context"
	"time"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
)

// Source defines the remote calls the harvester needs. List calls are
// page-numbered so the caller controls pagination and can stop early.
type Source interface {
	// CheckRepo verifies the repository exists and is accessible.
	CheckRepo(ctx context.Context, repo domain.Repo) error

	// Commits returns one page of the repository's commit feed, newest first.
	// An empty branch means the default branch.
	Commits(ctx context.Context, repo domain.Repo, branch string, page int) ([]Commit, error)

	// CommitDiff returns the diff statistics of a single commit. It never
	// fails: after retry exhaustion it returns zero statistics so the
	// surrounding pagination can continue.
	CommitDiff(ctx context.Context, repo domain.Repo, sha string) domain.Diff

	// Issues returns one page of the repository's issue feed (state=all,
	// pull requests included), newest first.
	Issues(ctx context.Context, repo domain.Repo, page int) ([]Issue, error)

	// Comments returns all comments of an issue or pull request.
	Comments(ctx context.Context, repo domain.Repo, number int) ([]Comment, error)

	// PullCommits returns the SHAs of a pull request's constituent commits.
	PullCommits(ctx context.Context, repo domain.Repo, number int) ([]string, error)
}

// Commit is one entry of the commit feed.
type Commit struct {
	SHA        string
	Login      string // platform login, empty when the author has no account
	AuthorName string // raw committer name from the commit itself
	Message    string
	AuthoredAt time.Time
	Link       string
}

// Issue is one entry of the issue feed. Pull requests appear in the same
// feed and are distinguished by IsPullRequest.
type Issue struct {
	Number        int
	Title         string
	Body          string
	State         string
	Login         string
	Labels        []string
	Assignees     []string
	CreatedAt     time.Time
	Link          string
	CommentCount  int
	IsPullRequest bool
}

// Comment is a single issue or pull-request comment.
type Comment struct {
	Login string
	Body  string
}
