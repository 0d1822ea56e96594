package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v55/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
	apperrors "github.com/furkanakkurt1335/gather-commits-issues-prs/internal/errors"
)

// perPage is the page size requested from every list endpoint.
const perPage = 100

// Client implements Source against the GitHub REST API.
type Client struct {
	client      *github.Client
	rateLimiter *RateLimiter
	retry       *retryer
	log         logrus.FieldLogger
}

// NewClient creates a GitHub-backed Source. An empty token is allowed and
// falls back to unauthenticated calls with their lower rate limit.
func NewClient(token string, log logrus.FieldLogger) *Client {
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = github.NewClient(tc)
	} else {
		client = github.NewClient(nil)
	}

	return &Client{
		client:      client,
		rateLimiter: NewRateLimiter(),
		retry:       newRetryer(log),
		log:         log,
	}
}

// CheckRepo verifies the repository exists and is accessible.
func (c *Client) CheckRepo(ctx context.Context, repo domain.Repo) error {
	return c.retry.do(ctx, fmt.Sprintf("check repository %s", repo), func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		_, resp, err := c.client.Repositories.Get(ctx, repo.Owner, repo.Name)
		c.updateRateLimit(resp)
		return c.classify(fmt.Sprintf("repository %s", repo), err)
	})
}

// Commits returns one page of the repository's commit feed.
func (c *Client) Commits(ctx context.Context, repo domain.Repo, branch string, page int) ([]Commit, error) {
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	if branch != "" {
		opts.SHA = branch
	}

	var out []Commit
	err := c.retry.do(ctx, fmt.Sprintf("list commits page %d of %s", page, repo), func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		commits, resp, err := c.client.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		c.updateRateLimit(resp)
		if err != nil {
			return c.classify("list commits", err)
		}

		out = out[:0]
		for _, rc := range commits {
			out = append(out, Commit{
				SHA:        rc.GetSHA(),
				Login:      rc.GetAuthor().GetLogin(),
				AuthorName: rc.GetCommit().GetAuthor().GetName(),
				Message:    rc.GetCommit().GetMessage(),
				AuthoredAt: rc.GetCommit().GetAuthor().GetDate().Time,
				Link:       rc.GetHTMLURL(),
			})
		}
		return nil
	})
	return out, err
}

// CommitDiff returns the diff statistics of a single commit. After retry
// exhaustion it logs and returns zero statistics instead of failing, so
// pagination of the surrounding resource can continue.
func (c *Client) CommitDiff(ctx context.Context, repo domain.Repo, sha string) domain.Diff {
	var diff domain.Diff
	err := c.retry.do(ctx, fmt.Sprintf("diff of commit %.7s", sha), func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		detail, resp, err := c.client.Repositories.GetCommit(ctx, repo.Owner, repo.Name, sha, nil)
		c.updateRateLimit(resp)
		if err != nil {
			return c.classify("get commit", err)
		}

		diff = domain.Diff{Total: detail.GetStats().GetTotal()}
		for _, f := range detail.Files {
			diff.Filenames = append(diff.Filenames, f.GetFilename())
		}
		return nil
	})
	if err != nil {
		c.log.Errorf("error getting diff of commit %.7s: %v", sha, err)
		return domain.Diff{}
	}
	return diff
}

// Issues returns one page of the repository's issue feed, pull requests included.
func (c *Client) Issues(ctx context.Context, repo domain.Repo, page int) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}

	var out []Issue
	err := c.retry.do(ctx, fmt.Sprintf("list issues page %d of %s", page, repo), func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		issues, resp, err := c.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		c.updateRateLimit(resp)
		if err != nil {
			return c.classify("list issues", err)
		}

		out = out[:0]
		for _, is := range issues {
			labels := make([]string, 0, len(is.Labels))
			for _, l := range is.Labels {
				labels = append(labels, l.GetName())
			}
			assignees := make([]string, 0, len(is.Assignees))
			for _, a := range is.Assignees {
				assignees = append(assignees, a.GetLogin())
			}
			out = append(out, Issue{
				Number:        is.GetNumber(),
				Title:         is.GetTitle(),
				Body:          is.GetBody(),
				State:         is.GetState(),
				Login:         is.GetUser().GetLogin(),
				Labels:        labels,
				Assignees:     assignees,
				CreatedAt:     is.GetCreatedAt().Time,
				Link:          is.GetHTMLURL(),
				CommentCount:  is.GetComments(),
				IsPullRequest: is.IsPullRequest(),
			})
		}
		return nil
	})
	return out, err
}

// Comments returns all comments of an issue or pull request.
func (c *Client) Comments(ctx context.Context, repo domain.Repo, number int) ([]Comment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var out []Comment
	for {
		var nextPage int
		err := c.retry.do(ctx, fmt.Sprintf("list comments of #%d", number), func(ctx context.Context) error {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			comments, resp, err := c.client.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
			c.updateRateLimit(resp)
			if err != nil {
				return c.classify("list comments", err)
			}
			for _, cm := range comments {
				out = append(out, Comment{
					Login: cm.GetUser().GetLogin(),
					Body:  cm.GetBody(),
				})
			}
			nextPage = resp.NextPage
			return nil
		})
		if err != nil {
			return nil, err
		}
		if nextPage == 0 {
			return out, nil
		}
		opts.Page = nextPage
	}
}

// PullCommits returns the SHAs of a pull request's constituent commits.
func (c *Client) PullCommits(ctx context.Context, repo domain.Repo, number int) ([]string, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var shas []string
	for {
		var nextPage int
		err := c.retry.do(ctx, fmt.Sprintf("list commits of PR #%d", number), func(ctx context.Context) error {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			commits, resp, err := c.client.PullRequests.ListCommits(ctx, repo.Owner, repo.Name, number, opts)
			c.updateRateLimit(resp)
			if err != nil {
				return c.classify("list pull request commits", err)
			}
			for _, rc := range commits {
				shas = append(shas, rc.GetSHA())
			}
			nextPage = resp.NextPage
			return nil
		})
		if err != nil {
			return nil, err
		}
		if nextPage == 0 {
			return shas, nil
		}
		opts.Page = nextPage
	}
}

// updateRateLimit feeds response headers into the rate limiter.
func (c *Client) updateRateLimit(resp *github.Response) {
	if resp != nil && resp.Rate.Remaining >= 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

// classify converts go-github errors into the application error taxonomy.
func (c *Client) classify(operation string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.NewRateLimitedError("API rate limit exceeded", rateErr.Rate.Reset.Time)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		resetAt := time.Now()
		if abuseErr.RetryAfter != nil {
			resetAt = resetAt.Add(*abuseErr.RetryAfter)
		}
		return apperrors.NewRateLimitedError("secondary rate limit exceeded", resetAt)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperrors.NewNotFoundError(operation)
		case http.StatusUnauthorized:
			return apperrors.NewUnauthorizedError("bad credentials, please check your token")
		case http.StatusForbidden:
			return apperrors.NewRateLimitedError(ghErr.Message, c.rateLimiter.ResetTime())
		}
	}

	return apperrors.NewTransientError(operation, err)
}
