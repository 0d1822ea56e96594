package harvest

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/collector"
	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
	apperrors "github.com/furkanakkurt1335/gather-commits-issues-prs/internal/errors"
)

// coauthorPattern matches Co-authored-by trailers in commit messages.
var coauthorPattern = regexp.MustCompile(`Co-authored-by: (.*) <.*>`)

// Config holds the harvesting parameters, constructed explicitly by the CLI
// layer and passed in. The harvester keeps no global state.
type Config struct {
	Timeline  *domain.Timeline
	Branch    string
	OutputDir string
	FullNames map[string]string
}

// Harvester gathers one repository's commits, issues, and pull requests
// into milestone buckets and persists the snapshot after every page.
type Harvester struct {
	src collector.Source
	cfg Config
	log logrus.FieldLogger
}

// New creates a Harvester.
func New(src collector.Source, cfg Config, log logrus.FieldLogger) *Harvester {
	return &Harvester{src: src, cfg: cfg, log: log}
}

// Run harvests every repository in order. A repository that fails or is
// inaccessible is logged and skipped; the run continues with the next one.
func (h *Harvester) Run(ctx context.Context, repos []domain.Repo) {
	for _, repo := range repos {
		if _, err := h.HarvestRepo(ctx, repo); err != nil {
			if apperrors.IsNotFound(err) {
				h.log.Errorf("repository %s not found or inaccessible, skipping", repo)
				continue
			}
			h.log.Errorf("error gathering data for %s: %v", repo, err)
		}
	}
}

// HarvestRepo gathers all activity of one repository. On a missing or
// inaccessible repository it returns a not-found error and writes nothing.
func (h *Harvester) HarvestRepo(ctx context.Context, repo domain.Repo) (domain.Snapshot, error) {
	log := h.log.WithFields(logrus.Fields{
		"repo": repo.String(),
		"run":  uuid.New().String()[:8],
	})
	log.Infof("gathering data for %s", repo)

	if err := h.src.CheckRepo(ctx, repo); err != nil {
		return nil, err
	}

	snap := h.cfg.Timeline.NewSnapshot()
	path := filepath.Join(h.cfg.OutputDir, repo.FileStem()+".json")
	cache := newDiffCache()

	if err := h.harvestCommits(ctx, log, repo, snap, path, cache); err != nil {
		return nil, err
	}
	if err := h.harvestIssues(ctx, log, repo, snap, path, cache); err != nil {
		return nil, err
	}

	snap.Finalize()
	if err := writeSnapshot(path, snap); err != nil {
		return nil, err
	}

	h.printSummary(repo, snap)
	log.Infof("finished gathering all data for %s", repo)
	return snap, nil
}

// harvestCommits pages through the commit feed, crediting the primary author
// and every co-author named in the commit message.
func (h *Harvester) harvestCommits(ctx context.Context, log logrus.FieldLogger, repo domain.Repo,
	snap domain.Snapshot, path string, cache *diffCache) error {

	log.Infof("gathering commits for %s", repo)
	return h.forEachPage(ctx, log, "commits", snap, path, func(ctx context.Context, page int) (int, bool, error) {
		commits, err := h.src.Commits(ctx, repo, h.cfg.Branch, page)
		if err != nil {
			return 0, false, err
		}

		seenOlder := false
		for _, c := range commits {
			if c.AuthoredAt.IsZero() {
				log.Warnf("skipping commit %.7s with no author date", c.SHA)
				continue
			}
			idx, verdict := h.cfg.Timeline.Classify(c.AuthoredAt)
			if verdict == domain.TooOld {
				// The feed is newest-first, so everything after this
				// commit is older still.
				seenOlder = true
				break
			}
			if verdict == domain.TooNew {
				continue
			}

			diff := cache.getOrFetch(c.SHA, func() domain.Diff {
				return h.src.CommitDiff(ctx, repo, c.SHA)
			})
			rec := domain.CommitRecord{
				Message: c.Message,
				Date:    domain.FormatDate(c.AuthoredAt),
				Link:    c.Link,
				Diff:    diff.Stat(),
				At:      c.AuthoredAt,
			}
			for _, author := range commitAuthors(c) {
				snap[idx].AddCommit(author, h.fullName(author), rec)
			}
		}
		return len(commits), seenOlder, nil
	})
}

// harvestIssues pages through the issue feed, which includes pull requests.
func (h *Harvester) harvestIssues(ctx context.Context, log logrus.FieldLogger, repo domain.Repo,
	snap domain.Snapshot, path string, cache *diffCache) error {

	log.Infof("gathering issues and PRs for %s", repo)
	return h.forEachPage(ctx, log, "issues/PRs", snap, path, func(ctx context.Context, page int) (int, bool, error) {
		issues, err := h.src.Issues(ctx, repo, page)
		if err != nil {
			return 0, false, err
		}

		seenOlder := false
		for _, is := range issues {
			if is.CreatedAt.IsZero() {
				log.Warnf("skipping item #%d with no creation date", is.Number)
				continue
			}
			idx, verdict := h.cfg.Timeline.Classify(is.CreatedAt)
			if verdict == domain.TooOld {
				seenOlder = true
				break
			}
			if verdict == domain.TooNew {
				continue
			}

			rec := domain.IssueRecord{
				Title:             is.Title,
				Desc:              is.Body,
				Date:              domain.FormatDate(is.CreatedAt),
				Labels:            is.Labels,
				Assignees:         is.Assignees,
				AssigneeFullNames: h.fullNames(is.Assignees),
				Link:              is.Link,
				State:             is.State,
				Comments:          h.comments(ctx, log, repo, is),
				At:                is.CreatedAt,
			}

			if is.IsPullRequest {
				stat := h.pullDiff(ctx, log, repo, is.Number, cache)
				rec.Diff = &stat
				snap[idx].AddPull(is.Login, h.fullName(is.Login), rec)
			} else {
				snap[idx].AddIssue(is.Login, h.fullName(is.Login), rec)
			}
		}
		return len(issues), seenOlder, nil
	})
}

// comments fetches an item's comments, skipping the call entirely when the
// item reports none. Fetch failures degrade to an empty list.
func (h *Harvester) comments(ctx context.Context, log logrus.FieldLogger, repo domain.Repo, is collector.Issue) []domain.Comment {
	out := []domain.Comment{}
	if is.CommentCount == 0 {
		return out
	}

	comments, err := h.src.Comments(ctx, repo, is.Number)
	if err != nil {
		log.Errorf("error fetching comments of #%d: %v", is.Number, err)
		return out
	}
	for _, cm := range comments {
		out = append(out, domain.Comment{
			Author:         cm.Login,
			AuthorFullName: h.fullName(cm.Login),
			Body:           cm.Body,
		})
	}
	return out
}

// pullDiff aggregates the diff statistics of a pull request's constituent
// commits: file names unioned, line totals summed. Failures degrade to zero
// statistics.
func (h *Harvester) pullDiff(ctx context.Context, log logrus.FieldLogger, repo domain.Repo, number int, cache *diffCache) domain.DiffStat {
	shas, err := h.src.PullCommits(ctx, repo, number)
	if err != nil {
		log.Errorf("error fetching commits of PR #%d: %v", number, err)
		return domain.DiffStat{}
	}

	diffs := make([]domain.Diff, 0, len(shas))
	for _, sha := range shas {
		diffs = append(diffs, cache.getOrFetch(sha, func() domain.Diff {
			return h.src.CommitDiff(ctx, repo, sha)
		}))
	}
	return domain.MergeDiffs(diffs)
}

// fullName resolves an author identity to a display name, falling back to
// the identity itself.
func (h *Harvester) fullName(author string) string {
	if name, ok := h.cfg.FullNames[author]; ok {
		return name
	}
	return author
}

func (h *Harvester) fullNames(authors []string) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, h.fullName(a))
	}
	return names
}

// commitAuthors returns every identity credited for a commit: co-authors
// named in the message trailers plus the primary author (login, raw
// committer name, or "unknown").
func commitAuthors(c collector.Commit) []string {
	primary := c.Login
	if primary == "" {
		primary = c.AuthorName
	}
	if primary == "" {
		primary = "unknown"
	}

	matches := coauthorPattern.FindAllStringSubmatch(c.Message, -1)
	authors := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		authors = append(authors, m[1])
	}
	return append(authors, primary)
}
