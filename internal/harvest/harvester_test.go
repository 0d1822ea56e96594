package harvest

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/collector"
	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
	apperrors "github.com/furkanakkurt1335/gather-commits-issues-prs/internal/errors"
)

// fakeSource serves canned pages and records every request.
type fakeSource struct {
	repoErr     error
	commitPages [][]collector.Commit
	issuePages  [][]collector.Issue
	comments    map[int][]collector.Comment
	pullCommits map[int][]string
	diffs       map[string]domain.Diff

	commitPagesRequested []int
	issuePagesRequested  []int
	commentRequests      []int
	diffCalls            map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		comments:    map[int][]collector.Comment{},
		pullCommits: map[int][]string{},
		diffs:       map[string]domain.Diff{},
		diffCalls:   map[string]int{},
	}
}

func (f *fakeSource) CheckRepo(ctx context.Context, repo domain.Repo) error {
	return f.repoErr
}

func (f *fakeSource) Commits(ctx context.Context, repo domain.Repo, branch string, page int) ([]collector.Commit, error) {
	f.commitPagesRequested = append(f.commitPagesRequested, page)
	if page <= len(f.commitPages) {
		return f.commitPages[page-1], nil
	}
	return nil, nil
}

func (f *fakeSource) CommitDiff(ctx context.Context, repo domain.Repo, sha string) domain.Diff {
	f.diffCalls[sha]++
	return f.diffs[sha]
}

func (f *fakeSource) Issues(ctx context.Context, repo domain.Repo, page int) ([]collector.Issue, error) {
	f.issuePagesRequested = append(f.issuePagesRequested, page)
	if page <= len(f.issuePages) {
		return f.issuePages[page-1], nil
	}
	return nil, nil
}

func (f *fakeSource) Comments(ctx context.Context, repo domain.Repo, number int) ([]collector.Comment, error) {
	f.commentRequests = append(f.commentRequests, number)
	return f.comments[number], nil
}

func (f *fakeSource) PullCommits(ctx context.Context, repo domain.Repo, number int) ([]string, error) {
	return f.pullCommits[number], nil
}

var (
	testRepo  = domain.Repo{Owner: "octo", Name: "proj"}
	inWindow  = time.Date(2025, 3, 1, 12, 0, 0, 0, domain.DisplayZone)
	tooOld    = time.Date(2025, 1, 1, 12, 0, 0, 0, domain.DisplayZone)
	secondWin = time.Date(2025, 6, 1, 12, 0, 0, 0, domain.DisplayZone)
)

func newTestHarvester(t *testing.T, src collector.Source, outDir string, fullNames map[string]string) *Harvester {
	t.Helper()

	notBefore := time.Date(2025, 2, 10, 0, 0, 0, 0, domain.DisplayZone)
	cutoffs := []time.Time{
		time.Date(2025, 5, 15, 9, 0, 0, 0, domain.DisplayZone),
		time.Date(2025, 8, 15, 9, 0, 0, 0, domain.DisplayZone),
	}
	milestones := make([]domain.Milestone, 0, len(cutoffs))
	for _, c := range cutoffs {
		milestones = append(milestones, domain.Milestone{Cutoff: c, Label: domain.FormatDate(c)})
	}
	tl, err := domain.NewTimeline(notBefore, milestones)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(src, Config{
		Timeline:  tl,
		OutputDir: outDir,
		FullNames: fullNames,
	}, log)
}

// A page-2 item older than the cutoff ends pagination: the rest of page 2
// is skipped and page 3 is never requested.
func TestPaginationStopsAtCutoff(t *testing.T) {
	src := newFakeSource()
	src.commitPages = [][]collector.Commit{
		{
			{SHA: "a1", Login: "alice", Message: "one", AuthoredAt: inWindow},
			{SHA: "a2", Login: "alice", Message: "two", AuthoredAt: inWindow},
		},
		{
			{SHA: "b1", Login: "alice", Message: "old", AuthoredAt: tooOld},
			{SHA: "b2", Login: "alice", Message: "older", AuthoredAt: tooOld.Add(-time.Hour)},
			{SHA: "b3", Login: "alice", Message: "oldest", AuthoredAt: tooOld.Add(-2 * time.Hour)},
		},
		{
			{SHA: "c1", Login: "alice", Message: "never seen", AuthoredAt: inWindow},
		},
	}

	h := newTestHarvester(t, src, t.TempDir(), nil)
	snap, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, src.commitPagesRequested)
	require.Contains(t, snap[0].Commits, "alice")
	assert.Equal(t, 2, snap[0].Commits["alice"].Count)
	// The too-old commits never reached the diff lookup.
	assert.NotContains(t, src.diffCalls, "b1")
}

// A commit with two Co-authored-by trailers credits three independent
// authors with the same record.
func TestCoAuthorFanOut(t *testing.T) {
	msg := "Add feature\n\nCo-authored-by: Jane Doe <jane@example.com>\nCo-authored-by: John Roe <john@example.com>"
	src := newFakeSource()
	src.commitPages = [][]collector.Commit{
		{{SHA: "a1", Login: "alice", Message: msg, AuthoredAt: inWindow, Link: "https://github.com/octo/proj/commit/a1"}},
	}

	h := newTestHarvester(t, src, t.TempDir(), nil)
	snap, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	for _, author := range []string{"alice", "Jane Doe", "John Roe"} {
		b, ok := snap[0].Commits[author]
		require.True(t, ok, "missing bucket for %s", author)
		assert.Equal(t, 1, b.Count)
		assert.Equal(t, msg, b.List[0].Message)
		assert.Equal(t, "https://github.com/octo/proj/commit/a1", b.List[0].Link)
	}
}

// A commit without a login falls back to the raw committer name, and to
// "unknown" when that is missing too.
func TestAuthorFallback(t *testing.T) {
	src := newFakeSource()
	src.commitPages = [][]collector.Commit{
		{
			{SHA: "a1", AuthorName: "Someone Offline", Message: "m1", AuthoredAt: inWindow},
			{SHA: "a2", Message: "m2", AuthoredAt: inWindow},
		},
	}

	h := newTestHarvester(t, src, t.TempDir(), nil)
	snap, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Contains(t, snap[0].Commits, "Someone Offline")
	assert.Contains(t, snap[0].Commits, "unknown")
}

// A commit SHA seen both in the commit feed and in a PR's commit list
// triggers exactly one diff lookup.
func TestDiffCacheSharedAcrossResources(t *testing.T) {
	src := newFakeSource()
	src.diffs["abc"] = domain.Diff{Filenames: []string{"a.go", "b.go"}, Total: 10}
	src.diffs["def"] = domain.Diff{Filenames: []string{"b.go", "c.go"}, Total: 5}
	src.commitPages = [][]collector.Commit{
		{{SHA: "abc", Login: "alice", Message: "m", AuthoredAt: inWindow}},
	}
	src.issuePages = [][]collector.Issue{
		{{Number: 7, Title: "pr", Login: "bob", CreatedAt: inWindow, State: "open", IsPullRequest: true}},
	}
	src.pullCommits[7] = []string{"abc", "def"}

	h := newTestHarvester(t, src, t.TempDir(), nil)
	snap, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, 1, src.diffCalls["abc"])
	assert.Equal(t, 1, src.diffCalls["def"])

	assert.Equal(t, domain.DiffStat{Files: 2, Total: 10}, snap[0].Commits["alice"].List[0].Diff)

	pr := snap[0].PRs["bob"].List[0]
	require.NotNil(t, pr.Diff)
	// File names unioned, line totals summed.
	assert.Equal(t, domain.DiffStat{Files: 3, Total: 15}, *pr.Diff)
}

// Comments are fetched only for items that report a nonzero comment count.
func TestCommentsFetchedOnlyWhenPresent(t *testing.T) {
	src := newFakeSource()
	src.issuePages = [][]collector.Issue{
		{
			{Number: 1, Title: "quiet", Login: "bob", CreatedAt: inWindow, State: "open"},
			{Number: 2, Title: "chatty", Login: "bob", CreatedAt: inWindow, State: "closed", CommentCount: 2},
		},
	}
	src.comments[2] = []collector.Comment{
		{Login: "carol", Body: "first"},
		{Login: "dave", Body: "second"},
	}

	h := newTestHarvester(t, src, t.TempDir(), map[string]string{"carol": "Carol Mapped"})
	snap, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, src.commentRequests)

	records := snap[0].Issues["bob"].List
	require.Len(t, records, 2)
	var chatty domain.IssueRecord
	for _, r := range records {
		if r.Title == "chatty" {
			chatty = r
		}
	}
	require.Len(t, chatty.Comments, 2)
	assert.Equal(t, "Carol Mapped", chatty.Comments[0].AuthorFullName)
	assert.Equal(t, "dave", chatty.Comments[1].AuthorFullName)
}

// Issues and pull requests land in separate maps, and items in the second
// milestone window land in the second bucket.
func TestIssueAndPullClassification(t *testing.T) {
	src := newFakeSource()
	src.issuePages = [][]collector.Issue{
		{
			{Number: 1, Title: "plain issue", Login: "bob", CreatedAt: inWindow, State: "open"},
			{Number: 2, Title: "a pr", Login: "bob", CreatedAt: secondWin, State: "open", IsPullRequest: true},
		},
	}

	h := newTestHarvester(t, src, t.TempDir(), nil)
	snap, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Contains(t, snap[0].Issues, "bob")
	assert.Empty(t, snap[0].PRs)
	assert.Contains(t, snap[1].PRs, "bob")
	assert.Empty(t, snap[1].Issues)
}

// A missing repository is skipped without writing any output file.
func TestSkipOnMissingRepository(t *testing.T) {
	src := newFakeSource()
	src.repoErr = apperrors.NewNotFoundError("repository octo/proj")

	dir := t.TempDir()
	h := newTestHarvester(t, src, dir, nil)

	_, err := h.HarvestRepo(context.Background(), testRepo)
	assert.True(t, apperrors.IsNotFound(err))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	// Run swallows the skip and keeps going.
	h.Run(context.Background(), []domain.Repo{testRepo})
}

// The terminal snapshot file is a valid JSON array with one element per
// milestone window.
func TestSnapshotFileWritten(t *testing.T) {
	src := newFakeSource()
	src.commitPages = [][]collector.Commit{
		{{SHA: "a1", Login: "alice", Message: "m", AuthoredAt: inWindow}},
	}

	dir := t.TempDir()
	h := newTestHarvester(t, src, dir, map[string]string{"alice": "Alice Mapped"})
	_, err := h.HarvestRepo(context.Background(), testRepo)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "octo-proj.json"))
	require.NoError(t, err)

	var windows []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &windows))
	require.Len(t, windows, 2)

	var commits map[string]struct {
		Count    int    `json:"count"`
		FullName string `json:"full_name"`
	}
	require.NoError(t, json.Unmarshal(windows[0]["commits"], &commits))
	assert.Equal(t, 1, commits["alice"].Count)
	assert.Equal(t, "Alice Mapped", commits["alice"].FullName)
}
