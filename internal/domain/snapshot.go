package domain

import (
	"sort"
	"time"
)

// dateLayout is the date format used in the snapshot files.
const dateLayout = "2006-01-02 15:04:05"

// DisplayZone is the fixed offset all record dates are rendered in.
var DisplayZone = time.FixedZone("UTC+3", 3*60*60)

// FormatDate renders a timestamp in the snapshot date format.
func FormatDate(t time.Time) string {
	return t.In(DisplayZone).Format(dateLayout)
}

// Comment is a single issue or pull-request comment.
type Comment struct {
	Author         string `json:"author"`
	AuthorFullName string `json:"author_full_name"`
	Body           string `json:"body"`
}

// CommitRecord is one commit credited to an author.
type CommitRecord struct {
	Message string   `json:"message"`
	Date    string   `json:"date"`
	Link    string   `json:"link"`
	Diff    DiffStat `json:"diff"`

	// At is the commit's own timestamp, used for the finalize sort.
	At time.Time `json:"-"`
}

// IssueRecord is one issue or pull request credited to an author.
// Diff is set only for pull requests.
type IssueRecord struct {
	Title             string    `json:"title"`
	Desc              string    `json:"desc"`
	Date              string    `json:"date"`
	Labels            []string  `json:"labels"`
	Assignees         []string  `json:"assignees"`
	AssigneeFullNames []string  `json:"assignee_full_names"`
	Link              string    `json:"link"`
	State             string    `json:"state"`
	Comments          []Comment `json:"comments"`
	Diff              *DiffStat `json:"diff,omitempty"`

	At time.Time `json:"-"`
}

// CommitBucket collects one author's commits in a milestone window.
// Count always equals len(List).
type CommitBucket struct {
	Count    int            `json:"count"`
	List     []CommitRecord `json:"list"`
	FullName string         `json:"full_name"`
}

// IssueBucket collects one author's issues or pull requests in a milestone
// window. Count always equals len(List).
type IssueBucket struct {
	Count    int           `json:"count"`
	List     []IssueRecord `json:"list"`
	FullName string        `json:"full_name"`
}

// Window is the per-milestone portion of a snapshot, keyed by author.
type Window struct {
	Date    string                   `json:"date"`
	Commits map[string]*CommitBucket `json:"commits"`
	Issues  map[string]*IssueBucket  `json:"issues"`
	PRs     map[string]*IssueBucket  `json:"prs"`
}

// AddCommit appends rec to the author's commit bucket, creating it on first use.
func (w *Window) AddCommit(author, fullName string, rec CommitRecord) {
	b, ok := w.Commits[author]
	if !ok {
		b = &CommitBucket{FullName: fullName}
		w.Commits[author] = b
	}
	b.List = append(b.List, rec)
	b.Count++
}

// AddIssue appends rec to the author's issue bucket, creating it on first use.
func (w *Window) AddIssue(author, fullName string, rec IssueRecord) {
	addIssueRecord(w.Issues, author, fullName, rec)
}

// AddPull appends rec to the author's pull-request bucket, creating it on first use.
func (w *Window) AddPull(author, fullName string, rec IssueRecord) {
	addIssueRecord(w.PRs, author, fullName, rec)
}

func addIssueRecord(m map[string]*IssueBucket, author, fullName string, rec IssueRecord) {
	b, ok := m[author]
	if !ok {
		b = &IssueBucket{FullName: fullName}
		m[author] = b
	}
	b.List = append(b.List, rec)
	b.Count++
}

// Totals returns the commit, issue, and pull-request record counts of the window.
func (w *Window) Totals() (commits, issues, prs int) {
	for _, b := range w.Commits {
		commits += b.Count
	}
	for _, b := range w.Issues {
		issues += b.Count
	}
	for _, b := range w.PRs {
		prs += b.Count
	}
	return
}

// Snapshot is the full per-repository, per-milestone activity structure.
// It marshals as an ordered array of milestone windows; author keys inside
// each window serialize in sorted order since encoding/json sorts map keys.
type Snapshot []*Window

// NewSnapshot builds an empty snapshot with one window per milestone.
func (tl *Timeline) NewSnapshot() Snapshot {
	snap := make(Snapshot, 0, len(tl.milestones))
	for _, ms := range tl.milestones {
		snap = append(snap, &Window{
			Date:    ms.Label,
			Commits: make(map[string]*CommitBucket),
			Issues:  make(map[string]*IssueBucket),
			PRs:     make(map[string]*IssueBucket),
		})
	}
	return snap
}

// Finalize sorts every author's record list by timestamp ascending.
// The sort is stable, so applying Finalize twice equals applying it once.
func (s Snapshot) Finalize() {
	for _, w := range s {
		for _, b := range w.Commits {
			list := b.List
			sort.SliceStable(list, func(i, j int) bool { return list[i].At.Before(list[j].At) })
		}
		sortIssueBuckets(w.Issues)
		sortIssueBuckets(w.PRs)
	}
}

func sortIssueBuckets(m map[string]*IssueBucket) {
	for _, b := range m {
		list := b.List
		sort.SliceStable(list, func(i, j int) bool { return list[i].At.Before(list[j].At) })
	}
}
