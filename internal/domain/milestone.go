package domain

import (
	"fmt"
	"strings"
	"time"
)

// Milestone is a labeled cutoff that closes a reporting window. Its cutoff
// is an exclusive upper bound: activity at exactly the cutoff instant
// belongs to the next milestone.
type Milestone struct {
	Cutoff time.Time
	Label  string
}

// Verdict classifies a timestamp relative to the configured windows.
type Verdict int

const (
	// TooOld means the timestamp predates the not-before cutoff.
	TooOld Verdict = iota
	// Bucketed means the timestamp falls inside a milestone window.
	Bucketed
	// TooNew means the timestamp is at or past the last milestone cutoff.
	TooNew
)

// Timeline partitions the time axis into milestone windows bounded below by
// a single not-before cutoff. Milestones must be strictly increasing.
type Timeline struct {
	notBefore  time.Time
	milestones []Milestone
}

// NewTimeline validates the milestone ordering and builds a Timeline.
func NewTimeline(notBefore time.Time, milestones []Milestone) (*Timeline, error) {
	if len(milestones) == 0 {
		return nil, fmt.Errorf("at least one milestone date is required")
	}
	for i := 1; i < len(milestones); i++ {
		if !milestones[i-1].Cutoff.Before(milestones[i].Cutoff) {
			return nil, fmt.Errorf("milestone dates must be strictly increasing: %s >= %s",
				milestones[i-1].Label, milestones[i].Label)
		}
	}
	if !notBefore.Before(milestones[0].Cutoff) {
		return nil, fmt.Errorf("not-before date %s is not before the first milestone %s",
			FormatDate(notBefore), milestones[0].Label)
	}
	return &Timeline{notBefore: notBefore, milestones: milestones}, nil
}

// Classify returns the index of the first milestone whose cutoff exceeds t,
// or a TooOld/TooNew verdict when t falls outside every window. It is
// monotonic in t, which the pagination early stop relies on.
func (tl *Timeline) Classify(t time.Time) (int, Verdict) {
	if t.Before(tl.notBefore) {
		return 0, TooOld
	}
	for i, ms := range tl.milestones {
		if t.Before(ms.Cutoff) {
			return i, Bucketed
		}
	}
	return 0, TooNew
}

// NotBefore returns the inclusive lower bound of the first window.
func (tl *Timeline) NotBefore() time.Time {
	return tl.notBefore
}

// Milestones returns the ordered milestone cutoffs.
func (tl *Timeline) Milestones() []Milestone {
	return tl.milestones
}

// Repo identifies a repository by owner and name.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses an "owner/name" pair.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" {
		return Repo{}, fmt.Errorf("invalid repository %q, expected owner/name", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// FileStem returns the output file stem for this repository.
func (r Repo) FileStem() string {
	return r.Owner + "-" + r.Name
}
