package domain

// Diff holds the change statistics of a single commit, keeping the exact
// file names so pull-request aggregation can deduplicate files that several
// constituent commits touch.
type Diff struct {
	Filenames []string
	Total     int
}

// DiffStat is the serialized form: distinct file count and total changed lines.
type DiffStat struct {
	Files int `json:"files"`
	Total int `json:"total"`
}

// Stat collapses the diff into its serialized counts.
func (d Diff) Stat() DiffStat {
	return DiffStat{Files: len(d.Filenames), Total: d.Total}
}

// MergeDiffs aggregates per-commit diffs into one pull-request DiffStat:
// file names are unioned, line totals summed. The sum is a naive
// approximation since later commits can revert earlier ones.
func MergeDiffs(diffs []Diff) DiffStat {
	files := make(map[string]struct{})
	total := 0
	for _, d := range diffs {
		for _, name := range d.Filenames {
			files[name] = struct{}{}
		}
		total += d.Total
	}
	return DiffStat{Files: len(files), Total: total}
}
