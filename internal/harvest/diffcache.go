package harvest

import "github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"

// diffCache memoizes per-commit diff lookups within one repository harvest,
// so a commit appearing both in the commit feed and in a pull request's
// commit list is fetched once. Failed lookups (zero stats) are cached too.
type diffCache struct {
	diffs map[string]domain.Diff
}

func newDiffCache() *diffCache {
	return &diffCache{diffs: make(map[string]domain.Diff)}
}

// getOrFetch returns the cached diff for sha, calling fetch on a miss.
func (c *diffCache) getOrFetch(sha string, fetch func() domain.Diff) domain.Diff {
	if d, ok := c.diffs[sha]; ok {
		return d
	}
	d := fetch()
	c.diffs[sha] = d
	return d
}
