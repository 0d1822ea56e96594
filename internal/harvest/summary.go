package harvest

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
)

// printSummary renders per-milestone activity counts after finalization.
func (h *Harvester) printSummary(repo domain.Repo, snap domain.Snapshot) {
	fmt.Printf("\n%s\n", repo)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Milestone", "Commits", "Issues", "PRs"})
	for _, w := range snap {
		commits, issues, prs := w.Totals()
		table.Append([]string{
			w.Date,
			fmt.Sprintf("%d", commits),
			fmt.Sprintf("%d", issues),
			fmt.Sprintf("%d", prs),
		})
	}
	table.Render()
}
