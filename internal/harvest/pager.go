package harvest

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
	apperrors "github.com/furkanakkurt1335/gather-commits-issues-prs/internal/errors"
)

// pageFunc processes one page of a resource. It reports how many items the
// page carried and whether an item older than the not-before cutoff was
// seen, which ends pagination since the feed is newest-first.
type pageFunc func(ctx context.Context, page int) (items int, seenOlder bool, err error)

// forEachPage drives page-by-page retrieval starting at page 1 and persists
// the snapshot after every non-empty page, so each page boundary is a
// durable checkpoint. A failed page fetch stops this resource only; the
// harvest moves on. Only a persistence failure is returned as an error.
func (h *Harvester) forEachPage(ctx context.Context, log logrus.FieldLogger, resource string,
	snap domain.Snapshot, path string, fetch pageFunc) error {

	for page := 1; ; page++ {
		items, seenOlder, err := fetch(ctx, page)
		if err != nil {
			if apperrors.IsUnauthorized(err) {
				log.Error("bad credentials, please check your token")
			}
			log.Errorf("error fetching %s page %d: %v", resource, page, err)
			return nil
		}
		if items == 0 {
			return nil
		}

		if err := writeSnapshot(path, snap); err != nil {
			return err
		}
		log.Debugf("saved %s progress after page %d", resource, page)

		if seenOlder {
			log.Debugf("found %s before the cut-off date, stopping pagination", resource)
			return nil
		}
	}
}
