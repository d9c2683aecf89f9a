package store

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ahwatch/auction-data/internal/realm"
)

var tableKeyCleaner = regexp.MustCompile(`[^a-zA-Z0-9]`)

// processedBlobPath is the deterministic blob location of a processed
// snapshot, keyed by partition and timestamp.
func processedBlobPath(p realm.Partition, lastModified int64) string {
	t := time.UnixMilli(lastModified).UTC()
	return fmt.Sprintf("processed/%s/%s/%d/%d/%d/%d.gz",
		p.Region, p.Realm, t.Year(), int(t.Month()), t.Day(), lastModified)
}

// indexTableKey names the table holding one snapshot's index fragments.
func indexTableKey(p realm.Partition, lastModified int64) string {
	return fmt.Sprintf("Auctions%s%s%d",
		tableKeyCleaner.ReplaceAllString(p.Region, ""),
		tableKeyCleaner.ReplaceAllString(p.Realm, ""),
		lastModified)
}

// changeRowKey zero-pads the timestamp so lexicographic row-key order is
// chronological.
func changeRowKey(lastModified int64) string {
	return fmt.Sprintf("%020d", lastModified)
}
