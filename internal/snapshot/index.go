package snapshot

import "sort"

// Index holds the two derived views of a listing set: by-item listing ids
// ordered cheapest first, and by-owner itemID to listing ids.
type Index struct {
	Items  map[int64][]int64
	Owners map[string]map[int64][]int64
}

// BuildIndex indexes a subset of the snapshot's listings. A nil ids slice
// indexes everything. The diff engine uses subsets to index just the removed
// or added listings of a reconciliation.
func (s *Snapshot) BuildIndex(ids []int64) *Index {
	if ids == nil {
		ids = make([]int64, 0, len(s.listings))
		for id := range s.listings {
			ids = append(ids, id)
		}
	}

	// Feed order first so the per-item stable sort breaks price ties by
	// insertion order.
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] < s.seq[ids[j]] })

	idx := &Index{
		Items:  make(map[int64][]int64),
		Owners: make(map[string]map[int64][]int64),
	}

	for _, id := range ids {
		l, ok := s.listings[id]
		if !ok {
			continue
		}

		idx.Items[l.ItemID] = append(idx.Items[l.ItemID], id)

		ownerSet := idx.Owners[l.Owner]
		if ownerSet == nil {
			ownerSet = make(map[int64][]int64)
			idx.Owners[l.Owner] = ownerSet
		}
		ownerSet[l.ItemID] = append(ownerSet[l.ItemID], id)
	}

	for _, bucket := range idx.Items {
		sort.SliceStable(bucket, func(i, j int) bool {
			return s.listings[bucket[i]].BuyoutPerUnit < s.listings[bucket[j]].BuyoutPerUnit
		})
	}

	return idx
}
