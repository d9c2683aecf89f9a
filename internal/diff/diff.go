package diff

import (
	"sort"

	"github.com/ahwatch/auction-data/internal/model"
	"github.com/ahwatch/auction-data/internal/snapshot"
)

// Result is the change log produced by reconciling two snapshots. All slices
// are sorted, so serializing a Result is byte-stable.
type Result struct {
	AddedIDs   []int64 `json:"added"`
	RemovedIDs []int64 `json:"removed"`
	ExpiredIDs []int64 `json:"expired"`

	// PriceChanges maps itemID to the delta of the cheapest per-unit buyout
	// between the two snapshots. Only items with a cheapest listing in both
	// snapshots are present.
	PriceChanges map[int64]float64 `json:"priceChanges"`

	// Sold maps itemID to removed listings attributed to sales, most
	// expensive first.
	Sold map[int64][]model.SoldListing `json:"sold"`

	// Relisted maps itemID to added listing id to the matched previous
	// price.
	Relisted map[int64]map[int64]model.Relist `json:"relisted"`

	// Owners maps each owner with removed listings to the item ids touched,
	// ascending. Downstream notification fan-out is scoped by this.
	Owners map[string][]int64 `json:"owners"`
}

// Diff reconciles previous against current. previous may be nil on the first
// run for a partition, in which case every listing is added and nothing is
// removed.
//
// As a side effect, a current listing whose time-left bucket matches its
// previous observation keeps the previous TimeLeftSince: an unchanged bucket
// is taken to be the same posting still counting down, not a new one.
func Diff(previous, current *snapshot.Snapshot) *Result {
	r := &Result{
		AddedIDs:     []int64{},
		RemovedIDs:   []int64{},
		ExpiredIDs:   []int64{},
		PriceChanges: make(map[int64]float64),
		Sold:         make(map[int64][]model.SoldListing),
		Relisted:     make(map[int64]map[int64]model.Relist),
		Owners:       make(map[string][]int64),
	}

	if previous == nil {
		r.AddedIDs = current.IDs()
		return r
	}

	for _, id := range current.IDs() {
		prev, err := previous.Listing(id)
		if err != nil {
			r.AddedIDs = append(r.AddedIDs, id)
			continue
		}
		cur, _ := current.Listing(id)
		if prev.TimeLeft == cur.TimeLeft {
			cur.TimeLeftSince = prev.TimeLeftSince
		}
	}

	for _, id := range previous.IDs() {
		if current.Has(id) {
			continue
		}
		l, _ := previous.Listing(id)
		if l.TimeLeft == model.TimeLeftShort {
			r.ExpiredIDs = append(r.ExpiredIDs, id)
		} else {
			r.RemovedIDs = append(r.RemovedIDs, id)
		}
	}

	for itemID := range current.Index().Items {
		curCheapest, ok := current.Cheapest(itemID)
		if !ok {
			continue
		}
		prevCheapest, ok := previous.Cheapest(itemID)
		if !ok {
			continue
		}
		r.PriceChanges[itemID] = curCheapest.BuyoutPerUnit - prevCheapest.BuyoutPerUnit
	}

	removedIdx := previous.BuildIndex(append([]int64(nil), r.RemovedIDs...))
	addedIdx := current.BuildIndex(append([]int64(nil), r.AddedIDs...))
	matchRelists(r, previous, current, removedIdx, addedIdx)

	return r
}

// matchRelists walks every owner+item bucket of removed listings, pairs them
// against the same owner+item's added listings by equal quantity, and
// attributes the unmatched remainder to sales.
func matchRelists(r *Result, previous, current *snapshot.Snapshot, removedIdx, addedIdx *snapshot.Index) {
	for _, owner := range sortedOwners(removedIdx.Owners) {
		items := removedIdx.Owners[owner]
		itemIDs := sortedItems(items)
		r.Owners[owner] = itemIDs

		for _, itemID := range itemIDs {
			removed := make([]*model.Listing, 0, len(items[itemID]))
			for _, id := range items[itemID] {
				l, _ := previous.Listing(id)
				removed = append(removed, l)
			}

			// Most expensive first: a seller undercutting themselves is
			// matched against their priciest old listing, biasing toward
			// crediting genuine relists.
			sort.SliceStable(removed, func(i, j int) bool {
				return removed[i].BuyoutPerUnit > removed[j].BuyoutPerUnit
			})

			if addedByOwner, ok := addedIdx.Owners[owner]; ok {
				for _, addedID := range addedByOwner[itemID] {
					added, _ := current.Listing(addedID)
					for i, old := range removed {
						if old.Quantity == added.Quantity {
							removed = append(removed[:i], removed[i+1:]...)
							bucket := r.Relisted[itemID]
							if bucket == nil {
								bucket = make(map[int64]model.Relist)
								r.Relisted[itemID] = bucket
							}
							bucket[addedID] = model.Relist{PreviousBuyoutPerUnit: old.BuyoutPerUnit}
							break
						}
					}
				}
			}

			for _, l := range removed {
				r.Sold[itemID] = append(r.Sold[itemID], model.SoldListing{
					Owner:         l.Owner,
					Quantity:      l.Quantity,
					BuyoutPerUnit: l.BuyoutPerUnit,
				})
			}
		}
	}
}

func sortedOwners(owners map[string]map[int64][]int64) []string {
	keys := make([]string, 0, len(owners))
	for k := range owners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedItems(items map[int64][]int64) []int64 {
	keys := make([]int64, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
