package diff

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ahwatch/auction-data/internal/model"
	"github.com/ahwatch/auction-data/internal/snapshot"
)

func snap(t *testing.T, lastModified int64, listings ...*model.Listing) *snapshot.Snapshot {
	t.Helper()
	m := make(map[int64]*model.Listing, len(listings))
	for _, l := range listings {
		cp := *l
		if cp.TimeLeftSince == 0 {
			cp.TimeLeftSince = lastModified
		}
		m[cp.ID] = &cp
	}
	return snapshot.FromListings(m, lastModified)
}

func listing(id, item int64, owner string, qty int, perUnit float64, tl model.TimeLeft) *model.Listing {
	return &model.Listing{
		ID:            id,
		ItemID:        item,
		Owner:         owner,
		Quantity:      qty,
		BuyoutPerUnit: perUnit,
		TimeLeft:      tl,
	}
}

func TestDiff_FirstRun(t *testing.T) {
	cur := snap(t, 2000,
		listing(1, 300, "Alda-Medivh", 1, 10, model.TimeLeftLong),
		listing(2, 300, "Breck-Medivh", 2, 12, model.TimeLeftShort),
	)

	r := Diff(nil, cur)

	if len(r.AddedIDs) != 2 {
		t.Errorf("AddedIDs = %v, want 2 entries", r.AddedIDs)
	}
	if len(r.RemovedIDs) != 0 || len(r.ExpiredIDs) != 0 {
		t.Errorf("first run produced removals: removed=%v expired=%v", r.RemovedIDs, r.ExpiredIDs)
	}
	if len(r.PriceChanges) != 0 {
		t.Errorf("first run produced price changes: %v", r.PriceChanges)
	}
}

func TestDiff_ExpiryVsRemoval(t *testing.T) {
	prev := snap(t, 1000,
		listing(1, 300, "Alda-Medivh", 1, 10, model.TimeLeftShort),
		listing(2, 300, "Alda-Medivh", 1, 10, model.TimeLeftVeryLong),
	)
	cur := snap(t, 2000)

	r := Diff(prev, cur)

	if len(r.ExpiredIDs) != 1 || r.ExpiredIDs[0] != 1 {
		t.Errorf("ExpiredIDs = %v, want [1]", r.ExpiredIDs)
	}
	if len(r.RemovedIDs) != 1 || r.RemovedIDs[0] != 2 {
		t.Errorf("RemovedIDs = %v, want [2]", r.RemovedIDs)
	}
}

func TestDiff_TimeLeftSinceCarryOver(t *testing.T) {
	prev := snap(t, 1000,
		listing(1, 300, "Alda-Medivh", 1, 10, model.TimeLeftLong),
		listing(2, 300, "Alda-Medivh", 1, 10, model.TimeLeftLong),
	)
	cur := snap(t, 2000,
		listing(1, 300, "Alda-Medivh", 1, 10, model.TimeLeftLong),   // same bucket
		listing(2, 300, "Alda-Medivh", 1, 10, model.TimeLeftMedium), // bucket moved
	)

	Diff(prev, cur)

	same, _ := cur.Listing(1)
	if same.TimeLeftSince != 1000 {
		t.Errorf("unchanged bucket TimeLeftSince = %d, want carried 1000", same.TimeLeftSince)
	}
	moved, _ := cur.Listing(2)
	if moved.TimeLeftSince != 2000 {
		t.Errorf("changed bucket TimeLeftSince = %d, want fresh 2000", moved.TimeLeftSince)
	}
}

func TestDiff_PriceChanges(t *testing.T) {
	prev := snap(t, 1000,
		listing(1, 300, "Alda-Medivh", 1, 15, model.TimeLeftLong),
		listing(2, 300, "Breck-Medivh", 1, 22, model.TimeLeftLong),
		listing(3, 512, "Alda-Medivh", 1, 100, model.TimeLeftLong),
	)
	cur := snap(t, 2000,
		listing(1, 300, "Alda-Medivh", 1, 15, model.TimeLeftLong),
		listing(4, 300, "Cale-Medivh", 1, 12, model.TimeLeftLong),
		listing(5, 700, "Cale-Medivh", 1, 50, model.TimeLeftLong), // new item
	)

	r := Diff(prev, cur)

	if got := r.PriceChanges[300]; got != -3 {
		t.Errorf("PriceChanges[300] = %v, want -3 (12 - 15)", got)
	}
	// Item 700 has no previous cheapest and must not appear.
	if _, ok := r.PriceChanges[700]; ok {
		t.Error("item with no previous listings appeared in PriceChanges")
	}
	// Item 512 has no current cheapest and must not appear.
	if _, ok := r.PriceChanges[512]; ok {
		t.Error("item with no current listings appeared in PriceChanges")
	}
}

// Spec scenario for relist matching: the seller's most expensive removed
// listing is matched first, the remainder is attributed to a sale.
func TestDiff_RelistMatching(t *testing.T) {
	prev := snap(t, 1000,
		listing(7, 300, "Alda-Medivh", 1, 15, model.TimeLeftVeryLong),
		listing(8, 300, "Alda-Medivh", 1, 20, model.TimeLeftVeryLong),
	)
	cur := snap(t, 2000,
		listing(10, 300, "Alda-Medivh", 1, 14, model.TimeLeftVeryLong),
	)

	r := Diff(prev, cur)

	if len(r.RemovedIDs) != 2 {
		t.Fatalf("RemovedIDs = %v, want [7 8]", r.RemovedIDs)
	}

	relist, ok := r.Relisted[300][10]
	if !ok {
		t.Fatalf("Relisted[300][10] missing, got %v", r.Relisted)
	}
	if relist.PreviousBuyoutPerUnit != 20 {
		t.Errorf("matched previous price = %v, want 20 (most expensive first)", relist.PreviousBuyoutPerUnit)
	}

	sold := r.Sold[300]
	if len(sold) != 1 {
		t.Fatalf("Sold[300] = %v, want exactly one entry", sold)
	}
	if sold[0].BuyoutPerUnit != 15 || sold[0].Owner != "Alda-Medivh" || sold[0].Quantity != 1 {
		t.Errorf("Sold[300][0] = %+v, want listing 7's fields", sold[0])
	}

	if got := r.Owners["Alda-Medivh"]; len(got) != 1 || got[0] != 300 {
		t.Errorf("Owners[Alda-Medivh] = %v, want [300]", got)
	}
}

func TestDiff_RelistRequiresEqualQuantity(t *testing.T) {
	prev := snap(t, 1000,
		listing(7, 300, "Alda-Medivh", 3, 15, model.TimeLeftVeryLong),
	)
	cur := snap(t, 2000,
		listing(10, 300, "Alda-Medivh", 1, 14, model.TimeLeftVeryLong),
	)

	r := Diff(prev, cur)

	if len(r.Relisted) != 0 {
		t.Errorf("quantity mismatch produced relists: %v", r.Relisted)
	}
	if len(r.Sold[300]) != 1 {
		t.Errorf("Sold[300] = %v, want the unmatched removal", r.Sold[300])
	}
}

func TestDiff_RelistOnlySameOwner(t *testing.T) {
	prev := snap(t, 1000,
		listing(7, 300, "Alda-Medivh", 1, 15, model.TimeLeftVeryLong),
	)
	cur := snap(t, 2000,
		listing(10, 300, "Breck-Medivh", 1, 14, model.TimeLeftVeryLong),
	)

	r := Diff(prev, cur)

	if len(r.Relisted) != 0 {
		t.Errorf("cross-owner relist match: %v", r.Relisted)
	}
	if len(r.Sold[300]) != 1 {
		t.Errorf("Sold[300] = %v, want Alda's removal", r.Sold[300])
	}
}

func TestDiff_ExpiredListingsNotSold(t *testing.T) {
	prev := snap(t, 1000,
		listing(7, 300, "Alda-Medivh", 1, 15, model.TimeLeftShort),
	)
	cur := snap(t, 2000)

	r := Diff(prev, cur)

	if len(r.Sold) != 0 {
		t.Errorf("expired listing attributed to sale: %v", r.Sold)
	}
	if len(r.Owners) != 0 {
		t.Errorf("expired listing affected owners: %v", r.Owners)
	}
}

func TestDiff_Deterministic(t *testing.T) {
	mk := func() (*snapshot.Snapshot, *snapshot.Snapshot) {
		prev := snap(t, 1000,
			listing(1, 300, "Alda-Medivh", 1, 15, model.TimeLeftVeryLong),
			listing(2, 300, "Alda-Medivh", 1, 20, model.TimeLeftVeryLong),
			listing(3, 300, "Breck-Medivh", 2, 9, model.TimeLeftShort),
			listing(4, 512, "Breck-Medivh", 5, 30, model.TimeLeftLong),
			listing(5, 512, "Cale-Medivh", 1, 31, model.TimeLeftMedium),
		)
		cur := snap(t, 2000,
			listing(6, 300, "Alda-Medivh", 1, 14, model.TimeLeftVeryLong),
			listing(5, 512, "Cale-Medivh", 1, 31, model.TimeLeftMedium),
			listing(7, 512, "Breck-Medivh", 5, 28, model.TimeLeftVeryLong),
		)
		return prev, cur
	}

	prev1, cur1 := mk()
	prev2, cur2 := mk()

	a, err := json.Marshal(Diff(prev1, cur1))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := json.Marshal(Diff(prev2, cur2))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Errorf("diff results differ:\n%s\n%s", a, b)
	}

	// Reconciling the same pair again must also be identical.
	c, _ := json.Marshal(Diff(prev1, cur1))
	if !bytes.Equal(a, c) {
		t.Errorf("repeat diff differs:\n%s\n%s", a, c)
	}
}
