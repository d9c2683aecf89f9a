package notify

import (
	"fmt"
	"math"
)

// Kind distinguishes the auction outcomes worth telling an owner about.
type Kind int

const (
	// KindSold marks a listing that disappeared before its time ran out.
	KindSold Kind = iota
	// KindRelisted marks a listing replaced by a new one at a different price.
	KindRelisted
	// KindExpired marks a listing that ran out its remaining time.
	KindExpired
)

func (k Kind) String() string {
	switch k {
	case KindSold:
		return "sold"
	case KindRelisted:
		return "relisted"
	case KindExpired:
		return "expired"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one notification about one listing.
type Event struct {
	RealmKey     string
	Owner        string
	ItemID       int64
	Kind         Kind
	Quantity     int
	UnitPrice     float64 // copper per item
	PrevUnitPrice float64 // set for KindRelisted
}

// FormatPrice renders a copper amount as "2g 30s 50c", omitting zero
// denominations except for a bare "0c".
func FormatPrice(copper float64) string {
	total := int64(math.Round(copper))
	if total <= 0 {
		return "0c"
	}

	gold := total / 10000
	silver := (total % 10000) / 100
	c := total % 100

	out := ""
	if gold > 0 {
		out += fmt.Sprintf("%dg ", gold)
	}
	if silver > 0 {
		out += fmt.Sprintf("%ds ", silver)
	}
	if c > 0 || out == "" {
		out += fmt.Sprintf("%dc ", c)
	}
	return out[:len(out)-1]
}

// Text renders the event as a one-line human message.
func (e Event) Text() string {
	switch e.Kind {
	case KindSold:
		return fmt.Sprintf("[%s] %s sold %dx item %d for %s each",
			e.RealmKey, e.Owner, e.Quantity, e.ItemID, FormatPrice(e.UnitPrice))
	case KindRelisted:
		return fmt.Sprintf("[%s] %s relisted %dx item %d at %s (was %s)",
			e.RealmKey, e.Owner, e.Quantity, e.ItemID,
			FormatPrice(e.UnitPrice), FormatPrice(e.PrevUnitPrice))
	case KindExpired:
		return fmt.Sprintf("[%s] %s had %dx item %d expire at %s",
			e.RealmKey, e.Owner, e.Quantity, e.ItemID, FormatPrice(e.UnitPrice))
	default:
		return fmt.Sprintf("[%s] %s: item %d (%s)", e.RealmKey, e.Owner, e.ItemID, e.Kind)
	}
}
