package model

// -----------------------------------------------------------------------------
// Listings
// -----------------------------------------------------------------------------

// TimeLeft is the feed's coarse remaining-time bucket, encoded ordinally so
// that "about to expire" compares below everything else.
type TimeLeft int

const (
	TimeLeftUnknown  TimeLeft = 0
	TimeLeftShort    TimeLeft = 1
	TimeLeftMedium   TimeLeft = 2
	TimeLeftLong     TimeLeft = 3
	TimeLeftVeryLong TimeLeft = 4
)

// ParseTimeLeft converts the feed's string bucket to its ordinal form.
// Unrecognized values map to TimeLeftUnknown.
func ParseTimeLeft(s string) TimeLeft {
	switch s {
	case "SHORT":
		return TimeLeftShort
	case "MEDIUM":
		return TimeLeftMedium
	case "LONG":
		return TimeLeftLong
	case "VERY_LONG":
		return TimeLeftVeryLong
	default:
		return TimeLeftUnknown
	}
}

// String returns the feed's string form of the bucket.
func (t TimeLeft) String() string {
	switch t {
	case TimeLeftShort:
		return "SHORT"
	case TimeLeftMedium:
		return "MEDIUM"
	case TimeLeftLong:
		return "LONG"
	case TimeLeftVeryLong:
		return "VERY_LONG"
	default:
		return "UNKNOWN"
	}
}

// Listing is one sell-order observed in a marketplace snapshot. Immutable
// once created.
type Listing struct {
	ID            int64    `json:"id"`
	ItemID        int64    `json:"item"`
	Owner         string   `json:"owner"` // "Name-Realm"
	Quantity      int      `json:"quantity"`
	BuyoutPerUnit float64  `json:"buyoutPerUnit"` // total buyout / quantity, copper
	TimeLeft      TimeLeft `json:"timeLeft"`
	TimeLeftSince int64    `json:"timeLeftSince"` // ms since epoch the bucket was first observed
}

// -----------------------------------------------------------------------------
// Change log
// -----------------------------------------------------------------------------

// SoldListing describes a removed listing attributed to a sale.
type SoldListing struct {
	Owner         string  `json:"owner"`
	Quantity      int     `json:"quantity"`
	BuyoutPerUnit float64 `json:"buyoutPerUnit"`
}

// Relist describes a new listing matched to a disappeared one by the same
// owner, item and quantity. Only the old price is carried; the new price is
// on the listing itself.
type Relist struct {
	PreviousBuyoutPerUnit float64 `json:"previousBuyoutPerUnit"`
}
