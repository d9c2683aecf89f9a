// Package snapshot models one immutable observation of a marketplace feed:
// the full set of listings at a logical timestamp, plus lazily built by-item
// and by-owner indices.
//
// The by-item index orders listing ids ascending by per-unit buyout with ties
// broken by feed order, so index position 0 is always the cheapest listing
// for an item. Downstream price-change computation depends on that ordering.
package snapshot
