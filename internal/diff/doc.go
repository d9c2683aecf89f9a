// Package diff reconciles two marketplace snapshots into a change log:
// listings added, removed, expired, per-item cheapest-price deltas, and a
// relist-matching pass that pairs an owner's disappeared listings with their
// newly appeared ones before attributing the rest to sales.
//
// Diff is deterministic for a fixed pair of snapshots. Messages driving
// reconciliation are delivered at least once, so the same pair may be
// reprocessed; identical output (byte-identical once serialized) is what
// makes that safe.
package diff
