// Package store persists processed snapshots and their derived artifacts.
//
// Three records exist per processed snapshot: the reduced snapshot itself
// (gzip JSON in the blob store at a deterministic path), the by-item and
// by-owner index fragments (compressed, written in count- and size-bounded
// batches to the table store), and the change log entry. A per-partition
// marker records the last processed timestamp and is advanced with an ETag
// conditional update so racing handlers cannot clobber each other.
package store
