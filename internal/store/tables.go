package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned for markers, blobs and records that do not exist.
var ErrNotFound = errors.New("not found")

// ErrMarkerConflict is returned by SetMarker when the expected ETag no longer
// matches: another handler advanced the marker first.
var ErrMarkerConflict = errors.New("marker etag conflict")

// Partition names for index records within a snapshot's table key.
const (
	IndexPartitionItems  = "items"
	IndexPartitionOwners = "owners"
)

// Marker is the per-partition progress record.
type Marker struct {
	LastProcessed int64 // ms since epoch of the last processed snapshot
	ETag          string
}

// Record is one independently addressable index fragment.
type Record struct {
	Partition string // IndexPartitionItems or IndexPartitionOwners
	RowKey    string
	Data      []byte // compressed serialized bucket
}

// Change is one change-log entry for a partition.
type Change struct {
	RowKey string // zero-padded ms timestamp; lexicographic order is time order
	Data   []byte
}

// TableStore is the structured store the pipeline writes index fragments,
// change-log entries and progress markers into.
type TableStore interface {
	// Marker returns the progress marker for a partition, or ErrNotFound.
	Marker(ctx context.Context, partitionKey string) (Marker, error)

	// SetMarker advances the marker, conditional on expectedETag matching
	// the stored one (empty expectedETag means "create, must not exist").
	// Returns the new ETag, or ErrMarkerConflict.
	SetMarker(ctx context.Context, partitionKey string, lastProcessed int64, expectedETag string) (string, error)

	// WriteBatch writes up to 100 records to the given table key.
	WriteBatch(ctx context.Context, tableKey string, records []Record) error

	// AppendChange writes one change-log entry for a partition.
	AppendChange(ctx context.Context, partitionKey string, change Change) error

	// ChangesSince returns the partition's change-log entries with row keys
	// >= sinceKey, ascending.
	ChangesSince(ctx context.Context, partitionKey string, sinceKey string) ([]Change, error)
}

// BlobStore holds opaque payloads at deterministic paths.
type BlobStore interface {
	// Get returns the blob at path, or ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)

	// Put stores the blob at path, overwriting.
	Put(ctx context.Context, path string, data []byte) error
}
