package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahwatch/auction-data/internal/store"
)

// PGStore implements store.TableStore on PostgreSQL.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a PGStore.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Marker returns the progress marker for a partition.
func (s *PGStore) Marker(ctx context.Context, partitionKey string) (store.Marker, error) {
	var m store.Marker
	err := s.db.QueryRow(ctx,
		`SELECT last_processed, etag::text FROM markers WHERE partition_key = $1`,
		partitionKey,
	).Scan(&m.LastProcessed, &m.ETag)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Marker{}, store.ErrNotFound
	}
	if err != nil {
		return store.Marker{}, fmt.Errorf("query marker: %w", err)
	}
	return m, nil
}

// SetMarker advances the marker conditional on the expected ETag. An empty
// expectedETag means the marker must not exist yet.
func (s *PGStore) SetMarker(ctx context.Context, partitionKey string, lastProcessed int64, expectedETag string) (string, error) {
	next := uuid.NewString()

	if expectedETag == "" {
		ct, err := s.db.Exec(ctx, `
			INSERT INTO markers (partition_key, last_processed, etag)
			VALUES ($1, $2, $3)
			ON CONFLICT (partition_key) DO NOTHING
		`, partitionKey, lastProcessed, next)
		if err != nil {
			return "", fmt.Errorf("insert marker: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return "", store.ErrMarkerConflict
		}
		return next, nil
	}

	ct, err := s.db.Exec(ctx, `
		UPDATE markers SET last_processed = $2, etag = $3
		WHERE partition_key = $1 AND etag = $4
	`, partitionKey, lastProcessed, next, expectedETag)
	if err != nil {
		return "", fmt.Errorf("update marker: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return "", store.ErrMarkerConflict
	}
	return next, nil
}

// WriteBatch upserts index records in one round trip.
func (s *PGStore) WriteBatch(ctx context.Context, tableKey string, records []store.Record) error {
	if len(records) > store.DefaultBatchRecords {
		return fmt.Errorf("batch of %d records exceeds %d", len(records), store.DefaultBatchRecords)
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO index_records (table_key, partition, row_key, data)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (table_key, partition, row_key) DO UPDATE SET data = EXCLUDED.data
		`, tableKey, r.Partition, r.RowKey, r.Data)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert index record: %w", err)
		}
	}
	return nil
}

// AppendChange upserts one change-log entry. Row keys are deterministic per
// snapshot, so redelivered messages overwrite rather than duplicate.
func (s *PGStore) AppendChange(ctx context.Context, partitionKey string, change store.Change) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO changes (partition_key, row_key, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (partition_key, row_key) DO UPDATE SET data = EXCLUDED.data
	`, partitionKey, change.RowKey, change.Data)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// ChangesSince returns change-log entries with row keys >= sinceKey.
func (s *PGStore) ChangesSince(ctx context.Context, partitionKey string, sinceKey string) ([]store.Change, error) {
	rows, err := s.db.Query(ctx, `
		SELECT row_key, data FROM changes
		WHERE partition_key = $1 AND row_key >= $2
		ORDER BY row_key
	`, partitionKey, sinceKey)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []store.Change
	for rows.Next() {
		var c store.Change
		if err := rows.Scan(&c.RowKey, &c.Data); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PGBlobs implements store.BlobStore on PostgreSQL.
type PGBlobs struct {
	db *pgxpool.Pool
}

// NewPGBlobs creates a PGBlobs.
func NewPGBlobs(db *pgxpool.Pool) *PGBlobs {
	return &PGBlobs{db: db}
}

// Get returns the blob at path.
func (b *PGBlobs) Get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(ctx, `SELECT data FROM blobs WHERE path = $1`, path).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query blob: %w", err)
	}
	return data, nil
}

// Put stores the blob at path, overwriting.
func (b *PGBlobs) Put(ctx context.Context, path string, data []byte) error {
	_, err := b.db.Exec(ctx, `
		INSERT INTO blobs (path, data) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data
	`, path, data)
	if err != nil {
		return fmt.Errorf("insert blob: %w", err)
	}
	return nil
}
