package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ahwatch/auction-data/internal/model"
	"github.com/ahwatch/auction-data/internal/snapshot"
)

// Default bounds for batched index writes.
const (
	DefaultMaxRecordSize    = 64 * 1024 // after compression
	DefaultBatchRecords     = 100
	DefaultWriteConcurrency = 4
)

// WriterConfig bounds batched index writes.
type WriterConfig struct {
	MaxRecordSize    int // Per-record compressed size ceiling (default: 64 KiB)
	BatchRecords     int // Records per batch (default: 100)
	WriteConcurrency int // Concurrent batch flushes (default: 4)
}

// DefaultWriterConfig returns the bounds the backing store is sized for.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxRecordSize:    DefaultMaxRecordSize,
		BatchRecords:     DefaultBatchRecords,
		WriteConcurrency: DefaultWriteConcurrency,
	}
}

func (c *WriterConfig) applyDefaults() {
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = DefaultMaxRecordSize
	}
	if c.BatchRecords == 0 {
		c.BatchRecords = DefaultBatchRecords
	}
	if c.WriteConcurrency == 0 {
		c.WriteConcurrency = DefaultWriteConcurrency
	}
}

// WriterMetrics counts batched write outcomes.
type WriterMetrics struct {
	RecordsWritten int64
	RecordsSkipped int64
	Batches        int64
}

// BatchWriter serializes index fragments and writes them to the table store
// in size- and count-bounded batches with bounded flush concurrency.
type BatchWriter struct {
	cfg    WriterConfig
	tables TableStore
	logger *slog.Logger

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewBatchWriter creates a BatchWriter.
func NewBatchWriter(cfg WriterConfig, tables TableStore, logger *slog.Logger) *BatchWriter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &BatchWriter{
		cfg:    cfg,
		tables: tables,
		logger: logger,
	}
}

// Stats returns current metrics.
func (w *BatchWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// WriteIndex persists a snapshot's by-item and by-owner index fragments under
// tableKey. A record whose compressed form exceeds the size ceiling is skipped
// and logged rather than failing the write; availability over completeness.
func (w *BatchWriter) WriteIndex(ctx context.Context, tableKey string, snap *snapshot.Snapshot) error {
	idx := snap.Index()

	records := make([]Record, 0, len(idx.Items)+len(idx.Owners))

	for _, itemID := range sortedInt64Keys(idx.Items) {
		bucket := make([]*model.Listing, 0, len(idx.Items[itemID]))
		for _, id := range idx.Items[itemID] {
			l, err := snap.Listing(id)
			if err != nil {
				return fmt.Errorf("index references missing listing: %w", err)
			}
			bucket = append(bucket, l)
		}
		rec, ok, err := w.makeRecord(IndexPartitionItems, strconv.FormatInt(itemID, 10), bucket)
		if err != nil {
			return err
		}
		if ok {
			records = append(records, rec)
		}
	}

	for _, owner := range sortedStringKeys(idx.Owners) {
		rec, ok, err := w.makeRecord(IndexPartitionOwners, owner, idx.Owners[owner])
		if err != nil {
			return err
		}
		if ok {
			records = append(records, rec)
		}
	}

	batches := w.batch(records)

	w.logger.Info("saving index batches",
		"table_key", tableKey,
		"records", len(records),
		"batches", len(batches),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.WriteConcurrency)
	for _, b := range batches {
		b := b
		g.Go(func() error {
			if err := w.tables.WriteBatch(ctx, tableKey, b); err != nil {
				return fmt.Errorf("write batch: %w", err)
			}
			w.count(func(m *WriterMetrics) {
				m.Batches++
				m.RecordsWritten += int64(len(b))
			})
			return nil
		})
	}
	return g.Wait()
}

// makeRecord serializes and compresses one index bucket. ok is false when the
// record exceeds the size ceiling and was dropped.
func (w *BatchWriter) makeRecord(partition, rowKey string, bucket any) (Record, bool, error) {
	data, err := json.Marshal(bucket)
	if err != nil {
		return Record{}, false, fmt.Errorf("marshal %s/%s: %w", partition, rowKey, err)
	}
	compressed, err := deflateBytes(data)
	if err != nil {
		return Record{}, false, fmt.Errorf("compress %s/%s: %w", partition, rowKey, err)
	}
	if len(compressed) > w.cfg.MaxRecordSize {
		w.logger.Error("index record too large, dropping",
			"partition", partition,
			"row_key", rowKey,
			"compressed_size", len(compressed),
			"ceiling", w.cfg.MaxRecordSize,
		)
		w.count(func(m *WriterMetrics) { m.RecordsSkipped++ })
		return Record{}, false, nil
	}
	return Record{Partition: partition, RowKey: rowKey, Data: compressed}, true, nil
}

// batch splits records into count-bounded batches.
func (w *BatchWriter) batch(records []Record) [][]Record {
	var batches [][]Record
	for len(records) > 0 {
		n := w.cfg.BatchRecords
		if n > len(records) {
			n = len(records)
		}
		batches = append(batches, records[:n])
		records = records[n:]
	}
	return batches
}

func (w *BatchWriter) count(f func(*WriterMetrics)) {
	w.mu.Lock()
	f(&w.metrics)
	w.mu.Unlock()
}

func sortedInt64Keys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
