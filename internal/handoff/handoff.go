// Package handoff stages aggregated summaries between the transform and load
// stages as Parquet files in a gocloud.dev blob bucket.
package handoff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"gocloud.dev/gcerrors"
)

// ErrNoHandoff is returned when no file was written for an entity yet.
var ErrNoHandoff = errors.New("no handoff file")

// summaryRecord is the Parquet row layout. Dates and amounts travel as text so the
// amount keeps its exact decimal value.
type summaryRecord struct {
	EntityID        int64  `parquet:"entity_id"`
	AggDate         string `parquet:"agg_date"`
	TotalAmount     string `parquet:"total_amount"`
	NumTransactions int64  `parquet:"num_transactions"`
}

// Store reads and writes handoff files.
type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket at bucketURL (file://, mem://, s3://, gs://).
// Local directories are created when missing.
func Open(ctx context.Context, bucketURL string) (*Store, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse handoff url: %w", err)
	}
	if u.Scheme == "file" {
		if err := os.MkdirAll(u.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create handoff dir %s: %w", u.Path, err)
		}
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open handoff bucket %s: %w", bucketURL, err)
	}
	return &Store{bucket: bucket}, nil
}

// NewStore wraps an already opened bucket.
func NewStore(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Key returns the object key of an entity's handoff file.
func Key(entity models.Entity) string {
	return string(entity) + ".parquet"
}

// WriteSummaries replaces the handoff file of entity with rows.
func (s *Store) WriteSummaries(ctx context.Context, entity models.Entity, rows []models.AggregateRow) error {
	data, err := Encode(rows)
	if err != nil {
		return err
	}
	if err := s.bucket.WriteAll(ctx, Key(entity), data, &blob.WriterOptions{
		ContentType: "application/vnd.apache.parquet",
	}); err != nil {
		return fmt.Errorf("write %s: %w", Key(entity), err)
	}
	return nil
}

// ReadSummaries returns the rows staged for entity.
func (s *Store) ReadSummaries(ctx context.Context, entity models.Entity) ([]models.AggregateRow, error) {
	data, err := s.bucket.ReadAll(ctx, Key(entity))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoHandoff, Key(entity))
		}
		return nil, fmt.Errorf("read %s: %w", Key(entity), err)
	}
	return Decode(data)
}

// Encode serializes rows into a Parquet file.
func Encode(rows []models.AggregateRow) ([]byte, error) {
	records := make([]summaryRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, summaryRecord{
			EntityID:        r.EntityID,
			AggDate:         r.AggDate.Format(models.DateLayout),
			TotalAmount:     r.TotalAmount.String(),
			NumTransactions: r.NumTransactions,
		})
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[summaryRecord](&buf)
	if _, err := w.Write(records); err != nil {
		return nil, fmt.Errorf("encode parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a Parquet file written by Encode.
func Decode(data []byte) ([]models.AggregateRow, error) {
	records, err := parquet.Read[summaryRecord](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode parquet: %w", err)
	}

	out := make([]models.AggregateRow, 0, len(records))
	for i, rec := range records {
		d, err := time.Parse(models.DateLayout, rec.AggDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: agg_date: %w", i, err)
		}
		amt, err := decimal.NewFromString(rec.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("row %d: total_amount: %w", i, err)
		}
		out = append(out, models.AggregateRow{
			EntityID:        rec.EntityID,
			AggDate:         d,
			TotalAmount:     amt,
			NumTransactions: rec.NumTransactions,
		})
	}
	return out, nil
}
