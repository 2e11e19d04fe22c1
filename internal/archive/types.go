package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WriterConfig holds batching settings.
type WriterConfig struct {
	MonitorID     string // Written to every row
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: time.Second,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Received  int64
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// BatchSender sends a queued batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// parameterRow is one row of parameter_values.
type parameterRow struct {
	SessionID       uuid.UUID
	MonitorID       string
	Name            string
	Namespace       string
	GenerationTime  time.Time
	AcquisitionTime *time.Time
	ReceivedAt      time.Time
	EngType         string
	NumericValue    *float64
	TextValue       *string
	Monitoring      string
}
