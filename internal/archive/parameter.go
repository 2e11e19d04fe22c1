package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
)

const insertParameterSQL = `
	INSERT INTO parameter_values (
		session_id, monitor_id, name, namespace, generation_time, acquisition_time,
		received_at, eng_type, numeric_value, text_value, monitoring
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (name, namespace, generation_time, session_id) DO NOTHING
`

// ParameterWriter batches parameter values into the parameter_values table.
type ParameterWriter struct {
	router.NopListener

	cfg       WriterConfig
	logger    *slog.Logger
	sessionID uuid.UUID

	// Database
	db BatchSender

	// Batching
	batch   []parameterRow
	batchMu sync.Mutex
	flushCh chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewParameterWriter creates a new ParameterWriter. sessionID tags every
// row written by this process.
func NewParameterWriter(cfg WriterConfig, sessionID uuid.UUID, db BatchSender, logger *slog.Logger) *ParameterWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParameterWriter{
		cfg:       cfg,
		sessionID: sessionID,
		db:        db,
		logger:    logger.With("component", "archive"),
		batch:     make([]parameterRow, 0, cfg.BatchSize),
		flushCh:   make(chan struct{}, 1),
	}
}

// Start begins the flush loop.
func (w *ParameterWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("parameter writer started",
		"session_id", w.sessionID,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what is left.
func (w *ParameterWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping parameter writer")

	if w.cancel != nil {
		w.cancel()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("parameter writer stopped")
	case <-ctx.Done():
		w.logger.Warn("parameter writer stop timed out")
	}

	// Final flush
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *ParameterWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// OnParameterData queues the values of a batch. It never blocks on the
// database.
func (w *ParameterWriter) OnParameterData(b router.ParameterBatch) {
	w.batchMu.Lock()
	for _, pv := range b.Values {
		w.batch = append(w.batch, w.transform(pv, b.ReceivedAt))
	}
	w.metrics.Received += int64(len(b.Values))
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		select {
		case w.flushCh <- struct{}{}:
		default:
		}
	}
}

// flushLoop flushes on the interval or when a batch fills up.
func (w *ParameterWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		case <-w.flushCh:
			w.flush(w.ctx)
		}
	}
}

// transform converts a parameter value to a row.
func (w *ParameterWriter) transform(pv protocol.ParameterValue, receivedAt time.Time) parameterRow {
	row := parameterRow{
		SessionID:      w.sessionID,
		MonitorID:      w.cfg.MonitorID,
		Name:           pv.ID.Name,
		Namespace:      pv.ID.Namespace,
		GenerationTime: receivedAt.UTC(),
		ReceivedAt:     receivedAt.UTC(),
		Monitoring:     pv.MonitoringResult,
	}

	if pv.GenerationTime != 0 {
		row.GenerationTime = time.UnixMilli(pv.GenerationTime).UTC()
	}
	if pv.AcquisitionTime != 0 {
		t := time.UnixMilli(pv.AcquisitionTime).UTC()
		row.AcquisitionTime = &t
	}

	if v := pv.EngValue; v != nil {
		row.EngType = v.Type
		if f, ok := v.Numeric(); ok {
			row.NumericValue = &f
		} else {
			s := v.Text()
			row.TextValue = &s
		}
	}

	return row
}

// flush writes the current batch to the database.
func (w *ParameterWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 || w.db == nil {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]parameterRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed parameter values",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *ParameterWriter) batchInsert(ctx context.Context, rows []parameterRow) (conflicts int, err error) {
	if ctx.Err() != nil {
		// Stop cancelled the writer context; the final flush still has to land.
		ctx = context.WithoutCancel(ctx)
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertParameterSQL,
			r.SessionID, r.MonitorID, r.Name, r.Namespace, r.GenerationTime, r.AcquisitionTime,
			r.ReceivedAt, r.EngType, r.NumericValue, r.TextValue, r.Monitoring,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
