package journal

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warehousehq/ordersync/internal/event"
)

// Config holds journal batching settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	InputBuffer   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		InputBuffer:   1000,
	}
}

// Metrics counts journal activity.
type Metrics struct {
	Inserts   int64 // Rows written
	Conflicts int64 // Rows skipped as already journaled
	Errors    int64 // Failed batch flushes
	Dropped   int64 // Events dropped because the input buffer was full
	Flushes   int64 // Successful flushes
}

// Writer batches accepted events and writes them to the order_events table.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	db    *pgxpool.Pool
	input chan event.Event

	// Batching
	batch       []eventRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

type eventRow struct {
	ID         string
	DedupKey   string
	EventType  string
	OrderID    string
	OldStatus  string
	NewStatus  string
	WorkerID   string
	OrderIDs   string
	Detail     string
	ServerTS   int64
	ReceivedAt int64
}

// NewWriter creates a journal writer.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.InputBuffer <= 0 {
		cfg.InputBuffer = DefaultConfig().InputBuffer
	}

	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan event.Event, cfg.InputBuffer),
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// Record enqueues an accepted event. Never blocks: if the journal cannot
// keep up, the event is dropped and counted, not the dispatch path.
func (w *Writer) Record(ev event.Event) {
	select {
	case w.input <- ev:
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("journal input full, dropping event", "key", ev.DedupKey())
	}
}

// Start begins consuming and flushing.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains in-flight work and performs a final flush.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal stopped")
	case <-ctx.Done():
		w.logger.Warn("journal stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev := <-w.input:
			w.handleEvent(ev)
		}
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *Writer) handleEvent(ev event.Event) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts an event to a journal row.
func (w *Writer) transform(ev event.Event) eventRow {
	return eventRow{
		ID:         uuid.NewString(),
		DedupKey:   ev.DedupKey(),
		EventType:  string(ev.Type),
		OrderID:    ev.OrderID,
		OldStatus:  string(ev.OldStatus),
		NewStatus:  string(ev.NewStatus),
		WorkerID:   ev.WorkerID,
		OrderIDs:   strings.Join(ev.OrderIDs, ","),
		Detail:     ev.Detail,
		ServerTS:   ev.ServerTS,
		ReceivedAt: ev.ReceivedAt.UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("journal batch insert failed", "error", err, "count", len(batch))
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

	w.logger.Debug("flushed journal",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch. The dedup key is unique, so
// redelivered events that slipped past the in-memory window are skipped.
func (w *Writer) batchInsert(rows []eventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO order_events (id, dedup_key, event_type, order_id, old_status, new_status, worker_id, order_ids, detail, server_ts, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (dedup_key) DO NOTHING
		`, r.ID, r.DedupKey, r.EventType, r.OrderID, r.OldStatus, r.NewStatus, r.WorkerID, r.OrderIDs, r.Detail, r.ServerTS, r.ReceivedAt)
	}

	results := w.db.SendBatch(context.Background(), batch)
	defer results.Close()

	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return conflicts, err
		}
		if tag.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
