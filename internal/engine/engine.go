package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warehousehq/ordersync/internal/event"
	"github.com/warehousehq/ordersync/internal/model"
	"github.com/warehousehq/ordersync/internal/notify"
)

// Errors
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrOrderNotHeld  = errors.New("order not held in any queue")
	ErrNotActionable = errors.New("order not actionable by this role")
)

// State is the engine's reconciliation phase.
type State string

const (
	// StateLoading: the initial snapshot is pending; events are buffered
	// and replayed in arrival order once it resolves.
	StateLoading State = "loading"
	// StateReady: snapshot applied; events apply one at a time.
	StateReady State = "ready"
	// StateRefreshing: an authoritative resync is in flight; the held
	// sets are replaced wholesale on completion, not merged.
	StateRefreshing State = "refreshing"
)

// Action identifiers accepted by ApplyAction.
const (
	ActionClaim   = "claim"   // assign the order to this worker
	ActionAdvance = "advance" // move the order to the role's successor status
)

// OrderClient is the REST surface the engine consumes for snapshots and
// action mutations.
type OrderClient interface {
	GetOrders(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus, workerID string) (model.Order, error)
	AssignOrder(ctx context.Context, orderID, workerID string) (model.Order, error)
}

// Sets is a point-in-time copy of the three queues.
type Sets struct {
	Available []model.Order
	Working   []model.Order
	History   []model.Order
}

// Config holds the engine's identity and tuning.
type Config struct {
	Role              model.Role
	WorkerID          string
	NotificationLimit int           // retained notifications, oldest evicted
	BufferSize        int           // events buffered while loading/refreshing
	RefreshInterval   time.Duration // 0 disables periodic resync
}

// Engine maintains the three ordered queues for one (role, worker) view.
// HandleEvent is the listener to register with the connection manager; all
// queue mutation happens under one mutex so events apply strictly in
// delivery order.
type Engine struct {
	cfg    Config
	client OrderClient
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	available     orderSet
	working       orderSet
	history       orderSet
	buffer        []event.Event
	lastErr       error
	notifications []notify.Notification

	refreshCh chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an engine in the loading state. It performs no I/O until
// Load, Refresh or Start.
func New(cfg Config, client OrderClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NotificationLimit <= 0 {
		cfg.NotificationLimit = 100
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	return &Engine{
		cfg:       cfg,
		client:    client,
		logger:    logger.With("role", cfg.Role, "worker", cfg.WorkerID),
		state:     StateLoading,
		refreshCh: make(chan struct{}, 1),
	}
}

// Load fetches the initial snapshot and transitions to ready. Events that
// arrived while loading are replayed in order on top of the snapshot. On
// fetch failure the engine stays in loading, keeps buffering, and records
// the error; a later Load or Refresh can still succeed.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	e.state = StateLoading
	e.mu.Unlock()

	orders, err := e.client.GetOrders(ctx, model.RoleStatuses(e.cfg.Role))

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.lastErr = err
		return fmt.Errorf("load snapshot: %w", err)
	}

	e.rebuildLocked(orders)
	e.replayLocked()
	e.lastErr = nil
	e.state = StateReady

	e.logger.Info("snapshot loaded",
		"available", e.available.len(),
		"working", e.working.len(),
		"history", e.history.len(),
	)
	return nil
}

// Refresh performs an authoritative resync: the held sets are replaced
// wholesale by the fresh snapshot. On failure the previous sets are
// preserved untouched and the error is recorded; events that arrived
// during the attempt are still applied to the old sets.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRefreshing {
		e.mu.Unlock()
		return nil
	}
	prev := e.state
	e.state = StateRefreshing
	e.mu.Unlock()

	orders, err := e.client.GetOrders(ctx, model.RoleStatuses(e.cfg.Role))

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.lastErr = err
		e.state = prev
		if prev == StateReady {
			e.replayLocked()
		}
		return fmt.Errorf("refresh snapshot: %w", err)
	}

	e.rebuildLocked(orders)
	e.replayLocked()
	e.lastErr = nil
	e.state = StateReady

	e.logger.Info("resynced",
		"available", e.available.len(),
		"working", e.working.len(),
		"history", e.history.len(),
	)
	return nil
}

// HandleEvent is the connection manager listener. Bulk updates request a
// full resync (served by the Start loop); everything else applies to the
// sets immediately, or is buffered while a snapshot is in flight.
func (e *Engine) HandleEvent(ev event.Event) {
	if ev.Type == event.TypeBulkUpdate {
		e.logger.Debug("bulk update received, scheduling resync", "orders", len(ev.OrderIDs))
		select {
		case e.refreshCh <- struct{}{}:
		default:
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateReady {
		if len(e.buffer) >= e.cfg.BufferSize {
			e.logger.Warn("event buffer full, dropping oldest")
			e.buffer = e.buffer[1:]
		}
		e.buffer = append(e.buffer, ev)
		return
	}

	e.applyLocked(ev)
}

// Start runs the background resync worker: it serves bulk-update refresh
// requests and, when RefreshInterval is set, periodic resyncs. It also
// performs the initial Load. Stop (or ctx cancellation) ends it.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		if err := e.Load(ctx); err != nil {
			e.logger.Warn("initial snapshot failed", "error", err)
		}

		var tick <-chan time.Time
		if e.cfg.RefreshInterval > 0 {
			ticker := time.NewTicker(e.cfg.RefreshInterval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-e.refreshCh:
				if err := e.Refresh(ctx); err != nil {
					e.logger.Warn("resync failed", "error", err)
				}
			case <-tick:
				if err := e.Refresh(ctx); err != nil {
					e.logger.Warn("periodic resync failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the background worker and waits for it.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// ApplyAction performs a worker action against the backend and folds the
// echoed order back into the sets. Mutation errors are returned to the
// caller; the sets are left as they were (no optimistic update).
func (e *Engine) ApplyAction(ctx context.Context, orderID, action string) (model.Order, error) {
	e.mu.Lock()
	held, ok := e.getLocked(orderID)
	e.mu.Unlock()
	if !ok {
		return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotHeld, orderID)
	}

	var updated model.Order
	var err error

	switch action {
	case ActionClaim:
		updated, err = e.client.AssignOrder(ctx, orderID, e.cfg.WorkerID)
	case ActionAdvance:
		next, can := model.NextStatus(e.cfg.Role, held.Status)
		if !can {
			return model.Order{}, fmt.Errorf("%w: %s in %s", ErrNotActionable, orderID, held.Status)
		}
		updated, err = e.client.UpdateOrderStatus(ctx, orderID, next, e.cfg.WorkerID)
	default:
		return model.Order{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if err != nil {
		return model.Order{}, fmt.Errorf("apply %s to order %s: %w", action, orderID, err)
	}

	e.mu.Lock()
	e.removeLocked(updated.ID)
	e.insertLocked(updated, Classify(updated, e.cfg.Role, e.cfg.WorkerID))
	e.mu.Unlock()

	e.logger.Info("action applied", "order", orderID, "action", action, "status", updated.Status)
	return updated, nil
}

// State returns the current reconciliation phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the last snapshot error, cleared by the next success.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Sets returns a point-in-time copy of the three queues.
func (e *Engine) Sets() Sets {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Sets{
		Available: e.available.list(),
		Working:   e.working.list(),
		History:   e.history.list(),
	}
}

// Notifications returns the retained notifications, oldest first.
func (e *Engine) Notifications() []notify.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]notify.Notification, len(e.notifications))
	copy(out, e.notifications)
	return out
}

// applyLocked folds one event into the sets. Membership is recomputed
// from the order's absolute fields, so re-applying the same event is a
// no-op.
func (e *Engine) applyLocked(ev event.Event) {
	switch ev.Type {
	case event.TypeStatusChange:
		removed, had := e.removeLocked(ev.OrderID)

		var ord model.Order
		switch {
		case ev.Order != nil:
			ord = *ev.Order
		case had:
			ord = removed
		default:
			ord = model.Order{ID: ev.OrderID}
		}
		ord.Status = ev.NewStatus

		m := Classify(ord, e.cfg.Role, e.cfg.WorkerID)
		e.insertLocked(ord, m)
		e.logger.Debug("status change applied",
			"order", ev.OrderID,
			"status", ev.NewStatus,
			"queue", m,
		)

	case event.TypeAssignment:
		if ev.WorkerID == e.cfg.WorkerID {
			if o, ok := e.available.remove(ev.OrderID); ok {
				o.AssignedWorker = ev.WorkerID
				e.working.upsert(o)
				e.logger.Debug("order claimed via event", "order", ev.OrderID)
			}
			// Not in Available or Working: stale or irrelevant, ignore.
		}
	}

	if notify.Notifiable(ev, e.cfg.Role, e.cfg.WorkerID) {
		e.notifications = append(e.notifications, notify.For(ev, e.cfg.Role, e.cfg.WorkerID))
		if len(e.notifications) > e.cfg.NotificationLimit {
			e.notifications = e.notifications[len(e.notifications)-e.cfg.NotificationLimit:]
		}
	}
}

// rebuildLocked replaces the sets wholesale from a snapshot.
func (e *Engine) rebuildLocked(orders []model.Order) {
	e.available.clear()
	e.working.clear()
	e.history.clear()
	for _, o := range orders {
		e.insertLocked(o, Classify(o, e.cfg.Role, e.cfg.WorkerID))
	}
}

// replayLocked applies buffered events in arrival order.
func (e *Engine) replayLocked() {
	if len(e.buffer) == 0 {
		return
	}
	e.logger.Debug("replaying buffered events", "count", len(e.buffer))
	for _, ev := range e.buffer {
		e.applyLocked(ev)
	}
	e.buffer = nil
}

func (e *Engine) insertLocked(o model.Order, m Membership) {
	switch m {
	case Available:
		e.available.upsert(o)
	case Working:
		e.working.upsert(o)
	case History:
		e.history.upsert(o)
	}
}

// removeLocked deletes the order from whichever set holds it.
func (e *Engine) removeLocked(id string) (model.Order, bool) {
	if o, ok := e.available.remove(id); ok {
		return o, true
	}
	if o, ok := e.working.remove(id); ok {
		return o, true
	}
	if o, ok := e.history.remove(id); ok {
		return o, true
	}
	return model.Order{}, false
}

// getLocked finds the order in the active (non-history) sets.
func (e *Engine) getLocked(id string) (model.Order, bool) {
	if o, ok := e.available.get(id); ok {
		return o, true
	}
	if o, ok := e.working.get(id); ok {
		return o, true
	}
	return model.Order{}, false
}
