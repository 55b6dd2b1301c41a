package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/warehousehq/ordersync/internal/auth"
	"github.com/warehousehq/ordersync/internal/dedup"
	"github.com/warehousehq/ordersync/internal/event"
)

// Listener receives every accepted event exactly once per registration.
type Listener func(event.Event)

// Manager owns the single logical transport connection for the process and
// fans validated, deduplicated events out to registered listeners.
type Manager interface {
	// Connect opens the transport. Idempotent: if a session is already
	// open or opening, it returns immediately. Fails fast without dialing
	// when the credentials yield no token.
	Connect(ctx context.Context) error

	// Disconnect closes the session with a normal-closure code, clears all
	// listeners and resets the retry budget. No auto-reconnect follows.
	Disconnect()

	// RegisterListener adds a callback to the fan-out set and returns its
	// disposer. When the last listener unregisters, the session is closed.
	RegisterListener(fn Listener) (unregister func())

	// Status returns the externally visible connection state.
	Status() Status

	// Err returns the current connection error, or nil.
	Err() error

	// IsConnected reports whether a session is open.
	IsConnected() bool

	// LastEvent returns the most recently accepted event.
	LastEvent() (event.Event, bool)

	// Stats returns current counters.
	Stats() Stats
}

type listenerEntry struct {
	id int
	fn Listener
}

// manager implements the Manager interface.
type manager struct {
	cfg    ManagerConfig
	creds  auth.TokenProvider
	dedup  *dedup.Deduplicator
	logger *slog.Logger

	// newClient builds a transport client; swappable in tests.
	newClient func(ClientConfig, *slog.Logger) Client

	mu        sync.Mutex
	client    Client
	status    Status
	connErr   error
	lastEvent event.Event
	hasEvent  bool
	manual    bool // suppresses reconnect during deliberate teardown
	gen       int  // session generation; stale run loops bail out

	// Fan-out set in registration order
	listeners []listenerEntry
	nextID    int

	accepted    int64
	deduped     int64
	parseErrors int64
	reconnects  int64
}

// NewManager creates a connection manager. It does not dial until Connect.
func NewManager(cfg ManagerConfig, creds auth.TokenProvider, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &manager{
		cfg:       cfg,
		creds:     creds,
		dedup:     dedup.New(cfg.DedupWindow),
		logger:    logger,
		newClient: NewClient,
		status:    StatusDisconnected,
	}
}

// Connect opens the transport session.
func (m *manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusConnected || m.status == StatusConnecting {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Fail fast before any connection attempt.
	token, err := m.creds.Token()
	if err != nil {
		m.setState(StatusDisconnected, ErrNoToken)
		return fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	m.mu.Lock()
	m.manual = false
	m.connErr = nil
	m.status = StatusConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	cl, err := m.dial(ctx, token)
	if err != nil {
		m.setState(StatusError, fmt.Errorf("connection failed"))
		return fmt.Errorf("dial transport: %w", err)
	}

	m.mu.Lock()
	m.client = cl
	m.status = StatusConnected
	m.mu.Unlock()

	go m.run(ctx, cl, gen)

	m.logger.Info("transport session opened", "url", m.cfg.WSURL)
	return nil
}

// Disconnect closes the session deliberately.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	m.gen++
	cl := m.client
	m.client = nil
	m.listeners = nil
	m.status = StatusDisconnected
	m.connErr = nil
	m.mu.Unlock()

	if cl != nil {
		cl.Close()
	}

	m.logger.Info("transport session closed")
}

// RegisterListener adds a callback to the fan-out set.
func (m *manager) RegisterListener(fn Listener) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.removeListener(id) })
	}
}

func (m *manager) removeListener(id int) {
	m.mu.Lock()
	for i, e := range m.listeners {
		if e.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			break
		}
	}
	last := len(m.listeners) == 0 && m.client != nil
	var cl Client
	if last {
		// Demand dropped to zero: tear down the session.
		m.manual = true
		m.gen++
		cl = m.client
		m.client = nil
		m.status = StatusDisconnected
		m.connErr = nil
	}
	m.mu.Unlock()

	if cl != nil {
		cl.Close()
		m.logger.Info("last listener unregistered, session closed")
	}
}

// Status returns the externally visible connection state.
func (m *manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Err returns the current connection error, or nil.
func (m *manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connErr
}

// IsConnected reports whether a session is open.
func (m *manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusConnected
}

// LastEvent returns the most recently accepted event.
func (m *manager) LastEvent() (event.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastEvent, m.hasEvent
}

// Stats returns current counters.
func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Listeners:    len(m.listeners),
		Accepted:     m.accepted,
		Deduplicated: m.deduped,
		ParseErrors:  m.parseErrors,
		Reconnects:   m.reconnects,
	}
}

// dial builds and connects a transport client.
func (m *manager) dial(ctx context.Context, token string) (Client, error) {
	cfg := ClientConfig{
		URL:               m.cfg.WSURL,
		Token:             token,
		SessionID:         uuid.NewString(),
		HeartbeatInterval: m.cfg.HeartbeatInterval,
		WriteTimeout:      m.cfg.WriteTimeout,
		HandshakeTimeout:  m.cfg.HandshakeTimeout,
		BufferSize:        m.cfg.BufferSize,
	}

	cl := m.newClient(cfg, m.logger.With("session", cfg.SessionID))
	if err := cl.Connect(ctx); err != nil {
		return nil, err
	}
	return cl, nil
}

// run is the single dispatch loop for one session (and its reconnects).
// All fan-out happens here, so listeners observe events in transport order.
func (m *manager) run(ctx context.Context, cl Client, gen int) {
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.gen == gen {
				m.manual = true
				m.client = nil
				m.status = StatusDisconnected
			}
			m.mu.Unlock()
			cl.Close()
			return

		case msg, ok := <-cl.Messages():
			if !ok {
				return
			}
			m.dispatch(msg)

		case err := <-cl.Errors():
			m.mu.Lock()
			stale := m.manual || m.gen != gen
			m.mu.Unlock()
			if stale {
				return
			}

			cl.Close()

			if isNormalClose(err) {
				m.setState(StatusDisconnected, nil)
				m.logger.Info("transport closed normally")
				return
			}

			m.logger.Warn("transport error", "error", err)
			next, ok := m.reconnect(ctx, gen)
			if !ok {
				return
			}
			cl = next
		}
	}
}

// reconnect retries the dial with a fixed delay, bounded by MaxReconnects.
// Exhausting the budget leaves the status at disconnected; no further
// automatic retries happen until Connect is called again explicitly.
func (m *manager) reconnect(ctx context.Context, gen int) (Client, bool) {
	m.setState(StatusDisconnected, nil)

	for attempt := 1; attempt <= m.cfg.MaxReconnects; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(m.cfg.ReconnectDelay):
		}

		m.mu.Lock()
		if m.manual || m.gen != gen {
			m.mu.Unlock()
			return nil, false
		}
		m.status = StatusConnecting
		m.mu.Unlock()

		token, err := m.creds.Token()
		if err != nil {
			// Credentials went away mid-outage; do not retry against them.
			m.setState(StatusDisconnected, ErrNoToken)
			return nil, false
		}

		cl, err := m.dial(ctx, token)
		if err != nil {
			m.logger.Warn("reconnect attempt failed",
				"attempt", attempt,
				"max", m.cfg.MaxReconnects,
				"error", err,
			)
			m.setState(StatusDisconnected, nil)
			continue
		}

		m.mu.Lock()
		if m.manual || m.gen != gen {
			m.mu.Unlock()
			cl.Close()
			return nil, false
		}
		m.client = cl
		m.status = StatusConnected
		m.connErr = nil
		m.reconnects++
		m.mu.Unlock()

		m.logger.Info("reconnected", "attempt", attempt)
		return cl, true
	}

	m.setState(StatusDisconnected, ErrRetriesSpent)
	m.logger.Warn("reconnect attempts exhausted", "max", m.cfg.MaxReconnects)
	return nil, false
}

// dispatch validates, deduplicates and fans out a single frame.
func (m *manager) dispatch(msg TimestampedMessage) {
	ev, control, err := event.Parse(msg.Data, msg.ReceivedAt)
	if err != nil {
		// Malformed payloads are dropped, never surfaced.
		m.logger.Warn("dropping malformed frame", "error", err)
		m.mu.Lock()
		m.parseErrors++
		m.mu.Unlock()
		return
	}
	if control {
		return
	}

	if m.dedup.Seen(ev.DedupKey()) {
		m.mu.Lock()
		m.deduped++
		m.mu.Unlock()
		m.logger.Debug("suppressed duplicate event", "key", ev.DedupKey())
		return
	}

	m.mu.Lock()
	m.lastEvent = ev
	m.hasEvent = true
	m.accepted++
	fns := make([]Listener, len(m.listeners))
	for i, e := range m.listeners {
		fns[i] = e.fn
	}
	m.mu.Unlock()

	// Outside the lock: listeners may register or unregister re-entrantly.
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *manager) setState(status Status, err error) {
	m.mu.Lock()
	m.status = status
	m.connErr = err
	m.mu.Unlock()
}

// isNormalClose reports whether the transport closed with a normal code.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
