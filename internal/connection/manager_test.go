package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/warehousehq/ordersync/internal/auth"
	"github.com/warehousehq/ordersync/internal/event"
)

// fakeClient is a scriptable transport client.
type fakeClient struct {
	mu       sync.Mutex
	dialErr  error
	closed   bool
	messages chan TimestampedMessage
	errs     chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages: make(chan TimestampedMessage, 100),
		errs:     make(chan error, 1),
	}
}

func (f *fakeClient) Connect(ctx context.Context) error   { return f.dialErr }
func (f *fakeClient) Send(data []byte) error              { return nil }
func (f *fakeClient) Messages() <-chan TimestampedMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error                { return f.errs }
func (f *fakeClient) IsConnected() bool                   { return !f.isClosed() }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeClient) push(data string) {
	f.messages <- TimestampedMessage{Data: []byte(data), ReceivedAt: time.Now()}
}

func (f *fakeClient) fail(err error) {
	f.errs <- err
}

// newTestManager wires a manager to a queue of fake clients. Each dial
// consumes the next client from the queue; the last one is reused.
func newTestManager(t *testing.T, cfg ManagerConfig, clients ...*fakeClient) (*manager, *int) {
	t.Helper()
	if cfg.DedupWindow == 0 {
		cfg.DedupWindow = 5 * time.Second
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 5 * time.Millisecond
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 3
	}

	m := NewManager(cfg, auth.Static("tok-test"), slog.Default()).(*manager)

	dials := 0
	var mu sync.Mutex
	m.newClient = func(ClientConfig, *slog.Logger) Client {
		mu.Lock()
		defer mu.Unlock()
		i := dials
		if i >= len(clients) {
			i = len(clients) - 1
		}
		dials++
		return clients[i]
	}
	return m, &dials
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func orderUpdateFrame(orderID, oldStatus, newStatus string, ts int64) string {
	return fmt.Sprintf(`{"type":"order_update","data":{"order_id":%q,"old_status":%q,"order_status":%q,"ts":%d}}`,
		orderID, oldStatus, newStatus, ts)
}

func TestManager_ConnectIdempotent(t *testing.T) {
	fc := newFakeClient()
	m, dials := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	if *dials != 1 {
		t.Errorf("dials = %d, want 1", *dials)
	}
	if m.Status() != StatusConnected {
		t.Errorf("Status = %s, want connected", m.Status())
	}
	if !m.IsConnected() {
		t.Error("IsConnected should be true")
	}
}

func TestManager_ConnectNoToken(t *testing.T) {
	fc := newFakeClient()
	m, dials := newTestManager(t, ManagerConfig{}, fc)
	m.creds = auth.Static("") // yields an error

	if err := m.Connect(context.Background()); err == nil {
		t.Fatal("Connect should fail without a token")
	}

	if *dials != 0 {
		t.Errorf("dials = %d, want 0 (fail fast)", *dials)
	}
	if m.Status() != StatusDisconnected {
		t.Errorf("Status = %s, want disconnected", m.Status())
	}
	if !errors.Is(m.Err(), ErrNoToken) {
		t.Errorf("Err = %v, want ErrNoToken", m.Err())
	}
}

func TestManager_FanOutOrder(t *testing.T) {
	fc := newFakeClient()
	m, _ := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var gotA, gotB []string

	unregA := m.RegisterListener(func(ev event.Event) {
		mu.Lock()
		gotA = append(gotA, ev.OrderID)
		mu.Unlock()
	})
	defer unregA()
	unregB := m.RegisterListener(func(ev event.Event) {
		mu.Lock()
		gotB = append(gotB, ev.OrderID)
		mu.Unlock()
	})
	defer unregB()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fc.push(orderUpdateFrame("ord-1", "pending", "processing", 100))
	fc.push(orderUpdateFrame("ord-2", "picking", "packing", 101))

	waitFor(t, "both listeners to see both events", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotA) == 2 && len(gotB) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	for _, got := range [][]string{gotA, gotB} {
		if got[0] != "ord-1" || got[1] != "ord-2" {
			t.Errorf("delivery order = %v, want [ord-1 ord-2]", got)
		}
	}

	last, ok := m.LastEvent()
	if !ok || last.OrderID != "ord-2" {
		t.Errorf("LastEvent = %+v, %v", last, ok)
	}
}

func TestManager_DedupSuppressesDuplicates(t *testing.T) {
	fc := newFakeClient()
	m, _ := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count sync.WaitGroup
	count.Add(1)
	var delivered int
	var mu sync.Mutex
	unreg := m.RegisterListener(func(ev event.Event) {
		mu.Lock()
		delivered++
		if delivered == 1 {
			count.Done()
		}
		mu.Unlock()
	})
	defer unreg()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	frame := orderUpdateFrame("ord-1", "picking", "packing", 100)
	fc.push(frame)
	fc.push(frame) // redelivery within the window

	count.Wait()
	waitFor(t, "dedup counter", func() bool { return m.Stats().Deduplicated == 1 })

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
}

func TestManager_MalformedAndControlFramesNotForwarded(t *testing.T) {
	fc := newFakeClient()
	m, _ := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var delivered []string
	unreg := m.RegisterListener(func(ev event.Event) {
		mu.Lock()
		delivered = append(delivered, ev.OrderID)
		mu.Unlock()
	})
	defer unreg()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fc.push(`pong`)
	fc.push(`{"type":"connection_established","data":{}}`)
	fc.push(`{{{ not json`)
	fc.push(orderUpdateFrame("ord-9", "picking", "packing", 100))

	waitFor(t, "real event delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	})

	mu.Lock()
	if delivered[0] != "ord-9" {
		t.Errorf("delivered = %v, want [ord-9]", delivered)
	}
	mu.Unlock()

	if got := m.Stats().ParseErrors; got != 1 {
		t.Errorf("ParseErrors = %d, want 1", got)
	}
}

func TestManager_ReferenceCounting(t *testing.T) {
	fc := newFakeClient()
	m, _ := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unregs := make([]func(), 3)
	for i := range unregs {
		unregs[i] = m.RegisterListener(func(event.Event) {})
	}

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Unregistering all but one keeps the session open.
	unregs[0]()
	unregs[1]()
	if fc.isClosed() {
		t.Fatal("session closed while a listener remains")
	}
	if m.Status() != StatusConnected {
		t.Errorf("Status = %s, want connected", m.Status())
	}

	// The last unregister tears it down.
	unregs[2]()
	if !fc.isClosed() {
		t.Fatal("session should close when the last listener unregisters")
	}
	if m.Status() != StatusDisconnected {
		t.Errorf("Status = %s, want disconnected", m.Status())
	}

	// Disposers are idempotent.
	unregs[2]()
	if got := m.Stats().Listeners; got != 0 {
		t.Errorf("Listeners = %d, want 0", got)
	}
}

func TestManager_ReconnectAfterTransportError(t *testing.T) {
	first := newFakeClient()
	second := newFakeClient()
	m, dials := newTestManager(t, ManagerConfig{}, first, second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	first.fail(errors.New("connection reset"))

	waitFor(t, "reconnect", func() bool { return m.Status() == StatusConnected && *dials == 2 })

	if !first.isClosed() {
		t.Error("failed client should be closed")
	}
	if got := m.Stats().Reconnects; got != 1 {
		t.Errorf("Reconnects = %d, want 1", got)
	}
	if m.Err() != nil {
		t.Errorf("Err = %v, want nil after successful reconnect", m.Err())
	}

	// The new session keeps delivering.
	var delivered sync.WaitGroup
	delivered.Add(1)
	unreg := m.RegisterListener(func(event.Event) { delivered.Done() })
	defer unreg()
	second.push(orderUpdateFrame("ord-1", "picking", "packing", 100))
	delivered.Wait()
}

func TestManager_ReconnectBudgetExhausted(t *testing.T) {
	first := newFakeClient()
	broken := newFakeClient()
	broken.dialErr = errors.New("dial refused")

	m, dials := newTestManager(t, ManagerConfig{MaxReconnects: 2}, first, broken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	first.fail(errors.New("connection reset"))

	waitFor(t, "retry budget exhaustion", func() bool {
		return errors.Is(m.Err(), ErrRetriesSpent)
	})

	if m.Status() != StatusDisconnected {
		t.Errorf("Status = %s, want disconnected", m.Status())
	}
	if *dials != 3 { // initial + 2 attempts
		t.Errorf("dials = %d, want 3", *dials)
	}

	// No further automatic retries; an explicit Connect works again.
	time.Sleep(20 * time.Millisecond)
	if *dials != 3 {
		t.Errorf("dials = %d after settling, want 3", *dials)
	}
}

func TestManager_NormalCloseDoesNotReconnect(t *testing.T) {
	fc := newFakeClient()
	m, dials := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fc.fail(&websocket.CloseError{Code: websocket.CloseNormalClosure})

	waitFor(t, "disconnect", func() bool { return m.Status() == StatusDisconnected })

	time.Sleep(20 * time.Millisecond)
	if *dials != 1 {
		t.Errorf("dials = %d, want 1 (no reconnect on normal close)", *dials)
	}
	if m.Err() != nil {
		t.Errorf("Err = %v, want nil", m.Err())
	}
}

func TestManager_ManualDisconnect(t *testing.T) {
	fc := newFakeClient()
	m, dials := newTestManager(t, ManagerConfig{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unreg := m.RegisterListener(func(event.Event) {})
	defer unreg()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	m.Disconnect()

	if !fc.isClosed() {
		t.Error("client should be closed")
	}
	if m.Status() != StatusDisconnected {
		t.Errorf("Status = %s, want disconnected", m.Status())
	}
	if got := m.Stats().Listeners; got != 0 {
		t.Errorf("Listeners = %d, want 0 after Disconnect", got)
	}

	time.Sleep(20 * time.Millisecond)
	if *dials != 1 {
		t.Errorf("dials = %d, want 1 (no reconnect after manual disconnect)", *dials)
	}
}
