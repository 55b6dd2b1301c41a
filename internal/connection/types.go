package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrNoToken       = errors.New("authentication failed: no valid token")
	ErrRetriesSpent  = errors.New("connection lost: reconnect attempts exhausted")
)

// Status is the externally visible state of the logical connection.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// TimestampedMessage wraps raw frame data with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from the transport
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a single transport connection.
type ClientConfig struct {
	URL               string        // Event transport URL (e.g. wss://wms.example.com/ws/orders)
	Token             string        // Bearer token for the Authorization header
	SessionID         string        // Client session identifier sent on dial
	HeartbeatInterval time.Duration // Outbound liveness token interval
	WriteTimeout      time.Duration // Write deadline for sends
	HandshakeTimeout  time.Duration // Dial timeout
	BufferSize        int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HeartbeatInterval: 30 * time.Second,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		BufferSize:        1000,
	}
}

// ManagerConfig configures the connection manager.
type ManagerConfig struct {
	WSURL             string        // Event transport URL
	HeartbeatInterval time.Duration // Outbound liveness token interval
	ReconnectDelay    time.Duration // Fixed wait before each reconnect attempt
	MaxReconnects     int           // Reconnect attempts per outage before giving up
	WriteTimeout      time.Duration // Write deadline for sends
	HandshakeTimeout  time.Duration // Dial timeout
	BufferSize        int           // Per-connection message buffer size
	DedupWindow       time.Duration // Event deduplication window
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		HeartbeatInterval: 30 * time.Second,
		ReconnectDelay:    3 * time.Second,
		MaxReconnects:     5,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		BufferSize:        1000,
		DedupWindow:       5 * time.Second,
	}
}

// Stats provides counters about the connection manager.
type Stats struct {
	Listeners    int   // Currently registered listeners
	Accepted     int64 // Events forwarded to listeners
	Deduplicated int64 // Events suppressed as duplicates
	ParseErrors  int64 // Malformed frames dropped
	Reconnects   int64 // Successful automatic reconnections
}
