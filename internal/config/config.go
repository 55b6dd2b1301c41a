package config

import "time"

// Config is the root configuration for an order sync instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Engine     EngineConfig     `yaml:"engine"`
	Journal    JournalConfig    `yaml:"journal"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this sync client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds backend endpoint settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	Token      string        `yaml:"token"`      // Bearer token (supports ${VAR} expansion)
	TokenFile  string        `yaml:"token_file"` // Path to token file; takes precedence over Token
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ConnectionConfig holds event transport settings.
type ConnectionConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// DedupConfig holds event deduplication settings.
type DedupConfig struct {
	Window time.Duration `yaml:"window"`
}

// EngineConfig holds reconciliation engine settings for this worker.
type EngineConfig struct {
	Role              string        `yaml:"role"`
	WorkerID          string        `yaml:"worker_id"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"` // 0 disables periodic resync
	NotificationLimit int           `yaml:"notification_limit"`
}

// JournalConfig holds the optional accepted-event audit journal.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
