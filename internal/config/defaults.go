package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL           = "http://localhost:8000/api"
	DefaultWSURL             = "ws://localhost:8000/ws/orders"
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultReconnectDelay    = 3 * time.Second
	DefaultMaxReconnects     = 5
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultBufferSize        = 1000
	DefaultDedupWindow       = 5 * time.Second
	DefaultNotificationLimit = 100
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultHealthPort        = 8080
	DefaultHealthPath        = "/health"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Connection defaults
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connection.ReconnectDelay == 0 {
		c.Connection.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Connection.MaxReconnects == 0 {
		c.Connection.MaxReconnects = DefaultMaxReconnects
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Dedup defaults
	if c.Dedup.Window == 0 {
		c.Dedup.Window = DefaultDedupWindow
	}

	// Engine defaults
	if c.Engine.NotificationLimit == 0 {
		c.Engine.NotificationLimit = DefaultNotificationLimit
	}

	// Journal defaults
	if c.Journal.Enabled {
		applyDBDefaults(&c.Journal.Database)
		if c.Journal.BatchSize == 0 {
			c.Journal.BatchSize = DefaultBatchSize
		}
		if c.Journal.FlushInterval == 0 {
			c.Journal.FlushInterval = DefaultFlushInterval
		}
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
