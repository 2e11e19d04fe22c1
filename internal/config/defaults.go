package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerURL        = "http://localhost:8090"
	DefaultServerTimeout    = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultMergeWindow      = 500 * time.Millisecond
	DefaultReconnectDelay   = 1 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultCloseTimeout     = 5 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultBufferSize       = 10000
	DefaultQueueSize        = 64
	DefaultBatchSize        = 1000
	DefaultFlushInterval    = 1 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultDBAppName        = "yamcs-ws"
	DefaultDBConnectTimeout = 10 * time.Second
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultHealthPort       = 8081
	DefaultHealthPath       = "/health"
)

func (c *MonitorConfig) applyDefaults() {
	// Server defaults
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = DefaultServerTimeout
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = DefaultMaxRetries
	}

	// Client defaults
	if c.Client.MergeWindow == 0 {
		c.Client.MergeWindow = DefaultMergeWindow
	}
	if c.Client.ReconnectDelay == 0 {
		c.Client.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}
	if c.Client.CloseTimeout == 0 {
		c.Client.CloseTimeout = DefaultCloseTimeout
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = DefaultPingInterval
	}
	if c.Client.BufferSize == 0 {
		c.Client.BufferSize = DefaultBufferSize
	}
	if c.Client.QueueSize == 0 {
		c.Client.QueueSize = DefaultQueueSize
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	applyDBDefaults(&c.Archive.Database)

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
	if db.ApplicationName == "" {
		db.ApplicationName = DefaultDBAppName
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = DefaultDBConnectTimeout
	}
}
