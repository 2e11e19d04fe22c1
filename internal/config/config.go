package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MonitorConfig is the root configuration for a monitor instance.
type MonitorConfig struct {
	Instance      InstanceConfig      `yaml:"instance"`
	Server        ServerConfig        `yaml:"server"`
	Client        ClientConfig        `yaml:"client"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Health        HealthConfig        `yaml:"health"`
}

// InstanceConfig identifies this monitor.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds Yamcs server settings.
type ServerConfig struct {
	URL          string        `yaml:"url"`    // HTTP base URL (e.g., http://localhost:8090)
	WSURL        string        `yaml:"ws_url"` // Overrides the WebSocket URL derived from url and instance
	Instance     string        `yaml:"instance"`
	UserAgent    string        `yaml:"user_agent"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"` // Read when password is empty
	Token        string        `yaml:"token"`         // Bearer token, exclusive with username
	Timeout      time.Duration `yaml:"timeout"`       // REST request timeout
	MaxRetries   int           `yaml:"max_retries"`
}

// ClientConfig holds WebSocket client settings.
type ClientConfig struct {
	MergeWindow      time.Duration `yaml:"merge_window"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	CloseTimeout     time.Duration `yaml:"close_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	BufferSize       int           `yaml:"buffer_size"`
	QueueSize        int           `yaml:"queue_size"`
}

// SubscriptionsConfig lists what the monitor subscribes to.
type SubscriptionsConfig struct {
	Parameters     []ParameterRef `yaml:"parameters"`
	Namespaces     []string       `yaml:"namespaces"` // Expanded to their parameters through the REST API
	CommandHistory bool           `yaml:"command_history"`
}

// ParameterRef names a parameter, optionally in a namespace.
type ParameterRef struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
}

// ArchiveConfig holds parameter archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Database      DBConfig      `yaml:"database"`
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

	ApplicationName string        `yaml:"application_name"` // Shown in pg_stat_activity
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// WebSocketURL returns ws_url if set, otherwise derives
// ws(s)://host/{instance}/_websocket from the server URL.
func (s ServerConfig) WebSocketURL() (string, error) {
	if s.WSURL != "" {
		return s.WSURL, nil
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + s.Instance + "/_websocket"
	u.RawQuery = ""
	return u.String(), nil
}
