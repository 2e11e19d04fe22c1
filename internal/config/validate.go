package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *MonitorConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Instance == "" {
		return errors.New("server.instance is required")
	}
	if _, err := c.Server.WebSocketURL(); err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if c.Server.Token != "" && c.Server.Username != "" {
		return errors.New("server.token and server.username are mutually exclusive")
	}
	if c.Server.Username == "" && (c.Server.Password != "" || c.Server.PasswordFile != "") {
		return errors.New("server.password requires server.username")
	}
	if c.Server.MaxRetries < 0 {
		return errors.New("server.max_retries must be >= 0")
	}

	if c.Client.MergeWindow < 0 {
		return errors.New("client.merge_window must be >= 0")
	}
	if c.Client.ReconnectDelay <= 0 {
		return errors.New("client.reconnect_delay must be > 0")
	}
	if c.Client.BufferSize < 1 {
		return errors.New("client.buffer_size must be >= 1")
	}
	if c.Client.QueueSize < 1 {
		return errors.New("client.queue_size must be >= 1")
	}

	for i, p := range c.Subscriptions.Parameters {
		if p.Name == "" {
			return fmt.Errorf("subscriptions.parameters[%d].name is required", i)
		}
	}

	if c.Archive.Enabled {
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
