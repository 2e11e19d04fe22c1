package database

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/yamcs-studio/yamcs-ws/internal/config"
)

// BuildConnString builds a PostgreSQL connection URL for the archive
// database. Empty optional settings are left out of the query.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	params := url.Values{}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	params.Set("sslmode", sslMode)
	if cfg.ApplicationName != "" {
		params.Set("application_name", cfg.ApplicationName)
	}
	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		params.Set("connect_timeout", strconv.Itoa(secs))
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		params.Encode(),
	)
}
