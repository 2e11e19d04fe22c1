// Package auth provides Yamcs credentials for the WebSocket handshake and REST requests.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Credentials holds either a username/password pair or a bearer token.
// The zero value means anonymous access.
type Credentials struct {
	Username string
	Password string
	Token    string // Bearer token, takes precedence over Username
}

// LoadCredentials builds credentials from config values. When password is
// empty and passwordFile is set, the password is read from the file.
func LoadCredentials(username, password, passwordFile, token string) (*Credentials, error) {
	if token != "" && username != "" {
		return nil, errors.New("token and username are mutually exclusive")
	}

	if username != "" && password == "" && passwordFile != "" {
		p, err := LoadPassword(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("load password: %w", err)
		}
		password = p
	}

	return &Credentials{
		Username: username,
		Password: password,
		Token:    token,
	}, nil
}

// LoadPassword reads a password file, trimming surrounding whitespace.
func LoadPassword(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}

	password := strings.TrimSpace(string(data))
	if password == "" {
		return "", fmt.Errorf("password file %s is empty", path)
	}
	return password, nil
}

// IsAnonymous reports whether no credentials are set.
func (c *Credentials) IsAnonymous() bool {
	return c == nil || (c.Token == "" && c.Username == "")
}

// Authorization returns the Authorization header value, or "" when anonymous.
func (c *Credentials) Authorization() string {
	switch {
	case c.IsAnonymous():
		return ""
	case c.Token != "":
		return "Bearer " + c.Token
	default:
		raw := c.Username + ":" + c.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}
}

// Apply sets the Authorization header on h.
func (c *Credentials) Apply(h http.Header) {
	if v := c.Authorization(); v != "" {
		h.Set("Authorization", v)
	}
}

// Header returns a new header carrying the credentials.
func (c *Credentials) Header() http.Header {
	h := http.Header{}
	c.Apply(h)
	return h
}
