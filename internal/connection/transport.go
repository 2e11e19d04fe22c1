package connection

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single open WebSocket.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the socket closes.
	ReadMessage() ([]byte, error)

	// WriteText sends a text frame.
	WriteText(data []byte, deadline time.Time) error

	// WritePing sends a keepalive ping.
	WritePing(deadline time.Time) error

	// WriteClose starts the close handshake. The socket stays readable until
	// the server answers.
	WriteClose(deadline time.Time) error

	// Close tears the socket down immediately.
	Close() error
}

// Transport opens connections.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// websocketTransport dials with gorilla/websocket.
type websocketTransport struct {
	dialer websocket.Dialer
}

// NewWebSocketTransport returns the production Transport.
func NewWebSocketTransport(handshakeTimeout time.Duration) Transport {
	return &websocketTransport{
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial establishes the WebSocket connection.
func (t *websocketTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts *websocket.Conn to Conn.
type wsConn struct {
	conn *websocket.Conn

	// Write serialization; control frames may be written concurrently.
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteText(data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) WritePing(deadline time.Time) error {
	return c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
}

func (c *wsConn) WriteClose(deadline time.Time) error {
	return c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
