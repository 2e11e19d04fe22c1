package connection

import (
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotStarted          = errors.New("client not started")
	ErrAlreadyStarted      = errors.New("client already started")
	ErrConnecting          = errors.New("connection attempt already in progress")
	ErrDisconnectRequested = errors.New("disconnect requested while connecting")
	ErrCloseTimeout        = errors.New("close handshake timeout")
)

// State is the connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// RawMessage is an inbound frame handed to the router.
type RawMessage struct {
	Data       []byte    // Raw frame bytes
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// StateListener is notified about connection state changes.
// Callbacks run on client goroutines and must not block.
type StateListener interface {
	OnConnected()
	OnDisconnected()
}

// ClientConfig configures a Client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8090/simulator/_websocket)
	UserAgent        string        // Formatted as app/version, no spaces
	Header           http.Header   // Extra handshake headers (credentials)
	MergeWindow      time.Duration // Quiescence wait before merging queued requests
	ReconnectDelay   time.Duration // Fixed delay between connection attempts
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration // Write deadline for sends
	CloseTimeout     time.Duration // Max wait for the server to answer a close frame
	PingInterval     time.Duration // Keepalive ping interval (0 disables)
	BufferSize       int           // Inbound message channel buffer size
	QueueSize        int           // Initial capacity of the outgoing queue
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MergeWindow:      500 * time.Millisecond,
		ReconnectDelay:   1 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		CloseTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		BufferSize:       10000,
		QueueSize:        64,
	}
}

// ClientStats provides statistics about a client.
type ClientStats struct {
	State       State
	Dials       int64 // Connection attempts, including failures
	Sent        int64 // Requests written to the socket
	Merged      int64 // Requests folded into another before sending
	Dropped     int64 // Requests discarded because the socket was down
	Submitted   int64 // Requests passed to SendRequest
	Queued      int   // Requests waiting in the outgoing queue
	QueueGrowth int   // Times the outgoing queue doubled its capacity
	PendingAcks int   // Subscriptions awaiting acknowledgement
}
