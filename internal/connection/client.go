package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// Client is a reconnecting Yamcs WebSocket client.
//
// Requests submitted with SendRequest are queued and sent by a single worker
// that waits MergeWindow after the first queued request and merges every
// compatible request behind it into one frame.
type Client struct {
	cfg       ClientConfig
	logger    *slog.Logger
	transport Transport
	id        uuid.UUID

	queue   *eventQueue
	tracker *Tracker

	// Output channel
	messages chan RawMessage

	state     atomic.Int32
	reconnect atomic.Bool

	// Guards the fields below and the Connecting→Connected and
	// Connected→Disconnected transitions made by dial and Disconnect.
	mu        sync.Mutex
	conn      Conn
	closed    chan struct{} // Closed when the read loop of conn exits
	timer     *time.Timer   // Pending reconnect attempt
	userAgent string
	listeners []StateListener

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	dials   atomic.Int64
	sent    atomic.Int64
	merged  atomic.Int64
	dropped atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the gorilla/websocket transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithStateListener registers a listener at construction time.
func WithStateListener(l StateListener) Option {
	return func(c *Client) {
		c.listeners = append(c.listeners, l)
	}
}

// NewClient creates a new client. Call Start before Connect.
func NewClient(cfg ClientConfig, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	c := &Client{
		cfg:       cfg,
		logger:    logger.With("client_id", id.String()),
		id:        id,
		queue:     newEventQueue(cfg.QueueSize),
		tracker:   NewTracker(),
		messages:  make(chan RawMessage, cfg.BufferSize),
		userAgent: cfg.UserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewWebSocketTransport(cfg.HandshakeTimeout)
	}

	return c
}

// ID identifies this client instance.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Start launches the outgoing request worker.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.processEvents()

	c.logger.Info("websocket client started",
		"url", c.cfg.URL,
		"merge_window", c.cfg.MergeWindow,
		"reconnect_delay", c.cfg.ReconnectDelay,
	)
	return nil
}

// Stop disconnects, stops the worker and waits for all goroutines.
func (c *Client) Stop(ctx context.Context) error {
	c.logger.Info("stopping websocket client")

	if err := c.Disconnect(ctx); err != nil {
		c.logger.Warn("disconnect during stop failed", "error", err)
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("websocket client stopped")
	case <-ctx.Done():
		c.logger.Warn("websocket client stop timed out")
		return ctx.Err()
	}
	return nil
}

// AddStateListener registers a listener for connection state changes.
func (c *Client) AddStateListener(l StateListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// SetUserAgent sets the User-Agent sent on the next handshake.
// Formatted as app/version, no spaces.
func (c *Client) SetUserAgent(userAgent string) {
	c.mu.Lock()
	c.userAgent = userAgent
	c.mu.Unlock()
}

// Connect enables reconnection and attempts a connection. If the attempt
// fails, further attempts are scheduled every ReconnectDelay until one
// succeeds or Disconnect is called; the first error is returned either way.
// ErrConnecting means an earlier attempt is still running.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	started := c.ctx != nil
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	c.reconnect.Store(true)
	return c.dial(ctx)
}

// Disconnect disables reconnection and closes the connection, blocking until
// the server answers the close frame, CloseTimeout elapses or ctx is done.
// It is a no-op when not connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.reconnect.Store(false)
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		c.mu.Unlock()
		c.logger.Debug("close requested, but connection was already closed")
		return nil
	}
	conn, closed := c.conn, c.closed
	c.conn = nil
	c.mu.Unlock()

	c.logger.Info("websocket client sending close")
	c.tracker.Reset()

	var err error
	if werr := conn.WriteClose(time.Now().Add(c.cfg.WriteTimeout)); werr != nil {
		c.logger.Debug("failed to send close frame", "error", werr)
		conn.Close()
	}

	timeout := time.NewTimer(c.cfg.CloseTimeout)
	defer timeout.Stop()

	select {
	case <-closed:
	case <-timeout.C:
		c.logger.Warn("close handshake timed out, forcing close", "timeout", c.cfg.CloseTimeout)
		conn.Close()
		<-closed
		err = ErrCloseTimeout
	case <-ctx.Done():
		conn.Close()
		<-closed
		err = ctx.Err()
	}

	c.notifyDisconnected()
	c.logger.Info("websocket disconnected")
	return err
}

// IsConnected returns true while the connection is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// SendRequest queues a request for the worker. It never blocks.
func (c *Client) SendRequest(evt request.Event) {
	c.queue.Push(evt)
}

// Messages returns the channel of inbound frames.
func (c *Client) Messages() <-chan RawMessage {
	return c.messages
}

// NextSequenceID returns the next request sequence ID.
func (c *Client) NextSequenceID() int32 {
	return c.tracker.Next()
}

// PendingSubscription returns the ids sent with seq if not yet acknowledged.
func (c *Client) PendingSubscription(seq int32) ([]protocol.NamedObjectID, bool) {
	return c.tracker.Pending(seq)
}

// AckSubscription forgets seq. Unknown IDs are ignored.
func (c *Client) AckSubscription(seq int32) bool {
	return c.tracker.Ack(seq)
}

// Stats returns current statistics.
func (c *Client) Stats() ClientStats {
	submitted, resizes := c.queue.Stats()
	return ClientStats{
		State:       c.State(),
		Dials:       c.dials.Load(),
		Sent:        c.sent.Load(),
		Merged:      c.merged.Load(),
		Dropped:     c.dropped.Load(),
		Submitted:   submitted,
		Queued:      c.queue.Len(),
		QueueGrowth: resizes,
		PendingAcks: c.tracker.Len(),
	}
}

// dial makes one connection attempt and schedules a retry on failure.
// It returns nil without dialing when already connected, and ErrConnecting
// when another attempt is in flight.
func (c *Client) dial(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if c.State() == StateConnecting {
			return ErrConnecting
		}
		return nil
	}
	c.dials.Add(1)

	c.logger.Info("websocket client connecting", "url", c.cfg.URL)

	conn, err := c.transport.Dial(ctx, c.cfg.URL, c.handshakeHeader())
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.logger.Warn("connection attempt failed", "url", c.cfg.URL, "error", err)
		c.scheduleReconnect()
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if !c.reconnect.Load() {
		c.state.Store(int32(StateDisconnected))
		c.mu.Unlock()
		conn.Close()
		return ErrDisconnectRequested
	}
	closed := make(chan struct{})
	c.conn = conn
	c.closed = closed
	c.state.Store(int32(StateConnected))
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readLoop(conn, closed)
	go c.pingLoop(conn, closed)

	c.logger.Info("websocket connected", "url", c.cfg.URL)
	c.notifyConnected()
	return nil
}

// scheduleReconnect arms a single retry after ReconnectDelay.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reconnect.Load() || c.ctx == nil || c.ctx.Err() != nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}

	c.logger.Info("reconnect scheduled", "delay", c.cfg.ReconnectDelay)
	c.timer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		if !c.reconnect.Load() {
			return
		}
		c.dial(c.ctx)
	})
}

func (c *Client) handshakeHeader() http.Header {
	header := http.Header{}
	for k, v := range c.cfg.Header {
		header[k] = append([]string(nil), v...)
	}

	c.mu.Lock()
	ua := c.userAgent
	c.mu.Unlock()
	if ua != "" {
		header.Set("User-Agent", ua)
	}
	return header
}

// currentConn returns the open connection, or nil.
func (c *Client) currentConn() Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateConnected {
		return nil
	}
	return c.conn
}

// readLoop reads frames and sends them to the messages channel.
func (c *Client) readLoop(conn Conn, closed chan struct{}) {
	defer c.wg.Done()

	for {
		data, err := conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			c.handleClosed(conn, closed, err)
			return
		}

		select {
		case c.messages <- RawMessage{Data: data, ReceivedAt: receivedAt}:
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// handleClosed runs when the read loop of conn ends.
func (c *Client) handleClosed(conn Conn, closed chan struct{}, cause error) {
	conn.Close()
	close(closed)

	c.mu.Lock()
	lost := c.conn == conn && c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected))
	if lost {
		c.conn = nil
	}
	c.mu.Unlock()

	if !lost {
		// Disconnect owns the transition and is waiting on closed.
		c.logger.Debug("websocket read loop ended", "error", cause)
		return
	}

	c.logger.Warn("websocket connection lost", "error", cause)
	c.tracker.Reset()
	c.notifyDisconnected()
	c.scheduleReconnect()
}

// pingLoop keeps the connection alive.
func (c *Client) pingLoop(conn Conn, closed chan struct{}) {
	defer c.wg.Done()

	if c.cfg.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WritePing(deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

func (c *Client) snapshotListeners() []StateListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]StateListener(nil), c.listeners...)
}

func (c *Client) notifyConnected() {
	for _, l := range c.snapshotListeners() {
		l.OnConnected()
	}
}

func (c *Client) notifyDisconnected() {
	for _, l := range c.snapshotListeners() {
		l.OnDisconnected()
	}
}
