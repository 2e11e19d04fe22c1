package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*http.Request, *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// recorder collects frames received by the mock server.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) handler(_ *http.Request, conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.frames = append(r.frames, msg)
		r.mu.Unlock()
	}
}

func (r *recorder) snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

// sentRequest is a decoded request frame.
type sentRequest struct {
	Seq     int32
	Request string
	IDs     []string
	CmdHist string
}

func decodeRequest(t *testing.T, data []byte) sentRequest {
	t.Helper()

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) != 4 {
		t.Fatalf("bad request frame %s: %v", data, err)
	}

	var out sentRequest
	if err := json.Unmarshal(parts[2], &out.Seq); err != nil {
		t.Fatalf("bad sequence in %s: %v", data, err)
	}

	var payload struct {
		Request    string                   `json:"request"`
		Data       protocol.NamedObjectList `json:"data"`
		CmdHistory string                   `json:"cmdhistory"`
	}
	if err := json.Unmarshal(parts[3], &payload); err != nil {
		t.Fatalf("bad payload in %s: %v", data, err)
	}
	out.Request = payload.Request
	out.CmdHist = payload.CmdHistory
	for _, id := range payload.Data.List {
		out.IDs = append(out.IDs, id.String())
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func testConfig(url string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = url
	cfg.MergeWindow = 100 * time.Millisecond
	cfg.ReconnectDelay = 50 * time.Millisecond
	cfg.CloseTimeout = time.Second
	cfg.BufferSize = 100
	return cfg
}

func startClient(t *testing.T, cfg ClientConfig, opts ...Option) *Client {
	t.Helper()
	client := NewClient(cfg, nil, opts...)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client.Stop(ctx)
	})
	return client
}

func TestClient_ConnectDisconnect(t *testing.T) {
	rec := &recorder{}
	server := mockWSServer(t, rec.handler)
	defer server.Close()

	client := startClient(t, testConfig(wsURL(server)))
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := client.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect failed: %v", err)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Disconnect")
	}

	// Second disconnect is a no-op
	if err := client.Disconnect(ctx); err != nil {
		t.Errorf("second Disconnect failed: %v", err)
	}
}

func TestClient_ConnectBeforeStart(t *testing.T) {
	client := NewClient(testConfig("ws://localhost:1"), nil)
	if err := client.Connect(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestClient_DoubleStart(t *testing.T) {
	client := startClient(t, testConfig("ws://localhost:1"))
	if err := client.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestClient_UserAgent(t *testing.T) {
	agents := make(chan string, 1)
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		agents <- r.Header.Get("User-Agent")
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := startClient(t, testConfig(wsURL(server)))
	client.SetUserAgent("yamcs-ws/1.2.3")

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case ua := <-agents:
		if ua != "yamcs-ws/1.2.3" {
			t.Errorf("User-Agent = %q, want %q", ua, "yamcs-ws/1.2.3")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handshake")
	}
}

func TestClient_MergesSubscriptionBurst(t *testing.T) {
	rec := &recorder{}
	server := mockWSServer(t, rec.handler)
	defer server.Close()

	client := startClient(t, testConfig(wsURL(server)))
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	client.SendRequest(request.NewParameterSubscribe("A", "B"))
	client.SendRequest(request.NewParameterSubscribe("B", "C"))

	if !waitFor(t, 2*time.Second, func() bool { return len(rec.snapshot()) >= 1 }) {
		t.Fatal("timeout waiting for subscribe frame")
	}
	// Leave room for a second frame that must not come
	time.Sleep(300 * time.Millisecond)

	frames := rec.snapshot()
	if len(frames) != 1 {
		t.Fatalf("received %d frames, want 1", len(frames))
	}

	req := decodeRequest(t, frames[0])
	if req.Request != "subscribe" {
		t.Errorf("Request = %s, want subscribe", req.Request)
	}
	want := []string{"A", "B", "C"}
	if strings.Join(req.IDs, ",") != strings.Join(want, ",") {
		t.Errorf("IDs = %v, want %v", req.IDs, want)
	}

	ids, ok := client.PendingSubscription(req.Seq)
	if !ok || len(ids) != 3 {
		t.Errorf("PendingSubscription(%d) = %v, %v, want 3 ids", req.Seq, ids, ok)
	}

	stats := client.Stats()
	if stats.Sent != 1 || stats.Merged != 1 {
		t.Errorf("Stats sent=%d merged=%d, want 1 and 1", stats.Sent, stats.Merged)
	}
}

func TestClient_TypeChangeKeepsOrder(t *testing.T) {
	rec := &recorder{}
	server := mockWSServer(t, rec.handler)
	defer server.Close()

	client := startClient(t, testConfig(wsURL(server)))
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	client.SendRequest(request.NewParameterSubscribe("A"))
	client.SendRequest(request.NewParameterSubscribe("B"))
	client.SendRequest(request.NewParameterUnsubscribe("A"))
	client.SendRequest(request.SubscribeAllCommandHistory{})

	if !waitFor(t, 3*time.Second, func() bool { return len(rec.snapshot()) >= 3 }) {
		t.Fatalf("received %d frames, want 3", len(rec.snapshot()))
	}

	frames := rec.snapshot()
	first := decodeRequest(t, frames[0])
	second := decodeRequest(t, frames[1])
	third := decodeRequest(t, frames[2])

	if first.Request != "subscribe" || strings.Join(first.IDs, ",") != "A,B" {
		t.Errorf("first = %+v, want subscribe A,B", first)
	}
	if second.Request != "unsubscribe" || strings.Join(second.IDs, ",") != "A" {
		t.Errorf("second = %+v, want unsubscribe A", second)
	}
	if third.CmdHist != "subscribe" {
		t.Errorf("third = %+v, want cmdhistory subscribe", third)
	}
	if !(first.Seq < second.Seq && second.Seq < third.Seq) {
		t.Errorf("sequence IDs not increasing: %d, %d, %d", first.Seq, second.Seq, third.Seq)
	}

	// Only subscriptions are tracked
	if _, ok := client.PendingSubscription(second.Seq); ok {
		t.Error("unsubscribe should not be tracked")
	}
}

func TestClient_DropsWhenNotConnected(t *testing.T) {
	client := startClient(t, testConfig("ws://localhost:1"))

	client.SendRequest(request.NewParameterSubscribe("A"))

	if !waitFor(t, time.Second, func() bool { return client.Stats().Dropped == 1 }) {
		t.Errorf("Dropped = %d, want 1", client.Stats().Dropped)
	}
	if client.Stats().PendingAcks != 0 {
		t.Error("dropped request should not be tracked")
	}
}

// fakeConn is an in-memory Conn.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte

	reads       chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	silentClose bool // Server never answers the close frame
}

var errFakeClosed = errors.New("fake connection closed")

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads: make(chan []byte, 10),
		done:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.reads:
		return data, nil
	case <-c.done:
		return nil, errFakeClosed
	}
}

func (c *fakeConn) WriteText(data []byte, _ time.Time) error {
	select {
	case <-c.done:
		return errFakeClosed
	default:
	}
	c.mu.Lock()
	c.written = append(c.written, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) WritePing(time.Time) error { return nil }

// WriteClose behaves like a server that answers the close frame at once,
// unless silentClose is set.
func (c *fakeConn) WriteClose(time.Time) error {
	if c.silentClose {
		return nil
	}
	return c.Close()
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// fakeTransport fails the first `failures` dials. When gate is set, each
// dial signals entered and then blocks until gate is closed.
type fakeTransport struct {
	mu          sync.Mutex
	failures    int
	silentClose bool
	dials       []time.Time
	conns       []*fakeConn

	gate    chan struct{}
	entered chan struct{}
}

var errDialFailed = errors.New("connection refused")

func (t *fakeTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	if t.gate != nil {
		select {
		case t.entered <- struct{}{}:
		default:
		}
		<-t.gate
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.dials = append(t.dials, time.Now())
	if len(t.dials) <= t.failures {
		return nil, errDialFailed
	}
	conn := newFakeConn()
	conn.silentClose = t.silentClose
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *fakeTransport) dialTimes() []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Time(nil), t.dials...)
}

func (t *fakeTransport) lastConn() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

// countingListener counts state callbacks.
type countingListener struct {
	connected    atomic.Int32
	disconnected atomic.Int32
}

func (l *countingListener) OnConnected()    { l.connected.Add(1) }
func (l *countingListener) OnDisconnected() { l.disconnected.Add(1) }

func TestClient_ReconnectsAfterFailures(t *testing.T) {
	transport := &fakeTransport{failures: 3}
	cfg := testConfig("ws://fake")
	listener := &countingListener{}

	client := startClient(t, cfg, WithTransport(transport), WithStateListener(listener))

	err := client.Connect(context.Background())
	if !errors.Is(err, errDialFailed) {
		t.Fatalf("Connect error = %v, want %v", err, errDialFailed)
	}
	if client.IsConnected() {
		t.Fatal("expected client to be disconnected after failed attempt")
	}

	if !waitFor(t, 2*time.Second, client.IsConnected) {
		t.Fatal("client did not reconnect")
	}

	dials := transport.dialTimes()
	if len(dials) != 4 {
		t.Fatalf("dials = %d, want 4", len(dials))
	}
	for i := 1; i < len(dials); i++ {
		gap := dials[i].Sub(dials[i-1])
		if gap < cfg.ReconnectDelay-5*time.Millisecond {
			t.Errorf("gap between dial %d and %d = %v, want >= %v", i-1, i, gap, cfg.ReconnectDelay)
		}
	}

	if got := listener.connected.Load(); got != 1 {
		t.Errorf("OnConnected called %d times, want 1", got)
	}

	// No further attempts once connected
	time.Sleep(3 * cfg.ReconnectDelay)
	if n := len(transport.dialTimes()); n != 4 {
		t.Errorf("dials after success = %d, want 4", n)
	}
}

func TestClient_DisconnectDuringDial(t *testing.T) {
	transport := &fakeTransport{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	cfg := testConfig("ws://fake")
	listener := &countingListener{}

	client := startClient(t, cfg, WithTransport(transport), WithStateListener(listener))
	ctx := context.Background()

	result := make(chan error, 1)
	go func() { result <- client.Connect(ctx) }()

	select {
	case <-transport.entered:
	case <-time.After(time.Second):
		t.Fatal("dial did not start")
	}

	if err := client.Connect(ctx); !errors.Is(err, ErrConnecting) {
		t.Errorf("Connect during dial = %v, want %v", err, ErrConnecting)
	}
	if err := client.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect during dial failed: %v", err)
	}
	close(transport.gate)

	select {
	case err := <-result:
		if !errors.Is(err, ErrDisconnectRequested) {
			t.Errorf("Connect error = %v, want %v", err, ErrDisconnectRequested)
		}
	case <-time.After(time.Second):
		t.Fatal("Connect did not return")
	}

	if client.IsConnected() {
		t.Error("expected IsConnected to return false")
	}
	conn := transport.lastConn()
	if conn == nil || !conn.isClosed() {
		t.Error("socket opened by the interrupted dial should be closed")
	}
	if got := listener.connected.Load(); got != 0 {
		t.Errorf("OnConnected called %d times, want 0", got)
	}

	time.Sleep(4 * cfg.ReconnectDelay)
	if n := len(transport.dialTimes()); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}
}

func TestClient_CloseHandshakeTimeout(t *testing.T) {
	transport := &fakeTransport{silentClose: true}
	cfg := testConfig("ws://fake")
	cfg.CloseTimeout = 100 * time.Millisecond
	listener := &countingListener{}

	client := startClient(t, cfg, WithTransport(transport), WithStateListener(listener))
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	start := time.Now()
	err := client.Disconnect(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrCloseTimeout) {
		t.Errorf("Disconnect error = %v, want %v", err, ErrCloseTimeout)
	}
	if elapsed < cfg.CloseTimeout {
		t.Errorf("Disconnect returned after %v, want >= %v", elapsed, cfg.CloseTimeout)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false")
	}
	if !transport.lastConn().isClosed() {
		t.Error("socket should be force-closed")
	}
	if got := listener.disconnected.Load(); got != 1 {
		t.Errorf("OnDisconnected called %d times, want 1", got)
	}

	time.Sleep(4 * cfg.ReconnectDelay)
	if n := len(transport.dialTimes()); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}
}

func TestClient_DisconnectStopsReconnecting(t *testing.T) {
	transport := &fakeTransport{failures: 1000}
	cfg := testConfig("ws://fake")

	client := startClient(t, cfg, WithTransport(transport))

	client.Connect(context.Background())
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	before := len(transport.dialTimes())
	time.Sleep(4 * cfg.ReconnectDelay)
	after := len(transport.dialTimes())

	if after != before {
		t.Errorf("dials grew from %d to %d after Disconnect", before, after)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false")
	}
}

func TestClient_NoReconnectAfterDisconnect(t *testing.T) {
	transport := &fakeTransport{}
	cfg := testConfig("ws://fake")
	listener := &countingListener{}

	client := startClient(t, cfg, WithTransport(transport), WithStateListener(listener))

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Disconnect")
	}
	if got := listener.disconnected.Load(); got != 1 {
		t.Errorf("OnDisconnected called %d times, want 1", got)
	}

	time.Sleep(4 * cfg.ReconnectDelay)
	if n := len(transport.dialTimes()); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}

	// Connect re-arms
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected to return true after second Connect")
	}
}

func TestClient_ReconnectsAfterConnectionLoss(t *testing.T) {
	transport := &fakeTransport{}
	cfg := testConfig("ws://fake")
	listener := &countingListener{}

	client := startClient(t, cfg, WithTransport(transport), WithStateListener(listener))

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	first := transport.lastConn()

	// Simulate a subscription awaiting acknowledgement
	seq := client.NextSequenceID()
	client.tracker.Track(seq, []protocol.NamedObjectID{{Name: "A"}})

	// Server goes away
	first.Close()

	if !waitFor(t, time.Second, func() bool { return listener.disconnected.Load() == 1 }) {
		t.Fatal("OnDisconnected not called")
	}
	if !waitFor(t, time.Second, func() bool { return listener.connected.Load() == 2 }) {
		t.Fatal("client did not reconnect")
	}

	if transport.lastConn() == first {
		t.Error("expected a new connection")
	}
	if client.Stats().PendingAcks != 0 {
		t.Error("pending acknowledgements should be dropped on connection loss")
	}
}

func TestClient_Messages(t *testing.T) {
	transport := &fakeTransport{}
	client := startClient(t, testConfig("ws://fake"), WithTransport(transport))

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	transport.lastConn().reads <- []byte(`[1,2,1]`)

	select {
	case msg := <-client.Messages():
		if string(msg.Data) != `[1,2,1]` {
			t.Errorf("Data = %s, want [1,2,1]", msg.Data)
		}
		if msg.ReceivedAt.IsZero() {
			t.Error("ReceivedAt should not be zero")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
