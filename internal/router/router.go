package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yamcs-studio/yamcs-ws/internal/connection"
	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// Router parses raw WebSocket frames and routes them to listeners.
type Router interface {
	// Start begins routing frames from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// AddListener registers a listener for decoded server events.
	AddListener(l Listener)

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	logger *slog.Logger

	// Input from the client
	input      <-chan connection.RawMessage
	correlator Correlator

	listenersMu sync.RWMutex
	listeners   []Listener

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	received       atomic.Int64
	replies        atomic.Int64
	exceptions     atomic.Int64
	parameterData  atomic.Int64
	commandHistory atomic.Int64
	resubscribed   atomic.Int64
	parseErrors    atomic.Int64
	unknown        atomic.Int64
}

// NewRouter creates a new router.
func NewRouter(input <-chan connection.RawMessage, correlator Correlator, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		logger:     logger,
		input:      input,
		correlator: correlator,
	}
}

// Start begins routing frames.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("frame router started")
	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping frame router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("frame router stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("frame router stop timed out")
		return ctx.Err()
	}
}

// AddListener registers a listener.
func (r *router) AddListener(l Listener) {
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, l)
	r.listenersMu.Unlock()
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	return RouterStats{
		MessagesReceived: r.received.Load(),
		Replies:          r.replies.Load(),
		Exceptions:       r.exceptions.Load(),
		ParameterBatches: r.parameterData.Load(),
		CommandHistory:   r.commandHistory.Load(),
		Resubscribed:     r.resubscribed.Load(),
		ParseErrors:      r.parseErrors.Load(),
		UnknownMessages:  r.unknown.Load(),
	}
}

// routeLoop reads from input and routes each frame.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-r.input:
			if !ok {
				return
			}
			r.route(msg)
		}
	}
}

// route decodes one frame and dispatches it by message type.
func (r *router) route(msg connection.RawMessage) {
	defer r.received.Add(1)

	f, err := protocol.DecodeFrame(msg.Data)
	if err != nil {
		r.parseErrors.Add(1)
		r.logger.Warn("failed to decode frame", "error", err, "size", len(msg.Data))
		return
	}

	switch f.Type {
	case protocol.MessageTypeReply:
		if !r.correlator.AckSubscription(f.Seq) {
			r.logger.Debug("reply for untracked request", "seq", f.Seq)
		}
		r.replies.Add(1)

	case protocol.MessageTypeException:
		r.handleException(f)

	case protocol.MessageTypeData:
		r.handleData(f, msg)

	default:
		r.unknown.Add(1)
		r.logger.Debug("unknown message type", "type", f.Type, "seq", f.Seq)
	}
}

// handleException acknowledges the failed request. A subscription rejected
// for unknown parameters is resent with only the parameters the server did
// not complain about.
func (r *router) handleException(f protocol.Frame) {
	defer r.exceptions.Add(1)

	exc, err := f.Exception()
	if err != nil {
		r.parseErrors.Add(1)
		r.correlator.AckSubscription(f.Seq)
		r.logger.Warn("failed to decode exception", "seq", f.Seq, "error", err)
		return
	}

	if exc.Type != protocol.ExceptionInvalidIdentification {
		r.correlator.AckSubscription(f.Seq)
		r.logger.Warn("server exception",
			"seq", f.Seq,
			"type", exc.Type,
			"msg", exc.Message(),
		)
		r.forEach(func(l Listener) { l.OnException(f.Seq, exc) })
		return
	}

	invalid, err := exc.InvalidIDs()
	if err != nil {
		r.parseErrors.Add(1)
		r.correlator.AckSubscription(f.Seq)
		r.logger.Warn("failed to decode invalid identification", "seq", f.Seq, "error", err)
		return
	}

	sent, ok := r.correlator.PendingSubscription(f.Seq)
	r.correlator.AckSubscription(f.Seq)

	if ok {
		// Resend only when the server named some of the sent ids; anything
		// else would resend the same request and be rejected again.
		remaining := request.Subtract(sent, invalid)
		if len(remaining) == len(sent) {
			r.logger.Warn("rejected ids do not match the request, not resending",
				"seq", f.Seq,
				"sent", len(sent),
			)
		} else if len(remaining) > 0 {
			r.resubscribed.Add(1)
			r.logger.Info("resubscribing without invalid parameters",
				"seq", f.Seq,
				"invalid", len(invalid),
				"remaining", len(remaining),
			)
			r.correlator.SendRequest(request.ParameterSubscribe{IDs: remaining})
		}
	}

	r.logger.Warn("invalid parameters", "seq", f.Seq, "ids", invalid)
	r.forEach(func(l Listener) { l.OnInvalidIdentification(invalid) })
}

// handleData dispatches parameter values and command history.
func (r *router) handleData(f protocol.Frame, msg connection.RawMessage) {
	dm, err := f.Data()
	if err != nil {
		r.parseErrors.Add(1)
		r.logger.Warn("failed to decode data frame", "seq", f.Seq, "error", err)
		return
	}

	switch dm.Type {
	case protocol.DataTypeParameter:
		var pd protocol.ParameterData
		if err := json.Unmarshal(dm.Data, &pd); err != nil {
			r.parseErrors.Add(1)
			r.logger.Warn("failed to decode parameter data", "seq", f.Seq, "error", err)
			return
		}
		batch := ParameterBatch{Seq: f.Seq, Values: pd.Parameter, ReceivedAt: msg.ReceivedAt}
		r.forEach(func(l Listener) { l.OnParameterData(batch) })
		r.parameterData.Add(1)

	case protocol.DataTypeCommandHistory:
		var entry protocol.CommandHistoryEntry
		if err := json.Unmarshal(dm.Data, &entry); err != nil {
			r.parseErrors.Add(1)
			r.logger.Warn("failed to decode command history", "seq", f.Seq, "error", err)
			return
		}
		ch := CommandHistory{Seq: f.Seq, Entry: entry, ReceivedAt: msg.ReceivedAt}
		r.forEach(func(l Listener) { l.OnCommandHistory(ch) })
		r.commandHistory.Add(1)

	default:
		r.unknown.Add(1)
		r.logger.Debug("unhandled data type", "type", dm.Type, "seq", f.Seq)
	}
}

func (r *router) forEach(fn func(Listener)) {
	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()

	for _, l := range listeners {
		fn(l)
	}
}
