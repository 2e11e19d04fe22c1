package connection

import (
	"time"

	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// processEvents drains the outgoing queue. After the first event arrives it
// waits MergeWindow so a burst can pile up, then merges every compatible
// event at the head of the queue and sends the result as one request.
func (c *Client) processEvents() {
	defer c.wg.Done()

	for {
		evt, err := c.queue.Take(c.ctx)
		if err != nil {
			c.logger.Info("outgoing request processing stopped", "reason", err)
			return
		}

		if c.cfg.MergeWindow > 0 {
			wait := time.NewTimer(c.cfg.MergeWindow)
			select {
			case <-c.ctx.Done():
				wait.Stop()
				c.logger.Info("outgoing request processing stopped", "reason", c.ctx.Err())
				return
			case <-wait.C:
			}
		}

		evt, merged := c.queue.MergeInto(evt)
		c.merged.Add(int64(merged))
		c.transmit(evt, merged)
	}
}

// transmit writes one request. Requests are not requeued when the socket is
// down; subscription owners resubscribe on reconnect.
func (c *Client) transmit(evt request.Event, merged int) {
	conn := c.currentConn()
	if conn == nil {
		c.dropped.Add(1)
		c.logger.Warn("not connected, dropping request", "kind", evt.Kind())
		return
	}

	seq := c.tracker.Next()
	data, err := evt.Encode(seq)
	if err != nil {
		c.logger.Error("failed to encode request", "kind", evt.Kind(), "seq", seq, "error", err)
		return
	}

	if sub, ok := evt.(request.ParameterSubscribe); ok {
		c.tracker.Track(seq, sub.IDs)
	}

	if err := conn.WriteText(data, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.tracker.Ack(seq)
		c.dropped.Add(1)
		c.logger.Warn("failed to send request", "kind", evt.Kind(), "seq", seq, "error", err)
		return
	}

	c.sent.Add(1)
	c.logger.Debug("sent request",
		"kind", evt.Kind(),
		"seq", seq,
		"merged", merged,
		"bytes", len(data),
	)
}
