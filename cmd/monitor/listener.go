package main

import (
	"log/slog"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
)

// valueLogger logs received values at debug level and server exceptions at warn.
type valueLogger struct {
	router.NopListener
	logger *slog.Logger
}

func newValueLogger(logger *slog.Logger) *valueLogger {
	return &valueLogger{logger: logger.With("component", "values")}
}

func (l *valueLogger) OnParameterData(b router.ParameterBatch) {
	for _, pv := range b.Values {
		l.logger.Debug("parameter",
			"id", pv.ID.String(),
			"value", pv.EngValue.Text(),
			"monitoring", pv.MonitoringResult,
		)
	}
}

func (l *valueLogger) OnCommandHistory(c router.CommandHistory) {
	l.logger.Debug("command history", "seq", c.Seq, "attributes", len(c.Entry.Attr))
}

func (l *valueLogger) OnException(seq int32, exc protocol.Exception) {
	l.logger.Warn("request failed", "seq", seq, "type", exc.Type, "msg", exc.Message())
}
