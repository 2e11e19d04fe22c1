package router

import (
	"time"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// Correlator gives the router access to the client's pending requests.
// *connection.Client implements it.
type Correlator interface {
	PendingSubscription(seq int32) ([]protocol.NamedObjectID, bool)
	AckSubscription(seq int32) bool
	SendRequest(evt request.Event)
}

// Listener receives decoded server events. Callbacks run on the router
// goroutine, in frame order.
type Listener interface {
	OnParameterData(batch ParameterBatch)
	OnCommandHistory(entry CommandHistory)
	OnInvalidIdentification(ids []protocol.NamedObjectID)
	OnException(seq int32, exc protocol.Exception)
}

// NopListener implements Listener with no-ops, for embedding.
type NopListener struct{}

func (NopListener) OnParameterData(ParameterBatch)                   {}
func (NopListener) OnCommandHistory(CommandHistory)                  {}
func (NopListener) OnInvalidIdentification([]protocol.NamedObjectID) {}
func (NopListener) OnException(int32, protocol.Exception)            {}

// ParameterBatch is one PARAMETER data frame.
type ParameterBatch struct {
	Seq        int32
	Values     []protocol.ParameterValue
	ReceivedAt time.Time
}

// CommandHistory is one CMD_HISTORY data frame.
type CommandHistory struct {
	Seq        int32
	Entry      protocol.CommandHistoryEntry
	ReceivedAt time.Time
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	Replies          int64
	Exceptions       int64
	ParameterBatches int64
	CommandHistory   int64
	Resubscribed     int64
	ParseErrors      int64
	UnknownMessages  int64
}
