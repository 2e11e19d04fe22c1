package request

import (
	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
)

// Kind tags the concrete type of an Event.
type Kind int

const (
	KindParameterSubscribe Kind = iota + 1
	KindParameterUnsubscribe
	KindCommandHistory
)

func (k Kind) String() string {
	switch k {
	case KindParameterSubscribe:
		return "parameter_subscribe"
	case KindParameterUnsubscribe:
		return "parameter_unsubscribe"
	case KindCommandHistory:
		return "cmdhistory_subscribe"
	}
	return "unknown"
}

// Event is an outgoing request waiting in the client queue.
type Event interface {
	Kind() Kind

	// CanMergeWith reports whether other can be folded into this event.
	CanMergeWith(other Event) bool

	// MergeWith returns the combination of both events. Incompatible events
	// leave the receiver unchanged.
	MergeWith(other Event) Event

	// Encode renders the event as a request frame with the given sequence ID.
	Encode(seq int32) ([]byte, error)
}

// ParameterSubscribe asks the server to push updates for IDs.
type ParameterSubscribe struct {
	IDs []protocol.NamedObjectID
}

// NewParameterSubscribe builds a subscribe event from parameter names.
func NewParameterSubscribe(names ...string) ParameterSubscribe {
	return ParameterSubscribe{IDs: namesToIDs(names)}
}

func (e ParameterSubscribe) Kind() Kind { return KindParameterSubscribe }

func (e ParameterSubscribe) CanMergeWith(other Event) bool {
	return other != nil && other.Kind() == KindParameterSubscribe
}

func (e ParameterSubscribe) MergeWith(other Event) Event {
	o, ok := other.(ParameterSubscribe)
	if !ok {
		return e
	}
	return ParameterSubscribe{IDs: Union(e.IDs, o.IDs)}
}

func (e ParameterSubscribe) Encode(seq int32) ([]byte, error) {
	return protocol.EncodeRequest(seq, protocol.ParameterRequest{
		Request: "subscribe",
		Data:    protocol.NamedObjectList{List: nonNil(e.IDs)},
	})
}

// ParameterUnsubscribe cancels updates for IDs.
type ParameterUnsubscribe struct {
	IDs []protocol.NamedObjectID
}

// NewParameterUnsubscribe builds an unsubscribe event from parameter names.
func NewParameterUnsubscribe(names ...string) ParameterUnsubscribe {
	return ParameterUnsubscribe{IDs: namesToIDs(names)}
}

func (e ParameterUnsubscribe) Kind() Kind { return KindParameterUnsubscribe }

func (e ParameterUnsubscribe) CanMergeWith(other Event) bool {
	return other != nil && other.Kind() == KindParameterUnsubscribe
}

func (e ParameterUnsubscribe) MergeWith(other Event) Event {
	o, ok := other.(ParameterUnsubscribe)
	if !ok {
		return e
	}
	return ParameterUnsubscribe{IDs: Union(e.IDs, o.IDs)}
}

func (e ParameterUnsubscribe) Encode(seq int32) ([]byte, error) {
	return protocol.EncodeRequest(seq, protocol.ParameterRequest{
		Request: "unsubscribe",
		Data:    protocol.NamedObjectList{List: nonNil(e.IDs)},
	})
}

// SubscribeAllCommandHistory asks for every command history update.
type SubscribeAllCommandHistory struct{}

func (e SubscribeAllCommandHistory) Kind() Kind { return KindCommandHistory }

func (e SubscribeAllCommandHistory) CanMergeWith(other Event) bool {
	return other != nil && other.Kind() == KindCommandHistory
}

func (e SubscribeAllCommandHistory) MergeWith(other Event) Event {
	return e
}

func (e SubscribeAllCommandHistory) Encode(seq int32) ([]byte, error) {
	return protocol.EncodeRequest(seq, protocol.CommandHistoryRequest{CmdHistory: "subscribe"})
}
