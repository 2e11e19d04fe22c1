// Package request defines the client-initiated events queued for the Yamcs
// WebSocket.
//
// Events of the same kind merge into one: parameter subscriptions and
// unsubscriptions union their id lists, and repeated command history
// subscriptions collapse into a single request. The connection worker uses
// this to coalesce bursts before anything reaches the wire.
package request
