// Package connection implements the Yamcs WebSocket client.
//
// The Client:
//   - Owns one WebSocket connection and its lifecycle (connect, disconnect)
//   - Reconnects after a fixed delay until disconnected explicitly
//   - Queues outgoing requests and coalesces bursts of the same kind
//   - Assigns sequence IDs and tracks subscriptions awaiting acknowledgement
//   - Publishes raw inbound frames for the router
package connection
