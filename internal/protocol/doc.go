// Package protocol implements the Yamcs WebSocket wire format.
//
// Every frame is a JSON array:
//
//	[protocolVersion, messageType, sequenceID, payload]
//
// Requests travel client to server with messageType 1. The server answers with
// replies (2), exceptions (3) and pushes data (4). Replies may omit the payload.
package protocol
