// Package api provides a client for the Yamcs REST API.
//
// Only the endpoints the monitor needs are covered:
//   - GET /api: server identification, used as a startup check
//   - GET /api/mdb/{instance}/parameters: paged mission database listing,
//     used to expand configured namespaces into parameter ids
//
// Requests carry the same credentials and User-Agent as the WebSocket
// handshake. Failed requests are retried with jittered exponential backoff
// on 5xx and 429 responses.
package api
