// Package router decodes inbound Yamcs WebSocket frames and routes them.
//
// Replies and exceptions are correlated with pending requests through the
// client's sequence tracker. When the server rejects part of a subscription
// with InvalidIdentification, the router resends the accepted remainder.
// Parameter data and command history go to the registered listeners.
package router
