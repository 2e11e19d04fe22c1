// Package registry keeps the set of parameters the application wants to
// receive and restores it on the server every time the connection comes up.
//
// Subscriptions are reference counted: a parameter is subscribed on the
// first Subscribe and unsubscribed when the last holder releases it. The
// registry is both a connection.StateListener and a router.Listener; ids the
// server rejects as invalid are forgotten so they are not resubscribed after
// every reconnect.
package registry
