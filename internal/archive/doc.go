// Package archive persists received parameter values to PostgreSQL.
//
// ParameterWriter is a router.Listener: values are appended to an in-memory
// batch on the router goroutine and written by a flush goroutine with a
// pgx.Batch, either when the batch is full or on a fixed interval.
// Inserts are append-only; a value already stored for the same session,
// parameter and generation time is skipped.
package archive
