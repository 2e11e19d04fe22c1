// Package database provides the PostgreSQL connection pool used by the
// parameter archive, and creates the archive schema on startup.
//
// The schema works on plain PostgreSQL; on TimescaleDB the parameter_values
// table is additionally turned into a hypertable on generation_time.
package database
