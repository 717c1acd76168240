// Package testinfra provides shared helpers for tests that need a real analytical
// store: an in-memory DuckDB with the schema applied and seeding functions for
// Users, Session and Plays rows.
package testinfra
