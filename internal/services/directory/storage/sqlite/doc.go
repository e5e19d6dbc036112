// Package sqlite provides SQLite-backed directory persistence.
//
// It is the default on-disk store used by the directory service and the
// command tooling that exercises auth and reporting flows. Tenant-scoped
// reads and writes take the company from the request context; a missing
// context fails closed before any SQL runs.
package sqlite
