// Package directory is the identity and tenant-data authority for Absentia.
//
// It owns credentials, sessions, and the tenant tables every dashboard reads,
// so consuming services can depend on stable subject IDs and tenant-scoped
// queries instead of re-implementing identity and isolation rules. Sign-up is
// ordered identity-first: the credential record is created before the tenant
// profile, and a failed profile insert deletes the identity again so no
// orphaned credential can accept a sign-in.
//
// Subpackages:
//   - app: directory server wiring and lifecycle
//   - api/httpapi: HTTP/JSON handlers for external frontends
//   - storage: persistence interfaces and SQLite implementations
//   - company, profile, employee, absence: tenant domain models
//   - token: signed access token issuance and parsing
//   - sessionfeed: session-change notification delivery
package directory
