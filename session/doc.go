// Package session provides the locally cached login record and the single-slot store that
// persists it through a pluggable key-value [Storage].
//
// # Encoding
//
// Sessions are stored as a JSON envelope carrying a schema version ("v"). Decode rejects
// unknown versions and malformed documents with errors wrapping [ErrSessionCorrupt]; the
// [Store] turns any such error into "no session".
//
// # Architecture boundaries
//
// This package owns the [Store], the [Session] model and the storage backends (memory, file,
// Redis). Talking to the identity service belongs to the root package, role evaluation to
// permission and request decoration to middleware.
//
// # What this package must NOT do
//
//   - Import authclient, middleware or permission (no upward imports).
//   - Surface storage faults to callers of [Store.Load], [Store.Save] or [Store.Clear].
//   - Store passwords.
package session
