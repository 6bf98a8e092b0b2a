// Package permission evaluates cached authority lists against requested role names.
//
// # Role matching
//
// Identity services emit authorities either as bare role names ("ADMIN") or with the
// fixed, case-sensitive prefix "ROLE_" ("ROLE_ADMIN"). [HasRole] accepts both forms so
// callers never need to know which convention is in effect.
//
// # Architecture boundaries
//
// This package is pure and performs no I/O. It does not load sessions; callers pass the
// authority list they already hold.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import authclient, session, or middleware.
//   - Match case-insensitively or strip arbitrary prefixes.
package permission
