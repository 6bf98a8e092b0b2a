// Package authclient is the client side of a credential login service: it logs in
// against a remote identity endpoint, caches the resulting session, answers
// authorization queries from that cache and decorates outgoing requests with the right
// credential.
//
// A [Client] is built once with [Builder] and passed to whatever needs it; there is no
// package-level client. All methods are safe for concurrent use.
//
// # Two-tier checks
//
// [Client.IsAuthenticated], [Client.CurrentUser], [Client.Session] and [Client.HasRole]
// answer from the local cache and never touch the network. [Client.CheckAuthStatus] asks
// the server and never changes the cache; [Client.Reconcile] does both. Gate UI on the
// first tier and verify with the second before sensitive actions.
//
// # Session slot
//
// The cache is one overwritten slot. Two concurrent logins race and the last write to
// complete wins. Logout clears the slot once its remote call finishes, whatever the
// outcome, so a logout that completes after an in-flight login has written its session
// still leaves the slot empty.
//
// # Architecture boundaries
//
// authclient is the public surface. Storage backends live in session, role matching in
// permission, header decoration in middleware and unverified token inspection in jwt.
// None of those import this package.
//
// # What this package must NOT do
//
//   - Verify token signatures or issue credentials.
//   - Return Go errors from the login, logout and status operations; outcomes are result
//     values with an optional Err cause.
//   - Record passwords or tokens in logs or audit events.
package authclient
