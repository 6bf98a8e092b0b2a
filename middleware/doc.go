// Package middleware decorates outgoing requests with the credential form the cached
// session allows.
//
// # Modes
//
//   - Bearer: the session carries a token and "Authorization: Bearer <token>" is attached.
//   - Session (weak): the session has no token. No credential header is attached and a
//     warning is logged. Used against development deployments whose identity service does
//     not issue tokens.
//   - Anonymous: no session and no credential header; the server is expected to reject.
//
// Caller-supplied headers always win over decorator-added ones on key collision.
//
// [Decorator] builds header sets for callers that assemble requests themselves;
// [Transport] applies the same rules as an [http.RoundTripper].
//
// # What this package must NOT do
//
//   - Mutate the cached session or the caller's headers.
//   - Invent a credential when the session has no token.
//   - Call the identity service.
package middleware
