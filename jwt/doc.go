// Package jwt reads the claims of bearer tokens handed out by the identity service without
// verifying them.
//
// The client is a consumer of tokens, not a verifier: it holds no signing keys, so [Inspect]
// is informational only (expiry hints, subject, advertised authorities). Every
// authorization decision stays with the server.
//
// # What this package must NOT do
//
//   - Treat an inspected token as trusted.
//   - Reject requests or clear sessions on its own.
package jwt
