// Package internal contains helpers private to authclient.
//
// # Sub-packages
//
//   - identitytest: an in-process fake of the identity service for tests and demos
//
// # What this package must NOT do
//
//   - Export types that appear in the public authclient API.
//   - Be imported by any package outside the authclient module.
package internal
