package authclient

import "errors"

var (
	// ErrTransport wraps failures to reach the identity service or read its response.
	ErrTransport = errors.New("identity service unreachable")
	// ErrMalformedResponse is returned when a response body is absent or not valid JSON.
	ErrMalformedResponse = errors.New("malformed identity service response")
	// ErrRejected is returned when the identity service answers but reports failure.
	ErrRejected = errors.New("rejected by identity service")
	// ErrNoSession is returned by operations that need a cached session when none exists.
	ErrNoSession = errors.New("no cached session")
	// ErrNoRefreshToken is returned by RefreshToken when the session holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token cached")
	// ErrNoToken is returned by ValidateToken when the session holds no bearer token.
	ErrNoToken = errors.New("no bearer token cached")
)

// Fallback messages used when the identity service gives none.
const (
	msgLoginFailed      = "authentication failed"
	msgUnreachable      = "unable to reach identity service"
	msgLoggedIn         = "login successful"
	msgLoggedOut        = "logged out"
	msgLogoutFailed     = "logout failed remotely; local session cleared"
	msgStatusFailed     = "unable to verify authentication status"
	msgDemoUsersFailed  = "unable to fetch demo users"
	msgRefreshFailed    = "token refresh failed"
	msgRefreshed        = "token refreshed"
	msgValidateFailed   = "token validation failed"
	msgNoSession        = "not logged in"
	msgNoRefreshToken   = "no refresh token available; log in again"
	msgNoToken          = "no bearer token available"
	msgTokenValid       = "token valid"
	msgTokenInvalid     = "token invalid or expired"
	msgReconcileCleared = "server reports session ended; local session cleared"
)
