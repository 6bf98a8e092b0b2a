package authclient

import (
	"time"

	"github.com/MrEthical07/authclient/session"
)

// Identity service endpoints, relative to Config.BaseURL.
const (
	PathLogin     = "/api/auth/login"
	PathLogout    = "/api/auth/logout"
	PathStatus    = "/api/auth/status"
	PathDemoUsers = "/api/auth/demo-users"
	PathRefresh   = "/api/auth/refresh"
	PathValidate  = "/api/auth/validate"
)

// LoginRequest is the body posted to PathLogin.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse is the identity service's answer to a login. Token-issuing deployments
// return either "token" or "accessToken"; session-only deployments return neither.
type LoginResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message,omitempty"`
	Username     string              `json:"username,omitempty"`
	Authorities  session.Authorities `json:"authorities,omitempty"`
	Token        string              `json:"token,omitempty"`
	AccessToken  string              `json:"accessToken,omitempty"`
	RefreshToken string              `json:"refreshToken,omitempty"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn,omitempty"`
}

// BearerToken returns the issued access token, if any.
func (r *LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

type statusResponse struct {
	Authenticated bool                `json:"authenticated"`
	Username      string              `json:"username"`
	Authorities   session.Authorities `json:"authorities"`
}

type demoUsersResponse struct {
	DemoUsers   map[string]string `json:"demoUsers"`
	Instruction string            `json:"instruction"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid       bool                `json:"valid"`
	Username    string              `json:"username"`
	Authorities session.Authorities `json:"authorities"`
	// RemainingTime is in milliseconds.
	RemainingTime int64  `json:"remainingTime"`
	ExpiringSoon  bool   `json:"expiringSoon"`
	Message       string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// UserInfo is the server's view of the current principal.
type UserInfo struct {
	Username    string
	Authorities session.Authorities
}

// Result is embedded in every operation result. User-visible behaviour depends only on
// Success and Message; Err carries the cause for callers that want errors.Is.
type Result struct {
	Success bool
	Message string
	Err     error
}

// LoginResult is returned by Client.Login.
type LoginResult struct {
	Result
	User *LoginResponse
}

// LogoutResult is returned by Client.Logout.
type LogoutResult struct {
	Result
}

// StatusResult is returned by Client.CheckAuthStatus.
type StatusResult struct {
	Result
	Authenticated bool
	User          *UserInfo
}

// DemoUsersResult is returned by Client.DemoUsers.
type DemoUsersResult struct {
	Result
	Users       map[string]string
	Instruction string
}

// RefreshResult is returned by Client.RefreshToken.
type RefreshResult struct {
	Result
}

// ValidateResult is returned by Client.ValidateToken.
type ValidateResult struct {
	Result
	Valid         bool
	Username      string
	Authorities   session.Authorities
	RemainingTime time.Duration
	ExpiringSoon  bool
}

// ReconcileResult is returned by Client.Reconcile.
type ReconcileResult struct {
	StatusResult
	// Cleared is true when the local session was dropped because the server no longer
	// considers the client authenticated.
	Cleared bool
}
