package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Authority is a single granted role or permission name as issued by the identity service.
//
// It decodes from either a bare JSON string ("ROLE_ADMIN") or an object of the form
// {"authority":"ROLE_ADMIN"}, and always encodes as a bare string.
type Authority string

// UnmarshalJSON accepts both authority wire shapes.
func (a *Authority) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Authority string `json:"authority"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode authority object: %w", err)
		}
		*a = Authority(obj.Authority)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode authority: %w", err)
	}
	*a = Authority(s)
	return nil
}

// Authorities is the ordered authority list of a session.
type Authorities []Authority

// Strings returns the authorities as plain strings, preserving order.
func (a Authorities) Strings() []string {
	if len(a) == 0 {
		return nil
	}
	out := make([]string, len(a))
	for i, v := range a {
		out[i] = string(v)
	}
	return out
}

// NewAuthorities converts plain strings into an Authorities list.
func NewAuthorities(names ...string) Authorities {
	if len(names) == 0 {
		return nil
	}
	out := make(Authorities, len(names))
	for i, n := range names {
		out[i] = Authority(n)
	}
	return out
}

// Session is the locally cached record of a successful login.
//
// Username and LoginTime are fixed once the session is created. A new login replaces the
// whole value; only a token refresh rewrites the token fields in place.
type Session struct {
	Username       string      `json:"username"`
	Authorities    Authorities `json:"authorities"`
	LoginTime      time.Time   `json:"loginTime"`
	Token          string      `json:"token,omitempty"`
	RefreshToken   string      `json:"refreshToken,omitempty"`
	TokenExpiresAt time.Time   `json:"tokenExpiresAt,omitzero"`
}

// HasToken reports whether the identity service issued a bearer credential for this session.
func (s *Session) HasToken() bool {
	return s != nil && s.Token != ""
}

// TokenExpired reports whether a known token expiry lies at or before now. Sessions without
// a recorded expiry never report expired.
func (s *Session) TokenExpired(now time.Time) bool {
	if s == nil || s.TokenExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.TokenExpiresAt)
}

// Clone returns a deep copy so callers cannot mutate a value shared with the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Authorities != nil {
		c.Authorities = append(Authorities(nil), s.Authorities...)
	}
	return &c
}
