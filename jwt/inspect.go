package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a token is opaque or not a well-formed JWT.
var ErrNotJWT = errors.New("token is not a parseable jwt")

// Claims is the unverified view of a bearer token.
type Claims struct {
	Subject     string
	Issuer      string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Authorities []string
}

// Expired reports whether the token carries an exp claim at or before now.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// Remaining returns the time left until exp, zero when expired or unknown.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c == nil || c.ExpiresAt.IsZero() || c.Expired(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

type rawClaims struct {
	Authorities json.RawMessage `json:"authorities,omitempty"`
	Roles       json.RawMessage `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Inspect decodes token claims without checking the signature.
func Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}

	var raw rawClaims
	if _, _, err := parser.ParseUnverified(token, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}

	c := &Claims{
		Subject: raw.Subject,
		Issuer:  raw.Issuer,
	}
	if raw.IssuedAt != nil {
		c.IssuedAt = raw.IssuedAt.UTC()
	}
	if raw.ExpiresAt != nil {
		c.ExpiresAt = raw.ExpiresAt.UTC()
	}

	c.Authorities = decodeAuthorities(raw.Authorities)
	if len(c.Authorities) == 0 {
		c.Authorities = decodeAuthorities(raw.Roles)
	}
	return c, nil
}

// decodeAuthorities accepts a list of strings, a list of {"authority": ...} objects, or a
// single comma separated string. Anything else yields nil.
func decodeAuthorities(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				if s != "" {
					out = append(out, s)
				}
				continue
			}
			var obj struct {
				Authority string `json:"authority"`
			}
			if err := json.Unmarshal(item, &obj); err == nil && obj.Authority != "" {
				out = append(out, obj.Authority)
			}
		}
		return out
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		var out []string
		for _, part := range strings.Split(joined, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
