package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-only-secret"))
	require.NoError(t, err)
	return tok
}

func TestInspectReadsRegisteredClaims(t *testing.T) {
	exp := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	iat := exp.Add(-15 * time.Minute)
	tok := mint(t, jwt.MapClaims{
		"sub":         "admin",
		"iss":         "arka",
		"iat":         iat.Unix(),
		"exp":         exp.Unix(),
		"authorities": []string{"ROLE_ADMIN", "ROLE_USER"},
	})

	c, err := Inspect(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Subject)
	assert.Equal(t, "arka", c.Issuer)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.True(t, c.IssuedAt.Equal(iat))
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, c.Authorities)
}

func TestInspectIgnoresSignature(t *testing.T) {
	tok := mint(t, jwt.MapClaims{"sub": "admin"})
	tampered := tok[:len(tok)-4] + "AAAA"

	c, err := Inspect(tampered)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Subject)
}

func TestInspectAuthorityShapes(t *testing.T) {
	cases := map[string]struct {
		claims jwt.MapClaims
		want   []string
	}{
		"objects": {
			claims: jwt.MapClaims{"authorities": []map[string]string{{"authority": "ROLE_ADMIN"}}},
			want:   []string{"ROLE_ADMIN"},
		},
		"comma string": {
			claims: jwt.MapClaims{"authorities": "ROLE_ADMIN, ROLE_USER"},
			want:   []string{"ROLE_ADMIN", "ROLE_USER"},
		},
		"roles fallback": {
			claims: jwt.MapClaims{"roles": []string{"USER"}},
			want:   []string{"USER"},
		},
		"absent": {
			claims: jwt.MapClaims{"sub": "x"},
			want:   nil,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Inspect(mint(t, tc.claims))
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Authorities)
		})
	}
}

func TestInspectRejectsOpaqueTokens(t *testing.T) {
	for _, tok := range []string{"", "abc", "opaque-session-token", "a.b", "a.b.c.d", "!!.??.##"} {
		_, err := Inspect(tok)
		assert.True(t, errors.Is(err, ErrNotJWT), "token %q", tok)
	}
}

func TestClaimsExpiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	var none *Claims
	assert.False(t, none.Expired(now))
	assert.Zero(t, none.Remaining(now))

	c := &Claims{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, c.Expired(now))
	assert.Equal(t, time.Minute, c.Remaining(now))

	c.ExpiresAt = now
	assert.True(t, c.Expired(now))
	assert.Zero(t, c.Remaining(now))

	assert.False(t, (&Claims{}).Expired(now))
}
