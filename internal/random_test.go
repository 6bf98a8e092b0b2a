package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueTokenRoundTrip(t *testing.T) {
	a, err := NewOpaqueToken()
	require.NoError(t, err)
	b, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ha, err := HashOpaqueToken(a)
	require.NoError(t, err)
	again, err := HashOpaqueToken(a)
	require.NoError(t, err)
	assert.Equal(t, ha, again)
}

func FuzzHashOpaqueToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	if tok, err := NewOpaqueToken(); err == nil {
		f.Add(tok)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic; invalid input only errors.
		_, _ = HashOpaqueToken(input)
	})
}
