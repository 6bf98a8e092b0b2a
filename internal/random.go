package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const opaqueTokenSize = 32

// NewOpaqueToken returns 32 random bytes, base64url encoded without padding.
func NewOpaqueToken() (string, error) {
	var raw [opaqueTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashOpaqueToken decodes token and returns the SHA-256 of its raw bytes.
func HashOpaqueToken(token string) ([32]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return [32]byte{}, err
	}
	if len(raw) != opaqueTokenSize {
		return [32]byte{}, errors.New("invalid opaque token size")
	}
	return sha256.Sum256(raw), nil
}
