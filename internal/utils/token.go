package utils

import (
	"crypto/rand"
	"fmt"
)

// TokenAlphabet holds the 62 symbols a token may contain.
const TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// 0x3f covers indexes 0..63; the two values past the alphabet are rejected.
const tokenMask = 0x3f

// TokenGenerator produces opaque tokens of a fixed length.
type TokenGenerator func() (string, error)

// NewTokenGenerator returns a generator of length-n tokens.
func NewTokenGenerator(n int) TokenGenerator {
	return func() (string, error) { return GenerateToken(n) }
}

// GenerateToken returns n symbols from TokenAlphabet read from crypto/rand.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid token length %d", n)
	}

	out := make([]byte, n)
	// 62/64 of the bytes are accepted; over-read a little to usually finish in one pass.
	buf := make([]byte, n+n/8+1)

	for pos := 0; pos < n; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			idx := b & tokenMask
			if int(idx) >= len(TokenAlphabet) {
				continue
			}
			out[pos] = TokenAlphabet[idx]
			pos++
			if pos == n {
				break
			}
		}
	}

	return string(out), nil
}
