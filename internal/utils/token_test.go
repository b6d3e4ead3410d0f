package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/internal/utils"
)

func TestGenerateToken_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		tok, err := utils.GenerateToken(64)
		require.NoError(t, err)
		require.Len(t, tok, 64)
		for _, r := range tok {
			require.True(t, strings.ContainsRune(utils.TokenAlphabet, r), "unexpected symbol %q", r)
		}
	}
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := utils.GenerateToken(64)
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "token repeated after %d draws", i)
		seen[tok] = struct{}{}
	}
}

func TestGenerateToken_UsesWholeAlphabet(t *testing.T) {
	counts := map[rune]int{}
	for i := 0; i < 500; i++ {
		tok, err := utils.GenerateToken(64)
		require.NoError(t, err)
		for _, r := range tok {
			counts[r]++
		}
	}
	require.Len(t, counts, len(utils.TokenAlphabet))
}

func TestGenerateToken_InvalidLength(t *testing.T) {
	_, err := utils.GenerateToken(0)
	require.Error(t, err)
}

func TestNewTokenGenerator(t *testing.T) {
	gen := utils.NewTokenGenerator(16)
	tok, err := gen()
	require.NoError(t, err)
	require.Len(t, tok, 16)
}
