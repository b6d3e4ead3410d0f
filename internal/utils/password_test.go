package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/utils"
)

func defaultPolicy() configs.PasswordPolicyConfig {
	return configs.PasswordPolicyConfig{MinLength: 12, RequireUpper: true, RequireLower: true, RequireDigit: true}
}

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := utils.NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Correct-Horse-42")
	require.NoError(t, err)
	require.NotEqual(t, "Correct-Horse-42", hash)
	require.True(t, h.Compare(hash, "Correct-Horse-42"))
	require.False(t, h.Compare(hash, "wrong"))
	require.False(t, h.Compare("not-a-hash", "Correct-Horse-42"))
}

func TestBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	h := utils.NewBcryptHasher(100)
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}

func TestStrengthPolicy_Accepts(t *testing.T) {
	p := utils.NewStrengthPolicy(defaultPolicy())
	require.Empty(t, p.Validate("LongEnoughPassw0rd", nil))
}

func TestStrengthPolicy_ReportsEveryViolation(t *testing.T) {
	p := utils.NewStrengthPolicy(defaultPolicy())
	v := p.Validate("short", nil)
	require.Len(t, v, 3)
	require.Contains(t, v[0], "too short")
}

func TestStrengthPolicy_Special(t *testing.T) {
	cfg := defaultPolicy()
	cfg.RequireSpecial = true
	p := utils.NewStrengthPolicy(cfg)
	require.Len(t, p.Validate("LongEnoughPassw0rd", nil), 1)
	require.Empty(t, p.Validate("LongEnoughPassw0rd!", nil))
}

func TestStrengthPolicy_SimilarToDisplayName(t *testing.T) {
	p := utils.NewStrengthPolicy(defaultPolicy())
	v := p.Validate("JekyllAndHyde2024", &identity.Identity{DisplayName: "jekyll"})
	require.Len(t, v, 1)
	require.Contains(t, v[0], "display name")
}
