package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
)

var specialCharRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>\[\]\\/_\-+=~` + "`" + `';]`)

// BcryptHasher implements ports.PasswordHasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// StrengthPolicy implements ports.PasswordPolicy from the configured requirements.
type StrengthPolicy struct {
	cfg configs.PasswordPolicyConfig
}

func NewStrengthPolicy(cfg configs.PasswordPolicyConfig) *StrengthPolicy {
	return &StrengthPolicy{cfg: cfg}
}

// Validate returns every requirement the password misses.
func (p *StrengthPolicy) Validate(password string, i *identity.Identity) []string {
	var violations []string

	if p.cfg.MinLength > 0 && len([]rune(password)) < p.cfg.MinLength {
		violations = append(violations, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.cfg.MinLength))
	}

	var (
		hasUpper bool
		hasLower bool
		hasDigit bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if p.cfg.RequireUpper && !hasUpper {
		violations = append(violations, "This password must contain at least one uppercase letter.")
	}
	if p.cfg.RequireLower && !hasLower {
		violations = append(violations, "This password must contain at least one lowercase letter.")
	}
	if p.cfg.RequireDigit && !hasDigit {
		violations = append(violations, "This password must contain at least one digit.")
	}
	if p.cfg.RequireSpecial && !specialCharRegex.MatchString(password) {
		violations = append(violations, "This password must contain at least one special character.")
	}

	if i != nil && i.DisplayName != "" && len(i.DisplayName) >= 3 &&
		strings.Contains(strings.ToLower(password), strings.ToLower(i.DisplayName)) {
		violations = append(violations, "The password is too similar to the display name.")
	}

	return violations
}
