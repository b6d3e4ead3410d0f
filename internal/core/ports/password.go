package ports

import "github.com/avatarctic/email-auth/internal/core/domain/identity"

// PasswordHasher is the platform password hashing primitive.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// PasswordPolicy returns the reasons a password is rejected, or nothing when it is acceptable.
type PasswordPolicy interface {
	Validate(password string, i *identity.Identity) []string
}
