package services

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidToken is returned when a redeemed token does not exist.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakPassword matches every *WeakPasswordError.
	ErrWeakPassword = errors.New("password rejected by policy")
	// ErrTokenCollision is returned when every insert attempt hit an existing token value.
	ErrTokenCollision = errors.New("could not allocate a unique token")
	// ErrAddressTaken is returned when an address is already registered.
	ErrAddressTaken = errors.New("email address is already registered")
	// ErrInvalidAddress is returned for syntactically invalid addresses.
	ErrInvalidAddress = errors.New("invalid email address")
	// ErrIdentityNotFound is returned by administrative operations naming an unknown identity.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidCredentials is returned by Login when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// WeakPasswordError carries the password policy's rejection messages verbatim.
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + strings.Join(e.Violations, "; ")
}

func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}
