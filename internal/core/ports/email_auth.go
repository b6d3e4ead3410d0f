package ports

import (
	"context"

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/google/uuid"
)

// VerificationService issues and redeems email ownership tokens.
type VerificationService interface {
	// RequestVerification never reports whether the address exists; token is nil unless one was issued.
	RequestVerification(ctx context.Context, address string) (*email.VerificationToken, error)
	RedeemVerification(ctx context.Context, token string) (*email.Address, error)
}

// PasswordResetService issues and redeems password reset tokens.
type PasswordResetService interface {
	RequestReset(ctx context.Context, address string) (*email.PasswordResetToken, error)
	RedeemReset(ctx context.Context, token, newPassword string) error
}

// AuthService authenticates identities by verified email and password.
type AuthService interface {
	Authenticate(ctx context.Context, address, password string) (*identity.Identity, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	Login(ctx context.Context, req *identity.LoginRequest) (*identity.AccessToken, error)
	ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, error)
}

// AddressService manages the addresses owned by an identity.
type AddressService interface {
	CreateIdentity(ctx context.Context, displayName, password string) (*identity.Identity, error)
	AddAddress(ctx context.Context, ownerID uuid.UUID, address string) (*email.Address, error)
	ListAddresses(ctx context.Context, ownerID uuid.UUID) ([]*email.Address, error)
	DeleteAddress(ctx context.Context, id uuid.UUID) (bool, error)
}
