package email

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenLength is the length of every verification and password reset token.
// Changing it requires a migration of the token columns.
const TokenLength = 64

// Address is an email address belonging to an identity.
type Address struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Address           string     `json:"address" db:"address"`
	NormalizedAddress string     `json:"-" db:"normalized_address"`
	OwnerID           uuid.UUID  `json:"owner_id" db:"owner_id"`
	IsVerified        bool       `json:"is_verified" db:"is_verified"`
	VerifiedAt        *time.Time `json:"verified_at" db:"verified_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// NewAddress builds an unverified address for owner.
func NewAddress(address string, ownerID uuid.UUID) *Address {
	now := time.Now().UTC()
	address = strings.TrimSpace(address)
	return &Address{
		ID:                uuid.New(),
		Address:           address,
		NormalizedAddress: Normalize(address),
		OwnerID:           ownerID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// MarkVerified flips the address to verified. verified_at is only set once.
func (a *Address) MarkVerified(now time.Time) {
	if a.IsVerified {
		return
	}
	a.IsVerified = true
	a.VerifiedAt = &now
	a.UpdatedAt = now
}

// Normalize returns the key used for case-insensitive uniqueness and lookups.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Token is the shared shape of verification and password reset tokens.
type Token struct {
	Token     string     `json:"-" db:"token"`
	EmailID   uuid.UUID  `json:"email_id" db:"email_id"`
	SentAt    *time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// VerificationToken proves control of an unverified address when redeemed.
type VerificationToken struct {
	Token
}

// PasswordResetToken authorizes a password change for the owner of a verified address.
type PasswordResetToken struct {
	Token
}

// NewToken builds an unsent token for the address.
func NewToken(value string, emailID uuid.UUID) Token {
	now := time.Now().UTC()
	return Token{
		Token:     value,
		EmailID:   emailID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Prefix returns a short, log-safe prefix of the token value.
func (t Token) Prefix() string {
	if len(t.Token) <= 8 {
		return t.Token
	}
	return t.Token[:8]
}

// RequestVerificationRequest is the body of a verification request.
type RequestVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RedeemVerificationRequest is the body of a verification redemption.
type RedeemVerificationRequest struct {
	Token string `json:"token" validate:"required,max=64"`
}

// RequestResetRequest is the body of a password reset request.
type RequestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RedeemResetRequest is the body of a password reset redemption.
type RedeemResetRequest struct {
	Token    string `json:"token" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}
