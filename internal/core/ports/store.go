package ports

import (
	"context"
	"errors"
	"time"

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateToken is returned when an inserted token value already exists.
	ErrDuplicateToken = errors.New("token already exists")
	// ErrDuplicateAddress is returned when the normalized address is already registered.
	ErrDuplicateAddress = errors.New("email address already exists")
)

// IdentityRepository persists identities. Absence is reported through found=false.
type IdentityRepository interface {
	Create(ctx context.Context, i *identity.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (i *identity.Identity, found bool, err error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// EmailAddressRepository persists email addresses.
type EmailAddressRepository interface {
	Create(ctx context.Context, a *email.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*email.Address, bool, error)
	// FindByAddress performs a case-insensitive lookup on the normalized address.
	FindByAddress(ctx context.Context, address string, verifiedOnly bool) (*email.Address, bool, error)
	// FindByExactAddress matches the address exactly as it was entered.
	FindByExactAddress(ctx context.Context, address string, verifiedOnly bool) (*email.Address, bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*email.Address, error)
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	// Delete removes the address and, by cascade, all of its tokens.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// TokenRepository persists one kind of single-use token.
type TokenRepository interface {
	// Insert returns ErrDuplicateToken if the value is already taken.
	Insert(ctx context.Context, t *email.Token) error
	Get(ctx context.Context, token string) (*email.Token, bool, error)
	// Consume deletes the token and returns it. Only one concurrent caller observes found=true.
	Consume(ctx context.Context, token string) (*email.Token, bool, error)
	DeleteByEmail(ctx context.Context, emailID uuid.UUID) (int, error)
	MarkSent(ctx context.Context, token string, at time.Time) error
}

// Stores groups the repositories that take part in a unit of work.
type Stores interface {
	Identities() IdentityRepository
	EmailAddresses() EmailAddressRepository
	VerificationTokens() TokenRepository
	PasswordResetTokens() TokenRepository
}

// UnitOfWork exposes the stores directly and within a single transaction.
// If fn returns an error, every change made through tx is discarded.
type UnitOfWork interface {
	Stores
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}
