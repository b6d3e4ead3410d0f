package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/infrastructure/db"
)

// UnitOfWork implements ports.UnitOfWork on postgres.
type UnitOfWork struct {
	db         *db.Database
	identities ports.IdentityRepository
	cached     *CachingIdentityRepository
	logger     *logrus.Logger
}

// NewUnitOfWork wraps identity reads in a cache when cache is non-nil.
func NewUnitOfWork(database *db.Database, cache ports.Cache, identityTTL time.Duration, logger *logrus.Logger) *UnitOfWork {
	u := &UnitOfWork{
		db:         database,
		identities: NewIdentityRepository(database.DB, logger),
		logger:     logger,
	}
	if cache != nil {
		u.cached = NewCachingIdentityRepository(u.identities, cache, identityTTL, logger)
		u.identities = u.cached
	}
	return u
}

func (u *UnitOfWork) Identities() ports.IdentityRepository { return u.identities }

func (u *UnitOfWork) EmailAddresses() ports.EmailAddressRepository {
	return NewEmailAddressRepository(u.db.DB, u.logger)
}

func (u *UnitOfWork) VerificationTokens() ports.TokenRepository {
	return NewVerificationTokenRepository(u.db.DB, u.logger)
}

func (u *UnitOfWork) PasswordResetTokens() ports.TokenRepository {
	return NewPasswordResetTokenRepository(u.db.DB, u.logger)
}

// WithinTx runs fn in one database transaction. Cached identities changed
// inside it are invalidated once the transaction has committed.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Stores) error) error {
	stores := &txStores{logger: u.logger, touched: map[uuid.UUID]struct{}{}}

	err := u.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stores.tx = tx
		return fn(ctx, stores)
	})
	if err != nil {
		return err
	}

	if u.cached != nil {
		for id := range stores.touched {
			u.cached.Invalidate(ctx, id)
		}
	}
	return nil
}

type txStores struct {
	tx     *sqlx.Tx
	logger *logrus.Logger

	mu      sync.Mutex
	touched map[uuid.UUID]struct{}
}

func (s *txStores) Identities() ports.IdentityRepository {
	return &IdentityRepository{q: s.tx, logger: s.logger, onWrite: s.touch}
}

func (s *txStores) EmailAddresses() ports.EmailAddressRepository {
	return NewEmailAddressRepository(s.tx, s.logger)
}

func (s *txStores) VerificationTokens() ports.TokenRepository {
	return NewVerificationTokenRepository(s.tx, s.logger)
}

func (s *txStores) PasswordResetTokens() ports.TokenRepository {
	return NewPasswordResetTokenRepository(s.tx, s.logger)
}

func (s *txStores) touch(id uuid.UUID) {
	s.mu.Lock()
	s.touched[id] = struct{}{}
	s.mu.Unlock()
}
