package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

// IdentityRepository implements ports.IdentityRepository on postgres.
type IdentityRepository struct {
	q      sqlx.ExtContext
	logger *logrus.Logger
	// onWrite is told about every identity this repository changes.
	onWrite func(id uuid.UUID)
}

// NewIdentityRepository works against either the pool or an open transaction.
func NewIdentityRepository(q sqlx.ExtContext, logger *logrus.Logger) ports.IdentityRepository {
	return &IdentityRepository{q: q, logger: logger}
}

func (r *IdentityRepository) Create(ctx context.Context, i *identity.Identity) error {
	query := `
		INSERT INTO identities (id, display_name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.q.ExecContext(ctx, query, i.ID, i.DisplayName, i.PasswordHash, i.IsActive, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity_id": i.ID}).WithError(err).Error("db: failed to create identity")
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"identity_id": i.ID}).Info("db: identity created")
	}
	return nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, bool, error) {
	var i identity.Identity
	query := `
		SELECT id, display_name, password_hash, is_active, last_login_at, created_at, updated_at
		FROM identities
		WHERE id = $1`

	if err := sqlx.GetContext(ctx, r.q, &i, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"identity_id": id}).Debug("db: identity not found by ID")
			}
			return nil, false, nil
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity_id": id}).WithError(err).Error("db: failed to get identity by ID")
		}
		return nil, false, fmt.Errorf("failed to get identity by ID: %w", err)
	}
	return &i, true, nil
}

func (r *IdentityRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	query := `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`
	return r.update(ctx, id, "password", query, id, passwordHash, at)
}

func (r *IdentityRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE identities SET last_login_at = $2 WHERE id = $1`
	return r.update(ctx, id, "last login", query, id, at)
}

func (r *IdentityRepository) update(ctx context.Context, id uuid.UUID, what, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity_id": id}).WithError(err).Errorf("db: failed to update identity %s", what)
		}
		return fmt.Errorf("failed to update identity %s: %w", what, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("identity with ID %s not found", id)
	}

	if r.onWrite != nil {
		r.onWrite(id)
	}
	return nil
}
