package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

const addressColumns = `id, address, normalized_address, owner_id, is_verified, verified_at, created_at, updated_at`

// EmailAddressRepository implements ports.EmailAddressRepository on postgres.
type EmailAddressRepository struct {
	q      sqlx.ExtContext
	logger *logrus.Logger
}

func NewEmailAddressRepository(q sqlx.ExtContext, logger *logrus.Logger) ports.EmailAddressRepository {
	return &EmailAddressRepository{q: q, logger: logger}
}

func (r *EmailAddressRepository) Create(ctx context.Context, a *email.Address) error {
	if a.NormalizedAddress == "" {
		a.NormalizedAddress = email.Normalize(a.Address)
	}
	query := `
		INSERT INTO email_addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (normalized_address) DO NOTHING`

	result, err := r.q.ExecContext(ctx, query,
		a.ID, a.Address, a.NormalizedAddress, a.OwnerID, a.IsVerified, a.VerifiedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateAddress
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email_id": a.ID, "identity_id": a.OwnerID}).WithError(err).Error("db: failed to create email address")
		}
		return fmt.Errorf("failed to create email address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ports.ErrDuplicateAddress
	}
	return nil
}

func (r *EmailAddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*email.Address, bool, error) {
	return r.getOne(ctx, `SELECT `+addressColumns+` FROM email_addresses WHERE id = $1`, id)
}

func (r *EmailAddressRepository) FindByAddress(ctx context.Context, address string, verifiedOnly bool) (*email.Address, bool, error) {
	query := `SELECT ` + addressColumns + ` FROM email_addresses WHERE normalized_address = $1`
	if verifiedOnly {
		query += ` AND is_verified`
	}
	return r.getOne(ctx, query, email.Normalize(address))
}

func (r *EmailAddressRepository) FindByExactAddress(ctx context.Context, address string, verifiedOnly bool) (*email.Address, bool, error) {
	query := `SELECT ` + addressColumns + ` FROM email_addresses WHERE address = $1`
	if verifiedOnly {
		query += ` AND is_verified`
	}
	return r.getOne(ctx, query, address)
}

func (r *EmailAddressRepository) getOne(ctx context.Context, query string, arg any) (*email.Address, bool, error) {
	var a email.Address
	if err := sqlx.GetContext(ctx, r.q, &a, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to get email address")
		}
		return nil, false, fmt.Errorf("failed to get email address: %w", err)
	}
	return &a, true, nil
}

func (r *EmailAddressRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*email.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM email_addresses WHERE owner_id = $1 ORDER BY created_at, id`

	var addrs []*email.Address
	if err := sqlx.SelectContext(ctx, r.q, &addrs, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list email addresses: %w", err)
	}
	return addrs, nil
}

// MarkVerified never overwrites an existing verified_at.
func (r *EmailAddressRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE email_addresses
		SET is_verified = TRUE, verified_at = COALESCE(verified_at, $2), updated_at = $2
		WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark email address verified: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("email address with ID %s not found", id)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE to remove the address's tokens.
func (r *EmailAddressRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM email_addresses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete email address: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
