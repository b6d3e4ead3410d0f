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

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

const (
	verificationTokensTable  = "email_verification_tokens"
	passwordResetTokensTable = "password_reset_tokens"

	tokenColumns = `token, email_id, sent_at, created_at, updated_at`
)

// TokenDBRepository implements ports.TokenRepository for one token table.
type TokenDBRepository struct {
	q      sqlx.ExtContext
	table  string
	logger *logrus.Logger
}

func NewVerificationTokenRepository(q sqlx.ExtContext, logger *logrus.Logger) ports.TokenRepository {
	return &TokenDBRepository{q: q, table: verificationTokensTable, logger: logger}
}

func NewPasswordResetTokenRepository(q sqlx.ExtContext, logger *logrus.Logger) ports.TokenRepository {
	return &TokenDBRepository{q: q, table: passwordResetTokensTable, logger: logger}
}

// Insert uses ON CONFLICT so a collision does not abort the surrounding transaction.
func (r *TokenDBRepository) Insert(ctx context.Context, t *email.Token) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO NOTHING`, r.table)

	result, err := r.q.ExecContext(ctx, query, t.Token, t.EmailID, t.SentAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"table": r.table, "email_id": t.EmailID}).WithError(err).Error("db: failed to insert token")
		}
		return fmt.Errorf("failed to insert token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ports.ErrDuplicateToken
	}
	return nil
}

func (r *TokenDBRepository) Get(ctx context.Context, token string) (*email.Token, bool, error) {
	query := fmt.Sprintf(`SELECT `+tokenColumns+` FROM %s WHERE token = $1`, r.table)
	return r.getOne(ctx, query, token)
}

// Consume is the redemption serialization point: of two concurrent callers
// only the first DELETE returns the row.
func (r *TokenDBRepository) Consume(ctx context.Context, token string) (*email.Token, bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE token = $1 RETURNING `+tokenColumns, r.table)
	return r.getOne(ctx, query, token)
}

func (r *TokenDBRepository) getOne(ctx context.Context, query, token string) (*email.Token, bool, error) {
	var t email.Token
	if err := sqlx.GetContext(ctx, r.q, &t, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"table": r.table}).WithError(err).Error("db: failed to read token")
		}
		return nil, false, fmt.Errorf("failed to read token: %w", err)
	}
	return &t, true, nil
}

func (r *TokenDBRepository) DeleteByEmail(ctx context.Context, emailID uuid.UUID) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE email_id = $1`, r.table)

	result, err := r.q.ExecContext(ctx, query, emailID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *TokenDBRepository) MarkSent(ctx context.Context, token string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET sent_at = $2, updated_at = $2 WHERE token = $1`, r.table)

	if _, err := r.q.ExecContext(ctx, query, token, at); err != nil {
		return fmt.Errorf("failed to mark token sent: %w", err)
	}
	return nil
}
