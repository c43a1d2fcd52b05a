package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/dbx"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
)

const userColumns = `id, name, email, password_hash, role, is_seller, seller_status,
		 rejection_reason, refresh_token, reset_password_token, reset_password_expire,
		 created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u               models.User
		role            string
		sellerStatus    string
		rejectionReason sql.NullString
		refreshToken    sql.NullString
		resetToken      sql.NullString
		resetExpire     sql.NullTime
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsSeller, &sellerStatus,
		&rejectionReason, &refreshToken, &resetToken, &resetExpire,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	u.SellerStatus = models.SellerStatus(sellerStatus)
	u.RejectionReason = rejectionReason.String
	u.RefreshToken = refreshToken.String
	u.ResetPasswordToken = resetToken.String
	if resetExpire.Valid {
		t := resetExpire.Time
		u.ResetPasswordExpire = &t
	}

	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, name, email, password_hash, role, is_seller, seller_status, refresh_token)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), user.IsSeller,
		string(user.SellerStatus), nullString(user.RefreshToken)).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(email) = lower($1)
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) ExistsEmailExcept(ctx context.Context, email, exceptID string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id <> $2)
		 `

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

// exec runs a single-row UPDATE and maps "no row touched" to ErrorNotFound.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	query :=
		`UPDATE users SET refresh_token = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, nullString(token))
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	query :=
		`UPDATE users SET reset_password_token = $2, reset_password_expire = $3, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, token, expires)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, reset_password_token = NULL, reset_password_expire = NULL, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	query :=
		`UPDATE users SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, nullPtr(patch.Name), nullPtr(patch.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`UPDATE users SET reset_password_token = NULL, reset_password_expire = NULL, updated_at = now()
		 WHERE reset_password_token IS NOT NULL AND reset_password_expire <= $1
		 `

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
