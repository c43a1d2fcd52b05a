package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/server/models"
)

// Repository is the credential store. Every mutating method is a single
// UPDATE of the columns it names, so concurrent writers never lose each
// other's unrelated fields. Lookups return common.ErrorNotFound when the
// user does not exist; Create and UpdateProfile return
// common.ErrDuplicateEmail on a unique-email conflict.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	ExistsEmailExcept(ctx context.Context, email, exceptID string) (bool, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	// ResetPassword stores the new hash and clears both reset fields.
	ResetPassword(ctx context.Context, id, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error)
	// ClearExpiredResetTokens drops reset pairs whose expiry is not after now.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
