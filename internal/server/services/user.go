// Package services contains server-side business logic. This file implements
// UserService, which owns the credential and session lifecycle: signup,
// login, refresh-token rotation, profile reads and updates, password change
// and the single-use password-reset flow.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/dbx"
	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/server/auth"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
	"github.com/dmitrijs2005/quicklyway/internal/server/notify"
	"github.com/dmitrijs2005/quicklyway/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ForgotPasswordMessage is returned by ForgotPassword whether or not the
// e-mail belongs to an account.
const ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// TokenPair bundles an access token and a refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	TokenPair
	User *models.PublicUser
}

// SignupInput carries the fields required to create an account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// ForgotPasswordResult is the outcome of ForgotPassword. ResetURL is only
// filled in development.
type ForgotPasswordResult struct {
	Message  string
	ResetURL string
}

// ResetMailer hands a reset e-mail to the delivery pipeline. It never
// reports failure back to the caller.
type ResetMailer interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

// UserService provides authentication-related operations.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	issuer      *auth.Issuer
	mailer      ResetMailer
	logger      logging.Logger
	frontendURL string
	exposeReset bool
	now         func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher, issuer *auth.Issuer,
	mailer ResetMailer, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		mailer:      mailer,
		logger:      logger,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		exposeReset: cfg.IsDevelopment(),
		now:         time.Now,
	}
}

// Signup creates a client account and returns its first token pair. The
// refresh token is stored with the row in the same INSERT.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	switch {
	case name == "":
		return nil, common.MissingField("name")
	case email == "":
		return nil, common.MissingField("email")
	case in.Password == "":
		return nil, common.MissingField("password")
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleClient,
		SellerStatus: models.SellerStatusNone,
	}

	pair, err := s.tokenPair(user)
	if err != nil {
		return nil, err
	}
	user.RefreshToken = pair.RefreshToken

	// the unique index still guards the race between the lookup and here
	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)

	return &AuthResult{TokenPair: *pair, User: user.Public()}, nil
}

// Login verifies credentials and rotates the stored refresh token. Unknown
// e-mail and wrong password both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Decoy(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.tokenPair(user)
	if err != nil {
		return nil, err
	}

	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &AuthResult{TokenPair: *pair, User: user.Public()}, nil
}

// Refresh redeems the stored refresh token for a new pair. Only the value on
// file is accepted; the comparison and the rotation happen under a row lock.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrMissingToken
	}

	claims, err := s.issuer.Verify(auth.KindRefresh, refreshToken)
	if err != nil {
		return nil, common.ErrInvalidOrExpiredToken
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)

		user, err := repoTx.GetByIDForUpdate(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidOrExpiredToken
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		if !sameToken(user.RefreshToken, refreshToken) {
			return common.ErrInvalidOrExpiredToken
		}

		pair, err = s.tokenPair(user)
		if err != nil {
			return err
		}

		if err := repoTx.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
			return fmt.Errorf("error storing refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// GetProfile returns the public view of the user including moderation notes.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user.Profile(), nil
}

// ForgotPassword issues a reset token for an existing account and hands the
// link to the mailer. The result is the same for unknown e-mails.
func (s *UserService) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, common.MissingField("email")
	}

	result := &ForgotPasswordResult{Message: ForgotPasswordMessage}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	token, expires, err := s.issuer.IssueReset(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing reset token: %w", err)
	}

	if err := repo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return nil, fmt.Errorf("error storing reset token: %w", err)
	}

	resetURL := s.resetURL(token)

	s.mailer.Dispatch(ctx, notify.Message{To: user.Email, Name: user.Name, ResetURL: resetURL})

	if s.exposeReset {
		s.logger.Debug(ctx, "password reset link", "user_id", user.ID, "reset_url", resetURL)
		result.ResetURL = resetURL
	}

	return result, nil
}

// ResetPassword redeems a reset token once. The token must verify, match the
// stored value and the stored expiry must still be in the future; any failure
// is reported as common.ErrInvalidOrExpiredToken.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	switch {
	case token == "":
		return common.MissingField("token")
	case newPassword == "":
		return common.MissingField("password")
	}
	if err := checkPasswordLength("password", newPassword); err != nil {
		return err
	}

	claims, err := s.issuer.Verify(auth.KindReset, token)
	if err != nil {
		return common.ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)

		user, err := repoTx.GetByIDForUpdate(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidOrExpiredToken
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		if !sameToken(user.ResetPasswordToken, token) ||
			user.ResetPasswordExpire == nil || !user.ResetPasswordExpire.After(s.now()) {
			return common.ErrInvalidOrExpiredToken
		}

		if err := repoTx.ResetPassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error resetting password: %w", err)
		}

		s.logger.Info(ctx, "password reset", "user_id", user.ID)
		return nil
	})
}

// UpdateProfile applies the present fields of patch. An e-mail owned by a
// different user fails with common.ErrDuplicateEmail and changes nothing.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.PublicUser, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, &common.ValidationError{Field: "name", Err: common.ErrInvalidField}
		}
		patch.Name = &name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, &common.ValidationError{Field: "email", Err: common.ErrInvalidField}
		}
		patch.Email = &email
	}

	if patch.Empty() {
		return s.publicView(ctx, userID)
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)

		if patch.Email != nil {
			taken, err := repoTx.ExistsEmailExcept(ctx, *patch.Email, userID)
			if err != nil {
				return fmt.Errorf("error checking email: %w", err)
			}
			if taken {
				return common.ErrDuplicateEmail
			}
		}

		var err error
		user, err = repoTx.UpdateProfile(ctx, userID, patch)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			if errors.Is(err, common.ErrDuplicateEmail) {
				return err
			}
			return fmt.Errorf("error updating profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user.Public(), nil
}

func (s *UserService) publicView(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user.Public(), nil
}

// ChangePassword replaces the password after checking the current one.
// Existing tokens stay valid.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	switch {
	case currentPassword == "":
		return common.MissingField("currentPassword")
	case newPassword == "":
		return common.MissingField("newPassword")
	}
	if err := checkPasswordLength("newPassword", newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error updating password: %w", err)
	}

	return nil
}

// --- helpers below ---

func (s *UserService) tokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.issuer.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) resetURL(token string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sameToken(stored, presented string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func checkPasswordLength(field, password string) error {
	if len(password) > auth.MaxPasswordLength {
		return &common.ValidationError{Field: field, Err: common.ErrInvalidField}
	}
	return nil
}
