// Package auth issues and verifies the signed tokens used by the API and
// hashes account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"
)

// Kind names the purpose of a token. It is carried in the "typ" claim so a
// token minted for one purpose is rejected everywhere else, even when two
// kinds share a signing key.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindReset   Kind = "reset"
)

// Claims is the claim set of every token. Email and Role are present on
// access tokens only.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	Kind   Kind        `json:"typ"`
	jwt.RegisteredClaims
}

type keyTTL struct {
	secret []byte
	ttl    time.Duration
}

// Issuer signs and verifies HS256 tokens. Each kind has its own secret and
// default lifetime.
type Issuer struct {
	kinds map[Kind]keyTTL
	now   func() time.Time
}

// NewIssuer builds an Issuer from the configured secrets and lifetimes.
func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{
		kinds: map[Kind]keyTTL{
			KindAccess:  {secret: []byte(cfg.SecretKey), ttl: cfg.AccessTokenValidityDuration},
			KindRefresh: {secret: []byte(cfg.RefreshSecretKey), ttl: cfg.RefreshTokenValidityDuration},
			KindReset:   {secret: []byte(cfg.ResetSigningKey()), ttl: cfg.ResetTokenValidityDuration},
		},
		now: time.Now,
	}
}

// Issue signs claims as a token of the given kind valid for ttl.
// Kind, jti, iat and exp are always set by the issuer.
func (i *Issuer) Issue(kind Kind, claims Claims, ttl time.Duration) (string, error) {
	k, ok := i.kinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := i.now()
	claims.Kind = kind
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        ksuid.New().String(),
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(k.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// IssueAccess returns an access token carrying the user's id, email and role.
func (i *Issuer) IssueAccess(user *models.User) (string, error) {
	return i.Issue(KindAccess, Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, i.kinds[KindAccess].ttl)
}

// IssueRefresh returns a refresh token for userID.
func (i *Issuer) IssueRefresh(userID string) (string, error) {
	return i.Issue(KindRefresh, Claims{UserID: userID}, i.kinds[KindRefresh].ttl)
}

// IssueReset returns a password-reset token for userID and the instant it
// stops being valid.
func (i *Issuer) IssueReset(userID string) (string, time.Time, error) {
	ttl := i.kinds[KindReset].ttl
	expires := i.now().Add(ttl)

	token, err := i.Issue(KindReset, Claims{UserID: userID}, ttl)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expires, nil
}

// Verify checks signature, expiry and kind of tokenString.
// It returns common.ErrTokenExpired for expired tokens and
// common.ErrInvalidToken for anything else that is wrong with the token.
func (i *Issuer) Verify(kind Kind, tokenString string) (*Claims, error) {
	k, ok := i.kinds[kind]
	if !ok {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
