package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "access-secret",
		RefreshSecretKey:             "refresh-secret",
		AccessTokenValidityDuration:  7 * 24 * time.Hour,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
		ResetTokenValidityDuration:   time.Hour,
	}
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())
	user := &models.User{ID: "user-123", Email: "a@x.com", Role: models.RoleClient}

	tok, err := iss.IssueAccess(user)
	require.NoError(t, err)

	claims, err := iss.Verify(KindAccess, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, models.RoleClient, claims.Role)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestIssueRefresh_UniquePerCall(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())

	a, err := iss.IssueRefresh("u1")
	require.NoError(t, err)
	b, err := iss.IssueRefresh("u1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two refresh tokens minted back to back must differ")

	claims, err := iss.Verify(KindRefresh, a)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Empty(t, claims.Email)
}

func TestIssueReset_ExpiryAndKind(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())
	fixed := time.Now().Truncate(time.Second)
	iss.now = func() time.Time { return fixed }

	tok, expires, err := iss.IssueReset("u1")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), expires)

	claims, err := iss.Verify(KindReset, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())

	tok, err := iss.Issue(KindRefresh, Claims{UserID: "u1"}, -1*time.Second)
	require.NoError(t, err)

	_, err = iss.Verify(KindRefresh, tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())
	other := testConfig()
	other.RefreshSecretKey = "another-secret"

	tok, err := NewIssuer(other).IssueRefresh("u2")
	require.NoError(t, err)

	_, err = iss.Verify(KindRefresh, tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_WrongKind(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())
	user := &models.User{ID: "u1", Email: "a@x.com", Role: models.RoleClient}

	access, err := iss.IssueAccess(user)
	require.NoError(t, err)

	// access and reset share a key by default; the kind claim still separates them
	_, err = iss.Verify(KindReset, access)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	refresh, err := iss.IssueRefresh("u1")
	require.NoError(t, err)
	_, err = iss.Verify(KindAccess, refresh)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_DedicatedResetSecret(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ResetSecretKey = "reset-secret"
	iss := NewIssuer(cfg)

	tok, _, err := iss.IssueReset("u1")
	require.NoError(t, err)

	_, err = NewIssuer(testConfig()).Verify(KindReset, tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = iss.Verify(KindReset, tok)
	assert.NoError(t, err)
}

func TestVerify_RejectsUnexpectedAlgorithms(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())
	claims := Claims{
		UserID: "u1",
		Kind:   KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Verify(KindAccess, none)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = iss.Verify(KindAccess, hs512)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testConfig())
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1", Kind: KindAccess}).
		SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = iss.Verify(KindAccess, tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(testConfig()).Verify(KindAccess, "not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssue_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(testConfig()).Issue(Kind("session"), Claims{UserID: "u1"}, time.Minute)
	assert.Error(t, err)
}
