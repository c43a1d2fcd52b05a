package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/server/auth"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
	"github.com/dmitrijs2005/quicklyway/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService records inputs and returns canned results.
type fakeService struct {
	err error

	authResult *services.AuthResult
	pair       *services.TokenPair
	user       *models.PublicUser
	forgot     *services.ForgotPasswordResult

	gotUserID string
	gotPatch  models.ProfilePatch
	gotArgs   []string
	panicOn   string
}

func (f *fakeService) Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error) {
	f.gotArgs = []string{in.Name, in.Email, in.Password}
	return f.authResult, f.err
}

func (f *fakeService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	f.gotArgs = []string{email, password}
	return f.authResult, f.err
}

func (f *fakeService) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.gotArgs = []string{refreshToken}
	return f.pair, f.err
}

func (f *fakeService) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	if f.panicOn == "GetProfile" {
		panic("kaboom")
	}
	f.gotUserID = userID
	return f.user, f.err
}

func (f *fakeService) ForgotPassword(ctx context.Context, email string) (*services.ForgotPasswordResult, error) {
	f.gotArgs = []string{email}
	return f.forgot, f.err
}

func (f *fakeService) ResetPassword(ctx context.Context, token, newPassword string) error {
	f.gotArgs = []string{token, newPassword}
	return f.err
}

func (f *fakeService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.PublicUser, error) {
	f.gotUserID = userID
	f.gotPatch = patch
	return f.user, f.err
}

func (f *fakeService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	f.gotUserID = userID
	f.gotArgs = []string{currentPassword, newPassword}
	return f.err
}

type fakeVerifier map[string]string

func (v fakeVerifier) Verify(kind auth.Kind, token string) (*auth.Claims, error) {
	id, ok := v[token]
	if !ok || kind != auth.KindAccess {
		return nil, common.ErrInvalidToken
	}
	return &auth.Claims{UserID: id, Kind: kind}, nil
}

func newTestRouter(svc *fakeService) (*gin.Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewZerologLogger(zerolog.New(&buf))
	return NewRouter(logger, svc, fakeVerifier{"good-access": "u-1"}), &buf
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

var alice = &models.PublicUser{ID: "u-1", Name: "Alice", Email: "a@x.com", Role: models.RoleClient, SellerStatus: models.SellerStatusNone}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(&fakeService{})

	w := do(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(common.RequestIDHeader))
}

func TestRequestIDEchoed(t *testing.T) {
	r, _ := newTestRouter(&fakeService{})

	w := do(t, r, http.MethodGet, "/api/health", "", common.RequestIDHeader, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(common.RequestIDHeader))
}

func TestSignup_Created(t *testing.T) {
	svc := &fakeService{authResult: &services.AuthResult{
		TokenPair: services.TokenPair{AccessToken: "at", RefreshToken: "rt"},
		User:      alice,
	}}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPost, "/api/auth/signup", `{"name":"Alice","email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"Alice", "a@x.com", "secret1"}, svc.gotArgs)
	assert.JSONEq(t, `{
		"message":"User registered successfully.",
		"token":"at",
		"refreshToken":"rt",
		"user":{"id":"u-1","name":"Alice","email":"a@x.com","role":"client","isSeller":false,"sellerStatus":"none"}
	}`, w.Body.String())
}

func TestSignup_ErrorsMapped(t *testing.T) {
	r, _ := newTestRouter(&fakeService{err: common.ErrDuplicateEmail})
	w := do(t, r, http.MethodPost, "/api/auth/signup", `{"name":"A","email":"a@x.com","password":"p"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrDuplicateEmail.Error(), decode(t, w)["message"])

	r, _ = newTestRouter(&fakeService{err: common.MissingField("email")})
	w = do(t, r, http.MethodPost, "/api/auth/signup", `{"name":"A"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode(t, w)["field"])

	r, _ = newTestRouter(&fakeService{})
	w = do(t, r, http.MethodPost, "/api/auth/signup", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_FailuresAreByteIdentical(t *testing.T) {
	r, _ := newTestRouter(&fakeService{err: common.ErrInvalidCredentials})
	wrongPw := do(t, r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	noUser := do(t, r, http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, wrongPw.Code, noUser.Code)
	assert.Equal(t, wrongPw.Body.Bytes(), noUser.Body.Bytes())
}

func TestLogin_OK(t *testing.T) {
	svc := &fakeService{authResult: &services.AuthResult{
		TokenPair: services.TokenPair{AccessToken: "at", RefreshToken: "rt"},
		User:      alice,
	}}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Logged in successfully.", body["message"])
	assert.Equal(t, "at", body["token"])
	assert.Equal(t, "rt", body["refreshToken"])
}

func TestRefresh(t *testing.T) {
	svc := &fakeService{pair: &services.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"rt1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"at2","refreshToken":"rt2"}`, w.Body.String())
	assert.Equal(t, []string{"rt1"}, svc.gotArgs)

	r, _ = newTestRouter(&fakeService{err: common.ErrInvalidOrExpiredToken})
	w = do(t, r, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"old"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// empty body reaches the service, which reports the missing token
	svc = &fakeService{err: common.ErrMissingToken}
	r, _ = newTestRouter(svc)
	w = do(t, r, http.MethodPost, "/api/auth/refresh", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{""}, svc.gotArgs)
}

func TestForgotPassword(t *testing.T) {
	svc := &fakeService{forgot: &services.ForgotPasswordResult{Message: services.ForgotPasswordMessage}}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPost, "/api/auth/forgot-password", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"`+services.ForgotPasswordMessage+`"}`, w.Body.String())

	svc.forgot = &services.ForgotPasswordResult{Message: services.ForgotPasswordMessage, ResetURL: "http://localhost:3000/reset-password?token=t"}
	w = do(t, r, http.MethodPost, "/api/auth/forgot-password", `{"email":"a@x.com"}`)
	assert.Equal(t, "http://localhost:3000/reset-password?token=t", decode(t, w)["resetUrl"])
}

func TestResetPassword(t *testing.T) {
	svc := &fakeService{}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPost, "/api/auth/reset-password", `{"token":"t","password":"newpw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"t", "newpw"}, svc.gotArgs)
	assert.Equal(t, "Password has been reset successfully.", decode(t, w)["message"])

	svc.err = common.ErrInvalidOrExpiredToken
	w = do(t, r, http.MethodPost, "/api/auth/reset-password", `{"token":"t","password":"again"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrInvalidOrExpiredToken.Error(), decode(t, w)["message"])
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	r, _ := newTestRouter(&fakeService{user: alice})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPut, "/api/auth/profile"},
		{http.MethodPut, "/api/auth/change-password"},
	} {
		w := do(t, r, tc.method, tc.path, `{}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)

		w = do(t, r, tc.method, tc.path, `{}`, common.AuthorizationHeader, "Bearer forged")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)

		w = do(t, r, tc.method, tc.path, `{}`, common.AuthorizationHeader, "good-access")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "scheme is required: "+tc.path)
	}
}

func TestMe(t *testing.T) {
	profile := *alice
	profile.RejectionReason = "incomplete"
	svc := &fakeService{user: &profile}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodGet, "/api/auth/me", "", common.AuthorizationHeader, "Bearer good-access")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", svc.gotUserID)

	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "incomplete", user["rejectionReason"])

	svc.err = common.ErrUserNotFound
	w = do(t, r, http.MethodGet, "/api/auth/me", "", common.AuthorizationHeader, "Bearer good-access")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfile_PassesOnlyPresentFields(t *testing.T) {
	svc := &fakeService{user: alice}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPut, "/api/auth/profile", `{"name":"Alicia"}`, common.AuthorizationHeader, "Bearer good-access")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotPatch.Name)
	assert.Equal(t, "Alicia", *svc.gotPatch.Name)
	assert.Nil(t, svc.gotPatch.Email)
	assert.Equal(t, "Profile updated successfully.", decode(t, w)["message"])

	svc.err = common.ErrDuplicateEmail
	w = do(t, r, http.MethodPut, "/api/auth/profile", `{"email":"b@x.com"}`, common.AuthorizationHeader, "Bearer good-access")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePassword(t *testing.T) {
	svc := &fakeService{}
	r, _ := newTestRouter(svc)

	w := do(t, r, http.MethodPut, "/api/auth/change-password", `{"currentPassword":"secret1","newPassword":"secret2"}`,
		common.AuthorizationHeader, "Bearer good-access")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", svc.gotUserID)
	assert.Equal(t, []string{"secret1", "secret2"}, svc.gotArgs)

	svc.err = common.ErrInvalidCredentials
	w = do(t, r, http.MethodPut, "/api/auth/change-password", `{"currentPassword":"x","newPassword":"y"}`,
		common.AuthorizationHeader, "Bearer good-access")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	r, buf := newTestRouter(&fakeService{err: assertErr("db error: connection refused")})

	w := do(t, r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"p"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"internal server error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "connection refused", "detail is logged server-side")
}

func TestPanicRecovered(t *testing.T) {
	r, buf := newTestRouter(&fakeService{panicOn: "GetProfile"})

	w := do(t, r, http.MethodGet, "/api/auth/me", "", common.AuthorizationHeader, "Bearer good-access")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestNoRoute(t *testing.T) {
	r, _ := newTestRouter(&fakeService{})
	w := do(t, r, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPServer_CORSPreflight(t *testing.T) {
	cfg := &config.Config{
		EndpointAddrHTTP: "127.0.0.1:0",
		Environment:      "production",
		FrontendURL:      "https://app.example/",
		ShutdownTimeout:  time.Second,
	}
	srv := NewHTTPServer(cfg, logging.NewZerologLogger(zerolog.Nop()), &fakeService{}, fakeVerifier{})
	gin.SetMode(gin.TestMode)

	w := do(t, srv.Handler(), http.MethodOptions, "/api/auth/login", "",
		"Origin", "https://app.example",
		"Access-Control-Request-Method", http.MethodPost)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, srv.Handler(), http.MethodOptions, "/api/auth/login", "",
		"Origin", "https://evil.example",
		"Access-Control-Request-Method", http.MethodPost)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPServer_RunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		EndpointAddrHTTP: "127.0.0.1:0",
		Environment:      "development",
		ShutdownTimeout:  time.Second,
	}
	srv := NewHTTPServer(cfg, logging.NewZerologLogger(zerolog.Nop()), &fakeService{}, fakeVerifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
