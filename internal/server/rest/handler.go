package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
	"github.com/dmitrijs2005/quicklyway/internal/server/services"
	"github.com/gin-gonic/gin"
)

// AuthService is the user service as seen by the HTTP layer.
type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	GetProfile(ctx context.Context, userID string) (*models.PublicUser, error)
	ForgotPassword(ctx context.Context, email string) (*services.ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.PublicUser, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

type Handler struct {
	svc    AuthService
	logger logging.Logger
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	Message      string             `json:"message"`
	Token        string             `json:"token"`
	RefreshToken string             `json:"refreshToken"`
	User         *models.PublicUser `json:"user"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	Message string             `json:"message,omitempty"`
	User    *models.PublicUser `json:"user"`
}

type forgotPasswordResponse struct {
	Message  string `json:"message"`
	ResetURL string `json:"resetUrl,omitempty"`
}

// bind decodes the JSON body; it answers 400 itself on failure. An empty
// body leaves dst zeroed so the service reports the missing fields.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Signup(c.Request.Context(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Message:      "User registered successfully.",
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Message:      "Logged in successfully.",
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{Token: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.svc.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, userResponse{User: user})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, forgotPasswordResponse{Message: res.Message, ResetURL: res.ResetURL})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.writeError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password has been reset successfully."})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), currentUserID(c), models.ProfilePatch{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.writeError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, userResponse{Message: "Profile updated successfully.", User: user})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully."})
}
