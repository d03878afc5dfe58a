package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"courtbook/api/internal/middleware"
	"courtbook/api/internal/models"
	"courtbook/api/internal/service"
)

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var phone *string
	if req.Phone != "" {
		phone = &req.Phone
	}

	userID, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     models.UserRole(req.Role),
		Phone:    phone,
		Client:   h.clientContext(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateEmail):
			fail(c, http.StatusConflict, "duplicate_email", "email already registered")
		case errors.Is(err, service.ErrWeakPassword):
			fail(c, http.StatusBadRequest, "weak_password", "password does not meet the minimum length")
		case errors.Is(err, service.ErrInvalidRole):
			fail(c, http.StatusBadRequest, "invalid_role", "unknown role")
		default:
			h.internalError(c, err, "signup failed")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "account created",
		"userId":  userID,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	User         models.PublicProfile `json:"user"`
	SessionToken string               `json:"sessionToken"`
	RefreshToken string               `json:"refreshToken"`
	ExpiresAt    time.Time            `json:"expiresAt"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   h.clientContext(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, service.ErrAccountLocked):
			fail(c, http.StatusForbidden, "account_locked", "account temporarily locked, try again later")
		case errors.Is(err, service.ErrAccountDeactivated):
			fail(c, http.StatusForbidden, "account_deactivated", "account is deactivated")
		default:
			h.internalError(c, err, "login failed")
		}
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Success:      true,
		Message:      "login ok",
		User:         result.User,
		SessionToken: result.SessionToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, h.clientContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrSessionInvalid):
			fail(c, http.StatusUnauthorized, "session_invalid", "refresh token is not valid")
		default:
			h.internalError(c, err, "refresh failed")
		}
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Success:      true,
		Message:      "session refreshed",
		User:         result.User,
		SessionToken: result.SessionToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

type logoutRequest struct {
	SessionToken string `json:"sessionToken"`
}

// Logout retires the session; it succeeds even when the token is already
// retired or unknown. The token comes from the body, or from the bearer
// header when the body omits it.
func (h HandlerSet) Logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	token := req.SessionToken
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		badRequest(c, "session token required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token, h.clientContext(c)); err != nil {
		h.internalError(c, err, "logout failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "logged out",
	})
}

// Me returns the profile the Auth middleware resolved; it is the
// validateSession surface.
func (h HandlerSet) Me(c *gin.Context) {
	userVal, exists := c.Get(middleware.ContextUser)
	if !exists {
		fail(c, http.StatusUnauthorized, "session_invalid", "session is not valid")
		return
	}
	profile, ok := userVal.(models.PublicProfile)
	if !ok {
		fail(c, http.StatusUnauthorized, "session_invalid", "session is not valid")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "session valid",
		"user":    profile,
	})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, "invalid_request", message)
}

func fail(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func (h HandlerSet) internalError(c *gin.Context, err error, message string) {
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	fail(c, http.StatusInternalServerError, "internal_error", message)
}
