package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courtbook/api/internal/models"
	"courtbook/api/internal/service"
)

type generateOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

func (h HandlerSet) GenerateOTP(c *gin.Context) {
	var req generateOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.otpService.Generate(c.Request.Context(), req.Email,
		models.OTPPurpose(req.Purpose), h.clientContext(c))
	if err != nil {
		var rateErr *service.RateLimitedError
		switch {
		case errors.As(err, &rateErr):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "rate_limited",
				"message":     "please wait before requesting another code",
				"secondsLeft": rateErr.SecondsLeft,
			})
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, "user_not_found", "no account for that email")
		case errors.Is(err, service.ErrInvalidOTPPurpose):
			fail(c, http.StatusBadRequest, "invalid_purpose", "unknown otp purpose")
		default:
			h.internalError(c, err, "otp generation failed")
		}
		return
	}

	resp := gin.H{
		"success":   true,
		"message":   "verification code sent",
		"expiresAt": result.ExpiresAt,
	}
	// surfaced only outside production, for interactive and test flows
	if result.Code != "" {
		resp["code"] = result.Code
	}
	c.JSON(http.StatusOK, resp)
}

type verifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Code    string `json:"code" binding:"required,len=6"`
	Purpose string `json:"purpose" binding:"required"`
}

func (h HandlerSet) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID, err := h.otpService.Verify(c.Request.Context(), req.Email, req.Code,
		models.OTPPurpose(req.Purpose), h.clientContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrExpiredOTP):
			fail(c, http.StatusBadRequest, "invalid_or_expired_otp", "code is invalid or expired")
		case errors.Is(err, service.ErrMaxAttemptsExceeded):
			fail(c, http.StatusBadRequest, "max_attempts_exceeded", "too many wrong guesses, request a new code")
		case errors.Is(err, service.ErrInvalidOTPPurpose):
			fail(c, http.StatusBadRequest, "invalid_purpose", "unknown otp purpose")
		default:
			h.internalError(c, err, "otp verification failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "code verified",
		"userId":  userID,
	})
}

func (h HandlerSet) OTPStatus(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "email query parameter required")
		return
	}

	status, err := h.otpService.Status(c.Request.Context(), email)
	if err != nil {
		h.internalError(c, err, "otp status failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "ok",
		"canRequest":  status.CanRequest,
		"secondsLeft": status.SecondsLeft,
	})
}
