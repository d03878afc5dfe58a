package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"courtbook/api/internal/service"
)

type auditEntryResponse struct {
	ID        string    `json:"id"`
	UserID    *int64    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListAuditEntries pages through the security audit log, newest first.
func (h HandlerSet) ListAuditEntries(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	entries, err := h.audit.ListRecent(c.Request.Context(), limit, offset)
	if err != nil {
		h.internalError(c, err, "audit listing failed")
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, auditEntryResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			IPAddress: entry.IPAddress,
			UserAgent: entry.UserAgent,
			Success:   entry.Success,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "ok",
		"entries": items,
	})
}

// RevokeUserSessions force-logs-out every session a user holds.
func (h HandlerSet) RevokeUserSessions(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "user id must be numeric")
		return
	}

	if err := h.authService.RevokeUserSessions(c.Request.Context(), userID, h.clientContext(c)); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "user_not_found", "no such user")
			return
		}
		h.internalError(c, err, "session revocation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "all sessions revoked",
	})
}
