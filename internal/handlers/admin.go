package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authgate/api/internal/service"
)

// AdminFindUser looks an account up by email. Unlike sign-in, admins are
// told plainly whether the account exists.
func (h HandlerSet) AdminFindUser(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "Bad Request",
			Message: "Query parameter email is required.",
		})
		return
	}

	user, err := h.authService.FindUser(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "Not Found", Message: "User not found."})
			return
		}
		h.writeError(c, "admin_find_user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
