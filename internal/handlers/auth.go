package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"authgate/api/internal/middleware"
	"authgate/api/internal/models"
	"authgate/api/internal/security"
	"authgate/api/internal/service"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
}

func (h HandlerSet) SignUp(c *gin.Context) {
	const op = "sign_up"

	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, op)
		return
	}

	if req.Role == string(models.RoleAdmin) && !h.canGrantAdmin(c) {
		h.outcome(op, "forbidden")
		c.JSON(http.StatusForbidden, errorResponse{
			Error:   "Forbidden",
			Message: "Only an admin can create admin accounts.",
		})
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(c, op, err)
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.writeError(c, op, err)
		return
	}

	h.outcome(op, "ok")
	c.JSON(http.StatusCreated, authResponse{
		Message: "User created successfully.",
		User:    toUserResponse(user),
	})
}

func (h HandlerSet) SignIn(c *gin.Context) {
	const op = "sign_in"

	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, op)
		return
	}

	user, err := h.authService.AuthenticateUser(c.Request.Context(), service.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, op, err)
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.writeError(c, op, err)
		return
	}

	h.outcome(op, "ok")
	c.JSON(http.StatusOK, authResponse{
		Message: "Signed in successfully.",
		User:    toUserResponse(user.Public()),
	})
}

// SignOut clears the session cookie. Tokens are stateless, so there is
// nothing to revoke server side and a missing cookie is not an error.
func (h HandlerSet) SignOut(c *gin.Context) {
	h.transport.Clear(c)
	h.outcome("sign_out", "ok")
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully."})
}

func (h HandlerSet) Me(c *gin.Context) {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Message: "Authentication required."})
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), claims.ID)
	if err != nil {
		// The account behind a still-valid token is gone.
		if errors.Is(err, service.ErrUserNotFound) {
			h.transport.Clear(c)
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Message: "Authentication required."})
			return
		}
		h.writeError(c, "me", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// canGrantAdmin reports whether this sign-up may create an admin: either
// open admin sign-up is configured or the caller already holds an admin
// session.
func (h HandlerSet) canGrantAdmin(c *gin.Context) bool {
	if h.cfg != nil && h.cfg.Security.AllowAdminSignup {
		return true
	}
	claims, ok := middleware.IdentityFrom(c)
	return ok && claims.Role == string(models.RoleAdmin)
}

func (h HandlerSet) startSession(c *gin.Context, user models.User) error {
	token, expiresAt, err := h.tokens.Issue(security.ClaimsInput{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
	})
	if err != nil {
		return err
	}
	h.transport.Attach(c, token, expiresAt)
	return nil
}
