package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/dto"
	apierrors "github.com/yukikurage/taskdesk-api/internal/errors"
	"github.com/yukikurage/taskdesk-api/internal/middleware"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	issuer       *auth.TokenIssuer
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie sets the Secure
// flag on the session cookie.
func NewAuthHandler(authService *services.AuthService, issuer *auth.TokenIssuer, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		issuer:       issuer,
		secureCookie: secureCookie,
	}
}

// Register creates a user account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    dto.ToRegisteredDTO(*user),
	})
}

// Login authenticates the admin or a user and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	principal, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	identity := principal.Identity()
	token, err := h.issuer.Issue(identity)
	if err != nil {
		_ = c.Error(err)
		apierrors.InternalError(c, "Failed to create session")
		return
	}

	h.setSessionCookie(c, token, int(h.issuer.TTL().Seconds()))

	message := "User login successful"
	if _, ok := principal.(auth.AdminPrincipal); ok {
		message = "Admin login successful"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"user":    dto.ToIdentityDTO(identity),
		"token":   token,
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Me returns the identity carried by the session token.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    dto.ToIdentityDTO(identity),
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookieName, value, maxAge, "/", "", h.secureCookie, true)
}
