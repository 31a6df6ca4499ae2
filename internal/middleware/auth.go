package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	apierrors "github.com/yukikurage/taskdesk-api/internal/errors"
)

// TokenVerifier verifies a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Authenticate requires a valid session token. The cookie is read first and
// the Authorization bearer header second.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			apierrors.Unauthorized(c, "No token")
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				apierrors.Unauthorized(c, "Token expired")
				return
			}
			apierrors.Unauthorized(c, "Invalid token")
			return
		}

		c.Set(constants.ContextKeyIdentity, *identity)
		c.Next()
	}
}

// RequireAdmin allows only the administrator. It must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if !identity.IsAdmin() {
			apierrors.Forbidden(c, "Admin only")
			return
		}
		c.Next()
	}
}

// GetIdentity retrieves the authenticated identity from context
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(constants.SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
