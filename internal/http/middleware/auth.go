package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vladyslavplus/orderly/internal/jwt"
)

const (
	accessClaimsKey = "accessClaims"
	subjectKey      = "subjectID"
)

// Auth validates the Authorization header and attaches claims.
type Auth struct {
	Signer *jwt.Signer
}

// ValidateJWT ensures the request carries a valid bearer token.
func (m *Auth) ValidateJWT(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		abortUnauthorized(c, "Authorization header required.")
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		abortUnauthorized(c, "Bearer token required.")
		return
	}

	std, custom, err := m.Signer.Verify(parts[1])
	if err != nil {
		abortUnauthorized(c, "Invalid access token.")
		return
	}

	userID, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		abortUnauthorized(c, "Invalid access token.")
		return
	}

	c.Set(accessClaimsKey, custom)
	c.Set(subjectKey, userID)
	c.Next()
}

// RequireRole allows the request only when the validated token carries the
// role. Must run after ValidateJWT.
func (m *Auth) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAccessClaims(c)
		if !ok {
			abortUnauthorized(c, "Authentication required.")
			return
		}
		for _, r := range claims.Roles {
			if strings.EqualFold(r, role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":             "forbidden",
			"error_description": "Insufficient role.",
		})
	}
}

// GetAccessClaims exposes the custom access token claims to handlers.
func GetAccessClaims(c *gin.Context) (*jwt.AccessTokenClaims, bool) {
	value, ok := c.Get(accessClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*jwt.AccessTokenClaims)
	return claims, ok
}

// GetSubjectID returns the authenticated user id.
func GetSubjectID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(subjectKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}

func abortUnauthorized(c *gin.Context, description string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_token",
		"error_description": description,
	})
}
