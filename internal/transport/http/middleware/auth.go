package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	errUnauthorized  = "Unauthorized"
	errAdminRequired = "Forbidden"
)

// Auth validates a Bearer JWT and sets "userID", "isAdmin", and
// "impersonating" in the gin context. "impersonating" mirrors the source's
// impersonatedBy claim: an admin acting on a subject user's behalf.
func Auth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		rawToken := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		isAdmin, _ := claims["admin"].(bool)
		impersonating, _ := claims["impersonatedBy"].(bool)

		c.Set("userID", userID)
		c.Set("isAdmin", isAdmin)
		c.Set("impersonating", impersonating)
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the caller's token carries admin=true.
// Used on the catalogue-level enable/disable route, which has no per-user
// subject and so cannot be gated by the mutation service's admin_only check.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isAdmin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errAdminRequired})
			return
		}
		c.Next()
	}
}
