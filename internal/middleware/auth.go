package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lustra-app/lustra-golang/internal/auth"
)

// PrincipalKey is the gin context key the authenticated principal is stored
// under.
const PrincipalKey = "principal"

// AuthMiddleware validates the bearer token and loads the acting principal.
// Downstream handlers receive an explicit auth.Principal, never a raw token.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Admin status is read fresh from the DB rather than trusted from
		// the token, so revoking admin takes effect immediately.
		var isAdmin bool
		err = db.QueryRow("SELECT is_admin FROM users WHERE id = ?", userID).Scan(&isAdmin)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
			}
			c.Abort()
			return
		}

		c.Set(PrincipalKey, auth.Principal{ID: userID, IsAdmin: isAdmin})
		c.Next()
	}
}

// AdminMiddleware rejects non-admin principals. Must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(PrincipalKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			c.Abort()
			return
		}

		if !raw.(auth.Principal).IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. Admin access required."})
			c.Abort()
			return
		}

		c.Next()
	}
}
