// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "user_email"
	ctxRole   = "user_role"
	ctxClaims = "token_claims"
)

// TokenValidator checks bearer tokens
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, apperrors.CodeUnauthorized, "Authorization header required")
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abortWith(c, apperrors.CodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := tokens.ValidateAccessToken(tokenString)
		if err != nil {
			abortWith(c, apperrors.CodeUnauthorized, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware authenticates when a valid token is present and
// lets anonymous callers through otherwise
func OptionalAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		if claims, err := tokens.ValidateAccessToken(tokenString); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireRoles admits only authenticated callers holding one of roles
func RequireRoles(roles ...auth.Role) gin.HandlerFunc {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role, ok := GetRoleFromContext(c)
		if !ok {
			abortWith(c, apperrors.CodeUnauthorized, "Authentication required")
			return
		}
		if !allowed[role] {
			abortWith(c, apperrors.CodeForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxEmail, claims.Email)
	c.Set(ctxRole, claims.Role)
	c.Set(ctxClaims, claims)
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetRoleFromContext extracts the caller's role
func GetRoleFromContext(c *gin.Context) (auth.Role, bool) {
	role, exists := c.Get(ctxRole)
	if !exists {
		return "", false
	}
	r, ok := role.(auth.Role)
	return r, ok
}

// ActorID is the authenticated user as recorded on audit rows, nil when anonymous
func ActorID(c *gin.Context) *uint {
	id, ok := GetUserIDFromContext(c)
	if !ok {
		return nil
	}
	return &id
}

// IsBackOffice reports whether the caller is staff or admin
func IsBackOffice(c *gin.Context) bool {
	role, ok := GetRoleFromContext(c)
	return ok && role.IsBackOffice()
}

func abortWith(c *gin.Context, code apperrors.Code, message string) {
	status := apperrors.MetadataFor(code).HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
