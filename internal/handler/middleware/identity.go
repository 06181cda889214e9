package middleware

import (
	"net/http"

	"reservatec-core/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is propagated by the API gateway, which owns authentication.
// This service trusts the forwarded headers: the user id, the career/cohort
// attribute used by the adjacency rule, and the role.

const (
	headerUserID     = "X-User-ID"
	headerUserCareer = "X-User-Career"
	headerUserRole   = "X-User-Role"

	ctxUserIDKey     = "user_id"
	ctxUserCareerKey = "user_career"
	ctxUserRoleKey   = "user_role"

	RoleAdmin = "ADMIN"
)

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(headerUserID))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid user identity",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Set(ctxUserCareerKey, c.GetHeader(headerUserCareer))
		c.Set(ctxUserRoleKey, c.GetHeader(headerUserRole))
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			// Unexpected error: should be used after RequireIdentity()
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			c.Abort()
			return
		}
		if role != RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(ctxUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

func GetUserRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(ctxUserRoleKey)
	if !exists {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}

// GetUserRef assembles the identity the lifecycle core works with.
func GetUserRef(c *gin.Context) (commands.UserRef, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return commands.UserRef{}, false
	}
	career, _ := c.Get(ctxUserCareerKey)
	careerStr, _ := career.(string)
	return commands.UserRef{ID: id, Career: careerStr}, true
}
