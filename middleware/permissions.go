package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Role constants to avoid string typos
const (
	RoleStudent     = "student"
	RoleClubAdmin   = "club_admin"
	RoleSystemAdmin = "system_admin"
)

// AccessContext is the identity the rest of the system trusts. It is
// built once by AuthMiddleware and read by every handler.
type AccessContext struct {
	UserID      uint
	Role        string
	IsSuperuser bool
}

// CanReviewEvents gates the approval workflow. Single source of truth:
// every moderation call site goes through this check.
func (ac AccessContext) CanReviewEvents() bool {
	return ac.Role == RoleSystemAdmin || ac.IsSuperuser
}

// CanManageClubRegistry gates club creation/deletion.
func (ac AccessContext) CanManageClubRegistry() bool {
	return ac.Role == RoleSystemAdmin || ac.IsSuperuser
}

// GetAccessContext pulls the AccessContext set by AuthMiddleware. The
// bool result is false when the request is unauthenticated; a 401 has
// already been written in that case.
func GetAccessContext(c *gin.Context) (AccessContext, bool) {
	raw, exists := c.Get("access_context")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return AccessContext{}, false
	}

	ac, ok := raw.(AccessContext)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid access context"})
		return AccessContext{}, false
	}

	return ac, true
}
