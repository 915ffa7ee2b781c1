package middleware

import (
	"strings"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware validates the bearer token and loads the caller. The user id
// is stored under utils.ContextUserID for the controllers.
func AuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogWarn("Missing Authorization header on %s", c.Request.URL.Path)
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.LogWarn("Invalid Bearer token format")
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		userID, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.LogWarn("Invalid token: %v", err)
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			utils.LogWarn("User %d from token not found: %v", userID, err)
			utils.Unauthorized(c, "User not found")
			c.Abort()
			return
		}
		if user.IsBlocked {
			utils.LogSecurity("blocked_user_access", "user_id", userID, "path", c.Request.URL.Path)
			utils.Forbidden(c, "Account is blocked")
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, user.ID)
		c.Set("user", user)
		utils.LogDebug("User %d authenticated", user.ID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's id
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(utils.ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}
