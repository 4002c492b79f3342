package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/doctorsapp/doctors-api/config"
	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	dbContextKey       = "db"
	userIDContextKey   = "user_id"
	userRoleContextKey = "user_role"
)

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token, api-token")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware stores the gorm DB handle in the request context so
// handlers can retrieve it with GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the gorm DB handle set by DatabaseMiddleware, or nil.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbContextKey)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// GetUserID returns the authenticated user's ID set by RequireSession.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetUserRole returns the authenticated user's role set by RequireSession.
func GetUserRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(userRoleContextKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// RequireSession authenticates the request via the session-token header.
// The token is looked up in Redis first (key session:<token>, value
// "<userID>:<role>") and falls back to the sessions table when Redis is
// unavailable. On success the user ID and role are stored in the context.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("session-token")
		if token == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session token not provided",
				Err: fmt.Errorf("session token not provided"),
			})
			c.Abort()
			return
		}

		if userID, role, ok := sessionFromRedis(token); ok {
			c.Set(userIDContextKey, userID)
			c.Set(userRoleContextKey, role)
			c.Next()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		userID, role, err := sessionFromDB(db, token)
		if err != nil {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid or expired session token")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired session token",
				Err: fmt.Errorf("session not found"),
			})
			c.Abort()
			return
		}

		c.Set(userIDContextKey, userID)
		c.Set(userRoleContextKey, role)
		c.Next()
	}
}

func sessionFromRedis(token string) (uint, string, bool) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	val, err := rdb.Get(ctx, fmt.Sprintf("session:%s", token)).Result()
	if err != nil {
		return 0, "", false
	}
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return uint(id), parts[1], true
}

func sessionFromDB(db *gorm.DB, token string) (uint, string, error) {
	var result struct {
		UserID uint
		Role   string
	}
	err := db.Model(&model.Session{}).
		Select("sessions.user_id, users.role").
		Joins("JOIN users ON sessions.user_id = users.id").
		Where("session_token = ? AND expires_at > ? AND sessions.deleted_at IS NULL", token, time.Now()).
		First(&result).Error
	if err != nil {
		return 0, "", err
	}
	return result.UserID, result.Role, nil
}

// RequireAPIToken guards administrative endpoints with a static API token
// from configuration. Requests without a matching api-token header are
// rejected; an unconfigured token denies everything.
func RequireAPIToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := config.LoadConfig().APIToken
		provided := c.GetHeader("api-token")
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid api token")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid API token",
				Err: fmt.Errorf("api token mismatch"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
