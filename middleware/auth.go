package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw token the request authenticated with.
	ContextTokenKey = "token"
	// TokenCookieName is the cookie set by login.
	TokenCookieName = "token"
)

// CurrentUser resolves the requester from a Bearer header or the token cookie.
// Anonymous requests, and requests with a bad or revoked token, pass through unauthenticated.
func CurrentUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx)
		if tokenString == "" {
			if cookie, err := ctx.Cookie(TokenCookieName); err == nil {
				tokenString = strings.TrimSpace(cookie)
			}
		}
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

// AuthRequired sends anonymous requests to the login page, remembering where they were going.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := UserID(ctx); ok {
			ctx.Next()
			return
		}
		next := ctx.Request.URL.Path
		if ctx.Request.URL.RawQuery != "" {
			next += "?" + ctx.Request.URL.RawQuery
		}
		utils.Redirect(ctx, config.Get().LoginURL+"?next="+url.QueryEscape(next))
	}
}

// AdminRequired lets through only users listed in AdminUsernames. The username is read
// from the database so a renamed account cannot keep a stale admin claim.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := UserID(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}
		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(ctx, http.StatusUnauthorized, 40102, "user not found")
			} else {
				utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load user")
			}
			ctx.Abort()
			return
		}
		if !config.Get().IsAdmin(user.Username) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin privileges required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// UserID returns the authenticated user's id, if any.
func UserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
