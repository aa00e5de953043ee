package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account with a bcrypt hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var form RegistrationForm
	errs := bindForm(ctx, &form)
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	if errs["username"] == "" && form.Username != "" {
		if !usernamePattern.MatchString(form.Username) {
			errs["username"] = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
		} else {
			var n int64
			err := a.db.WithContext(ctx.Request.Context()).Model(&models.User{}).
				Where("username = ?", form.Username).Count(&n).Error
			if err != nil {
				utils.Logger.Error("check username", zap.String("username", form.Username), zap.Error(err))
				utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to validate username")
				return
			}
			if n > 0 {
				errs["username"] = "A user with that username already exists."
			}
		}
	}
	if len(errs) > 0 {
		form.Password = ""
		utils.FormInvalid(ctx, 40001, form, errs)
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			utils.FormInvalid(ctx, 40001, RegistrationForm{Username: form.Username, Email: form.Email},
				map[string]string{"password": "Ensure this value has at most 72 characters."})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{Username: form.Username, Email: form.Email, PasswordHash: hash}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		utils.Logger.Error("create user", zap.String("username", form.Username), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"user": user})
}

// Login verifies user credentials and issues a JWT, returned in the body and as a cookie.
// With a local ?next= target the client is redirected there instead.
func (a *AuthController) Login(ctx *gin.Context) {
	if ctx.Request.Method == http.MethodGet {
		utils.Success(ctx, gin.H{"form": LoginForm{}, "next": ctx.Query("next")})
		return
	}

	var form LoginForm
	if errs := bindForm(ctx, &form); len(errs) > 0 {
		form.Password = ""
		utils.FormInvalid(ctx, 40003, form, errs)
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", strings.TrimSpace(form.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, form.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	ttl := time.Duration(config.Get().TokenTTLHours) * time.Hour
	token, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookieName, token, int(ttl.Seconds()), "/", "", false, true)

	if next := ctx.Query("next"); safeNext(next) {
		utils.Redirect(ctx, next)
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "not logged in")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	ttl := time.Duration(config.Get().TokenTTLHours) * time.Hour
	utils.BlacklistToken(token, utils.TokenExpiry(claims, time.Now().Add(ttl)))
	ctx.SetCookie(middleware.TokenCookieName, "", -1, "/", "", false, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// safeNext accepts only same-site absolute paths.
func safeNext(next string) bool {
	return strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\")
}
