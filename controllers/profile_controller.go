package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

// ProfileController serves author pages and profile editing.
type ProfileController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db, now: time.Now}
}

// Profile lists an author's posts. The owner sees all of them, including drafts and
// scheduled posts; other visitors only see the public ones.
func (pc *ProfileController) Profile(ctx *gin.Context) {
	c := ctx.Request.Context()
	profile, err := findUserByUsername(c, pc.db, ctx.Param("username"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40410)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load profile")
		return
	}

	query := pc.db.WithContext(c).Model(&models.Post{}).Where("posts.author_id = ?", profile.ID)
	if userID, _ := getUserID(ctx); userID != profile.ID {
		query = query.Scopes(models.PublicPosts(pc.now()))
	}

	var posts []models.Post
	page, err := utils.Paginate(query, ctx.Query("page"), config.Get().PostsPerPage, &posts,
		models.WithCommentCount, models.NewestFirst, models.WithRelations)
	if err != nil {
		utils.Logger.Error("list profile posts", zap.Uint("author_id", profile.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"profile": profile, "items": posts, "pagination": page})
}

// EditProfile updates the requester's names, username and email.
func (pc *ProfileController) EditProfile(ctx *gin.Context) {
	user, err := loadRequester(ctx, pc.db)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if ctx.Request.Method == http.MethodGet {
		utils.Success(ctx, gin.H{"form": ProfileForm{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Username:  user.Username,
			Email:     user.Email,
		}})
		return
	}

	var form ProfileForm
	errs := bindForm(ctx, &form)
	form.clean()
	c := ctx.Request.Context()
	if errs["username"] == "" {
		if !usernamePattern.MatchString(form.Username) {
			errs["username"] = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
		} else if form.Username != user.Username {
			var n int64
			err := pc.db.WithContext(c).Model(&models.User{}).
				Where("username = ? AND id <> ?", form.Username, user.ID).Count(&n).Error
			if err != nil {
				utils.Logger.Error("check username", zap.Uint("user_id", user.ID), zap.Error(err))
				utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to validate username")
				return
			}
			if n > 0 {
				errs["username"] = "A user with that username already exists."
			}
		}
	}
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40030, form, errs)
		return
	}

	oldUsername := user.Username
	updates := map[string]interface{}{}
	if form.FirstName != user.FirstName {
		updates["first_name"] = form.FirstName
	}
	if form.LastName != user.LastName {
		updates["last_name"] = form.LastName
	}
	if form.Username != user.Username {
		updates["username"] = form.Username
	}
	if form.Email != user.Email {
		updates["email"] = form.Email
	}
	if len(updates) > 0 {
		if err := pc.db.WithContext(c).Model(&user).Updates(updates).Error; err != nil {
			utils.Logger.Error("update profile", zap.Uint("id", user.ID), zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to update profile")
			return
		}
		utils.InvalidateByPrefix(utils.UsernameKeyPrefix + oldUsername)
		utils.InvalidateByPrefix(utils.UsernameKeyPrefix + form.Username)
	}
	utils.Redirect(ctx, profileURL(form.Username))
}
