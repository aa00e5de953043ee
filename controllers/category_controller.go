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

type CategoryController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db, now: time.Now}
}

// Category lists the public posts of a published category.
func (cc *CategoryController) Category(ctx *gin.Context) {
	c := ctx.Request.Context()
	category, err := findCategoryBySlug(c, cc.db, ctx.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load category")
		return
	}
	if !category.IsPublished {
		utils.NotFound(ctx, 40420)
		return
	}

	var posts []models.Post
	query := cc.db.WithContext(c).Model(&models.Post{}).
		Where("posts.category_id = ?", category.ID).
		Scopes(models.PublicPosts(cc.now()))
	page, err := utils.Paginate(query, ctx.Query("page"), config.Get().PostsPerPage, &posts,
		models.WithCommentCount, models.NewestFirst, models.WithRelations)
	if err != nil {
		utils.Logger.Error("list category posts", zap.String("slug", category.Slug), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"category": category, "items": posts, "pagination": page})
}
