package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

// AdminController lets administrators manage categories and locations.
type AdminController struct {
	db *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

func (a *AdminController) ListCategories(ctx *gin.Context) {
	var categories []models.Category
	if err := a.db.WithContext(ctx.Request.Context()).Order("id").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to list categories")
		return
	}
	utils.Success(ctx, gin.H{"items": categories})
}

func (a *AdminController) CreateCategory(ctx *gin.Context) {
	var form CategoryForm
	errs, err := a.bindCategory(ctx, &form, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to validate category")
		return
	}
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40040, form, errs)
		return
	}
	category := models.Category{
		Title:       form.Title,
		Description: form.Description,
		Slug:        form.Slug,
		IsPublished: boolOr(form.IsPublished, true),
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&category).Error; err != nil {
		utils.Logger.Error("create category", zap.String("slug", form.Slug), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create category")
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"category": category})
}

func (a *AdminController) UpdateCategory(ctx *gin.Context) {
	var category models.Category
	if !a.load(ctx, &category, 40440) {
		return
	}
	oldSlug := category.Slug

	var form CategoryForm
	errs, err := a.bindCategory(ctx, &form, category.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to validate category")
		return
	}
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40041, form, errs)
		return
	}
	category.Title = form.Title
	category.Description = form.Description
	category.Slug = form.Slug
	category.IsPublished = boolOr(form.IsPublished, category.IsPublished)
	if err := a.db.WithContext(ctx.Request.Context()).Save(&category).Error; err != nil {
		utils.Logger.Error("update category", zap.Uint("id", category.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update category")
		return
	}
	utils.InvalidateByPrefix(utils.CategorySlugKeyPrefix + oldSlug)
	utils.InvalidateByPrefix(utils.CategorySlugKeyPrefix + category.Slug)
	utils.Success(ctx, gin.H{"category": category})
}

// DeleteCategory removes a category; its posts stay and lose their category.
func (a *AdminController) DeleteCategory(ctx *gin.Context) {
	var category models.Category
	if !a.load(ctx, &category, 40441) {
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Delete(&category).Error; err != nil {
		utils.Logger.Error("delete category", zap.Uint("id", category.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to delete category")
		return
	}
	utils.InvalidateByPrefix(utils.CategorySlugKeyPrefix + category.Slug)
	utils.Success(ctx, gin.H{"message": "category deleted"})
}

func (a *AdminController) ListLocations(ctx *gin.Context) {
	var locations []models.Location
	if err := a.db.WithContext(ctx.Request.Context()).Order("id").Find(&locations).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to list locations")
		return
	}
	utils.Success(ctx, gin.H{"items": locations})
}

func (a *AdminController) CreateLocation(ctx *gin.Context) {
	var form LocationForm
	errs := bindForm(ctx, &form)
	form.Name = utils.SanitizePlain(form.Name)
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40042, form, errs)
		return
	}
	location := models.Location{Name: form.Name, IsPublished: boolOr(form.IsPublished, true)}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&location).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to create location")
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"location": location})
}

func (a *AdminController) UpdateLocation(ctx *gin.Context) {
	var location models.Location
	if !a.load(ctx, &location, 40442) {
		return
	}
	var form LocationForm
	errs := bindForm(ctx, &form)
	form.Name = utils.SanitizePlain(form.Name)
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40043, form, errs)
		return
	}
	location.Name = form.Name
	location.IsPublished = boolOr(form.IsPublished, location.IsPublished)
	if err := a.db.WithContext(ctx.Request.Context()).Save(&location).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to update location")
		return
	}
	utils.Success(ctx, gin.H{"location": location})
}

// DeleteLocation removes a location; its posts stay and lose their location.
func (a *AdminController) DeleteLocation(ctx *gin.Context) {
	var location models.Location
	if !a.load(ctx, &location, 40443) {
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Delete(&location).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to delete location")
		return
	}
	utils.Success(ctx, gin.H{"message": "location deleted"})
}

func (a *AdminController) bindCategory(ctx *gin.Context, form *CategoryForm, selfID uint) (map[string]string, error) {
	errs := bindForm(ctx, form)
	form.Title = utils.SanitizePlain(form.Title)
	form.Description = utils.Sanitize(form.Description)
	form.Slug = strings.TrimSpace(form.Slug)
	if errs["slug"] != "" || form.Slug == "" {
		return errs, nil
	}
	if !models.ValidSlug(form.Slug) {
		errs["slug"] = "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
		return errs, nil
	}
	var n int64
	err := a.db.WithContext(ctx.Request.Context()).Model(&models.Category{}).
		Where("slug = ? AND id <> ?", form.Slug, selfID).Count(&n).Error
	if err != nil {
		utils.Logger.Error("check category slug", zap.String("slug", form.Slug), zap.Error(err))
		return nil, err
	}
	if n > 0 {
		errs["slug"] = "Category with this slug already exists."
	}
	return errs, nil
}

// load fetches the row named by the :id path parameter into dest, answering 404 itself.
func (a *AdminController) load(ctx *gin.Context, dest interface{}, notFoundCode int) bool {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.NotFound(ctx, notFoundCode)
		return false
	}
	if err := a.db.WithContext(ctx.Request.Context()).First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, notFoundCode)
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to load record")
		}
		return false
	}
	return true
}
