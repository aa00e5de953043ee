package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	return middleware.UserID(ctx)
}

// parseID reads a positive numeric path parameter. Anything else cannot name a row.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

// loadRequester fetches the authenticated user's current record.
func loadRequester(ctx *gin.Context, db *gorm.DB) (models.User, error) {
	var user models.User
	userID, ok := getUserID(ctx)
	if !ok {
		return user, gorm.ErrRecordNotFound
	}
	err := db.WithContext(ctx.Request.Context()).First(&user, userID).Error
	return user, err
}

func findUserByUsername(c context.Context, db *gorm.DB, username string) (models.User, error) {
	var user models.User
	key := utils.UsernameKeyPrefix + username
	if utils.CacheGetJSON(key, &user) {
		return user, nil
	}
	if err := db.WithContext(c).Where("username = ?", username).First(&user).Error; err != nil {
		return user, err
	}
	utils.CacheSetJSON(key, user)
	return user, nil
}

func findCategoryBySlug(c context.Context, db *gorm.DB, slug string) (models.Category, error) {
	var category models.Category
	key := utils.CategorySlugKeyPrefix + slug
	if utils.CacheGetJSON(key, &category) {
		return category, nil
	}
	if err := db.WithContext(c).Where("slug = ?", slug).First(&category).Error; err != nil {
		return category, err
	}
	utils.CacheSetJSON(key, category)
	return category, nil
}

// bindForm binds the request body (JSON, urlencoded or multipart) into form.
func bindForm(ctx *gin.Context, form interface{}) map[string]string {
	if err := ctx.ShouldBind(form); err != nil {
		return utils.ValidationErrors(err)
	}
	return map[string]string{}
}

// imageUpload is a validated image waiting to be written to storage.
type imageUpload struct {
	header *multipart.FileHeader
	ctype  string
}

// readImage validates the optional "image" file. It returns nil when no file was sent.
func readImage(ctx *gin.Context, errs map[string]string) *imageUpload {
	header, err := ctx.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			errs["image"] = "Upload a valid image."
		}
		return nil
	}
	if header.Size > MaxImageSize {
		errs["image"] = "Image must be at most 5 MB."
		return nil
	}
	f, err := header.Open()
	if err != nil {
		errs["image"] = "Upload a valid image."
		return nil
	}
	defer f.Close()
	sniff := make([]byte, 512)
	n, _ := io.ReadFull(f, sniff)
	ctype := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(ctype, "image/") {
		errs["image"] = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
		return nil
	}
	return &imageUpload{header: header, ctype: ctype}
}

// save writes the image to the store and returns its key and public URL.
func (u *imageUpload) save(c context.Context, store storage.Storage) (string, string, error) {
	f, err := u.header.Open()
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	key := storage.ImageKey(u.header.Filename)
	url, err := store.Save(c, key, f, u.header.Size, u.ctype)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// removeImage deletes a stored image; failures are only logged.
func removeImage(c context.Context, store storage.Storage, key string) {
	if key == "" || store == nil {
		return
	}
	if err := store.Delete(c, key); err != nil {
		utils.Logger.Warn("failed to remove image", zap.String("key", key), zap.Error(err))
	}
}
