package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/messaging"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

// PostController manages posts and their comments.
type PostController struct {
	db     *gorm.DB
	store  storage.Storage
	events messaging.Publisher
	now    func() time.Time
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, store storage.Storage, events messaging.Publisher) *PostController {
	return &PostController{db: db, store: store, events: events, now: time.Now}
}

// Index returns the public feed, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	var posts []models.Post
	query := p.db.WithContext(ctx.Request.Context()).Model(&models.Post{}).Scopes(models.PublicPosts(p.now()))
	page, err := utils.Paginate(query, ctx.Query("page"), config.Get().PostsPerPage, &posts,
		models.WithCommentCount, models.NewestFirst, models.WithRelations)
	if err != nil {
		utils.Logger.Error("list posts", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"items": posts, "pagination": page})
}

// Detail shows a post with its comments. Authors always see their own posts;
// everyone else only sees public ones.
func (p *PostController) Detail(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.NotFound(ctx, 40401)
		return
	}
	db := p.db.WithContext(ctx.Request.Context())

	var post models.Post
	err := db.Model(&models.Post{}).Scopes(models.WithCommentCount, models.WithRelations).
		Where("posts.id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40401)
			return
		}
		utils.Logger.Error("load post", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}

	if userID, _ := getUserID(ctx); userID != post.AuthorID {
		var visible int64
		err := db.Model(&models.Post{}).Scopes(models.PublicPosts(p.now())).
			Where("posts.id = ?", id).Count(&visible).Error
		if err != nil {
			utils.Logger.Error("check post visibility", zap.Uint("id", id), zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
			return
		}
		if visible == 0 {
			utils.NotFound(ctx, 40401)
			return
		}
	}

	var comments []models.Comment
	if err := db.Where("post_id = ?", post.ID).Scopes(models.OldestFirst).Preload("Author").Find(&comments).Error; err != nil {
		utils.Logger.Error("load comments", zap.Uint("post_id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load comments")
		return
	}

	utils.Success(ctx, gin.H{"post": post, "comments": comments, "form": CommentForm{}})
}

// Create shows a blank post form (GET) or publishes a post authored by the requester (POST).
func (p *PostController) Create(ctx *gin.Context) {
	if ctx.Request.Method == http.MethodGet {
		p.renderPostForm(ctx, newPostForm(nil), nil)
		return
	}

	user, err := loadRequester(ctx, p.db)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var form PostForm
	errs := bindForm(ctx, &form)
	form.clean()
	image := readImage(ctx, errs)
	p.validateChoices(ctx, &form, errs)
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40020, form, errs)
		return
	}

	post := models.Post{AuthorID: user.ID}
	form.apply(&post)

	c := ctx.Request.Context()
	if image != nil {
		key, url, err := image.save(c, p.store)
		if err != nil {
			utils.Logger.Error("store image", zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to store image")
			return
		}
		post.ImageKey, post.Image = key, url
	}

	if err := p.db.WithContext(c).Omit(clause.Associations).Create(&post).Error; err != nil {
		removeImage(c, p.store, post.ImageKey)
		utils.Logger.Error("create post", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to create post")
		return
	}

	messaging.Emit(p.events, messaging.SubjectPostCreated, messaging.PostCreatedEvent{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		PubDate:   post.PubDate.Format(time.RFC3339),
		Timestamp: messaging.Now(),
	})
	utils.Redirect(ctx, profileURL(user.Username))
}

// Edit lets the author change a post. Anyone else is sent back to the post.
func (p *PostController) Edit(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.NotFound(ctx, 40402)
		return
	}
	c := ctx.Request.Context()

	var post models.Post
	if err := p.db.WithContext(c).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40402)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load post")
		return
	}

	if userID, _ := getUserID(ctx); userID != post.AuthorID {
		utils.Redirect(ctx, postURL(post.ID))
		return
	}

	if ctx.Request.Method == http.MethodGet {
		p.renderPostForm(ctx, newPostForm(&post), &post)
		return
	}

	// fields left out of the submission keep their stored values
	form := newPostForm(&post)
	errs := bindForm(ctx, &form)
	form.clean()
	image := readImage(ctx, errs)
	p.validateChoices(ctx, &form, errs)
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40021, form, errs)
		return
	}

	changed := form.apply(&post)
	oldKey := post.ImageKey
	if image != nil {
		key, url, err := image.save(c, p.store)
		if err != nil {
			utils.Logger.Error("store image", zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to store image")
			return
		}
		post.ImageKey, post.Image = key, url
		changed = true
	} else if form.ClearImage && post.ImageKey != "" {
		post.ImageKey, post.Image = "", ""
		changed = true
	}

	if !changed {
		utils.Redirect(ctx, postURL(post.ID))
		return
	}

	if err := p.db.WithContext(c).Omit(clause.Associations).Save(&post).Error; err != nil {
		if post.ImageKey != oldKey {
			removeImage(c, p.store, post.ImageKey)
		}
		utils.Logger.Error("update post", zap.Uint("id", post.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}
	if post.ImageKey != oldKey {
		removeImage(c, p.store, oldKey)
	}
	utils.Redirect(ctx, postURL(post.ID))
}

// Delete removes the requester's own post together with its comments.
// The lookup is filtered by author, so other users' posts are simply not found.
func (p *PostController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.NotFound(ctx, 40403)
		return
	}
	userID, _ := getUserID(ctx)
	c := ctx.Request.Context()

	var post models.Post
	if err := p.db.WithContext(c).Where("id = ? AND author_id = ?", id, userID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40403)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	if ctx.Request.Method == http.MethodGet {
		utils.Success(ctx, gin.H{"post": post, "form": newPostForm(&post)})
		return
	}

	user, err := loadRequester(ctx, p.db)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := p.db.WithContext(c).Delete(&post).Error; err != nil {
		utils.Logger.Error("delete post", zap.Uint("id", post.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}
	removeImage(c, p.store, post.ImageKey)

	messaging.Emit(p.events, messaging.SubjectPostDeleted, messaging.PostDeletedEvent{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Timestamp: messaging.Now(),
	})
	utils.Redirect(ctx, profileURL(user.Username))
}

// AddComment attaches a comment by the requester to any existing post.
func (p *PostController) AddComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.NotFound(ctx, 40404)
		return
	}
	c := ctx.Request.Context()

	var post models.Post
	if err := p.db.WithContext(c).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40404)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to load post")
		return
	}

	var form CommentForm
	errs := bindForm(ctx, &form)
	form.Text = utils.Sanitize(form.Text)
	if form.Text == "" && errs["text"] == "" {
		errs["text"] = "This field is required."
	}
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40022, form, errs)
		return
	}

	user, err := loadRequester(ctx, p.db)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	comment := models.Comment{Text: form.Text, PostID: post.ID, AuthorID: user.ID}
	if err := p.db.WithContext(c).Omit(clause.Associations).Create(&comment).Error; err != nil {
		utils.Logger.Error("create comment", zap.Uint("post_id", post.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create comment")
		return
	}

	messaging.Emit(p.events, messaging.SubjectCommentCreated, messaging.CommentCreatedEvent{
		CommentID: comment.ID,
		PostID:    post.ID,
		AuthorID:  user.ID,
		Timestamp: messaging.Now(),
	})
	utils.Redirect(ctx, postURL(post.ID))
}

// EditComment changes the text of the requester's own comment.
func (p *PostController) EditComment(ctx *gin.Context) {
	comment, ok := p.ownComment(ctx, 40405)
	if !ok {
		return
	}

	if ctx.Request.Method == http.MethodGet {
		utils.Success(ctx, gin.H{"comment": comment, "form": CommentForm{Text: comment.Text}})
		return
	}

	var form CommentForm
	errs := bindForm(ctx, &form)
	form.Text = utils.Sanitize(form.Text)
	if form.Text == "" && errs["text"] == "" {
		errs["text"] = "This field is required."
	}
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40023, form, errs)
		return
	}

	if form.Text != comment.Text {
		err := p.db.WithContext(ctx.Request.Context()).Model(&comment).UpdateColumn("text", form.Text).Error
		if err != nil {
			utils.Logger.Error("update comment", zap.Uint("id", comment.ID), zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update comment")
			return
		}
	}
	utils.Redirect(ctx, postURL(comment.PostID))
}

// DeleteComment removes the requester's own comment after confirmation.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	comment, ok := p.ownComment(ctx, 40406)
	if !ok {
		return
	}

	if ctx.Request.Method == http.MethodGet {
		utils.Success(ctx, gin.H{"comment": comment})
		return
	}

	if err := p.db.WithContext(ctx.Request.Context()).Delete(&comment).Error; err != nil {
		utils.Logger.Error("delete comment", zap.Uint("id", comment.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to delete comment")
		return
	}
	utils.Redirect(ctx, postURL(comment.PostID))
}

// ownComment loads the comment named by the path if it belongs to the post and the requester.
// It answers 404 itself when it does not.
func (p *PostController) ownComment(ctx *gin.Context, notFoundCode int) (models.Comment, bool) {
	var comment models.Comment
	postID, ok1 := parseID(ctx, "id")
	commentID, ok2 := parseID(ctx, "cid")
	if !ok1 || !ok2 {
		utils.NotFound(ctx, notFoundCode)
		return comment, false
	}
	userID, _ := getUserID(ctx)

	err := p.db.WithContext(ctx.Request.Context()).
		Where("id = ? AND post_id = ? AND author_id = ?", commentID, postID, userID).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, notFoundCode)
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load comment")
		}
		return comment, false
	}
	return comment, true
}

// validateChoices checks that the selected category and location exist.
func (p *PostController) validateChoices(ctx *gin.Context, form *PostForm, errs map[string]string) {
	db := p.db.WithContext(ctx.Request.Context())
	if form.CategoryID != nil && errs["category"] == "" {
		var n int64
		if err := db.Model(&models.Category{}).Where("id = ?", *form.CategoryID).Count(&n).Error; err != nil || n == 0 {
			errs["category"] = "Select a valid choice. That choice is not one of the available choices."
		}
	}
	if form.LocationID != nil && errs["location"] == "" {
		var n int64
		if err := db.Model(&models.Location{}).Where("id = ?", *form.LocationID).Count(&n).Error; err != nil || n == 0 {
			errs["location"] = "Select a valid choice. That choice is not one of the available choices."
		}
	}
}

// renderPostForm answers a GET on the create or edit page with the form and its choices.
func (p *PostController) renderPostForm(ctx *gin.Context, form PostForm, post *models.Post) {
	db := p.db.WithContext(ctx.Request.Context())
	var categories []models.Category
	var locations []models.Location
	if err := db.Order("title").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to load categories")
		return
	}
	if err := db.Order("name").Find(&locations).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to load locations")
		return
	}
	data := gin.H{"form": form, "categories": categories, "locations": locations}
	if post != nil {
		data["post"] = post
	}
	utils.Success(ctx, data)
}
