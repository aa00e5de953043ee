package controllers

import (
	"regexp"
	"strings"
	"time"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

// MaxImageSize is the largest accepted post image.
const MaxImageSize = 5 << 20

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// PostForm is the submission for creating or editing a post. The author is never part of it.
type PostForm struct {
	Title       string    `json:"title" form:"title" binding:"required,max=256"`
	Text        string    `json:"text" form:"text" binding:"required"`
	PubDate     time.Time `json:"pub_date" form:"pub_date" binding:"required"`
	IsPublished *bool     `json:"is_published" form:"is_published"`
	CategoryID  *uint     `json:"category" form:"category" binding:"required"`
	LocationID  *uint     `json:"location" form:"location"`
	ClearImage  bool      `json:"image_clear" form:"image_clear"`
}

func newPostForm(post *models.Post) PostForm {
	published := true
	if post == nil {
		return PostForm{IsPublished: &published, PubDate: time.Now().UTC().Truncate(time.Minute)}
	}
	published = post.IsPublished
	return PostForm{
		Title:       post.Title,
		Text:        post.Text,
		PubDate:     post.PubDate,
		IsPublished: &published,
		CategoryID:  copyID(post.CategoryID),
		LocationID:  copyID(post.LocationID),
	}
}

// copyID detaches the form from the post, since binding writes through non-nil pointers.
func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func (f *PostForm) clean() {
	f.Title = utils.SanitizePlain(f.Title)
	f.Text = utils.Sanitize(f.Text)
	f.PubDate = f.PubDate.UTC()
	if f.IsPublished == nil {
		published := true
		f.IsPublished = &published
	}
	if f.LocationID != nil && *f.LocationID == 0 {
		f.LocationID = nil
	}
}

// apply copies the form onto post and reports whether anything changed.
func (f PostForm) apply(post *models.Post) bool {
	changed := post.Title != f.Title ||
		post.Text != f.Text ||
		!post.PubDate.Equal(f.PubDate) ||
		post.IsPublished != *f.IsPublished ||
		!sameID(post.CategoryID, f.CategoryID) ||
		!sameID(post.LocationID, f.LocationID)

	post.Title = f.Title
	post.Text = f.Text
	post.PubDate = f.PubDate
	post.IsPublished = *f.IsPublished
	post.CategoryID = f.CategoryID
	post.LocationID = f.LocationID
	return changed
}

type CommentForm struct {
	Text string `json:"text" form:"text" binding:"required"`
}

type ProfileForm struct {
	FirstName string `json:"first_name" form:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" form:"last_name" binding:"max=150"`
	Username  string `json:"username" form:"username" binding:"required,max=150"`
	Email     string `json:"email" form:"email" binding:"omitempty,email,max=254"`
}

func (f *ProfileForm) clean() {
	f.FirstName = utils.SanitizePlain(f.FirstName)
	f.LastName = utils.SanitizePlain(f.LastName)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

type RegistrationForm struct {
	Username string `json:"username" form:"username" binding:"required,max=150"`
	Email    string `json:"email" form:"email" binding:"omitempty,email,max=254"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

type LoginForm struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type CategoryForm struct {
	Title       string `json:"title" form:"title" binding:"required,max=256"`
	Description string `json:"description" form:"description" binding:"required"`
	Slug        string `json:"slug" form:"slug" binding:"required,max=64"`
	IsPublished *bool  `json:"is_published" form:"is_published"`
}

type LocationForm struct {
	Name        string `json:"name" form:"name" binding:"required,max=256"`
	IsPublished *bool  `json:"is_published" form:"is_published"`
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
