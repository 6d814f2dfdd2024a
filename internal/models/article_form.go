package models

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/unicode/norm"
)

// ArticleForm holds the fields bound from an article create or edit request
type ArticleForm struct {
	Title    string `form:"title" json:"title"`
	Content  string `form:"content" json:"content"`
	Category string `form:"category" json:"category"`
}

// FormLimits bounds the size of article form fields
type FormLimits struct {
	TitleMaxLength  int // runes
	ContentMaxBytes int
}

// NewArticleForm pre-populates a form from a stored article
func NewArticleForm(article *Article) ArticleForm {
	if article == nil {
		return ArticleForm{}
	}
	return ArticleForm{
		Title:    article.Title,
		Content:  article.Content,
		Category: article.Category,
	}
}

// Normalize trims surrounding whitespace and converts the text fields to NFC
// so equal-looking titles are stored identically.
func (f *ArticleForm) Normalize() {
	f.Title = norm.NFC.String(strings.TrimSpace(f.Title))
	f.Content = norm.NFC.String(strings.TrimRight(f.Content, " \t\r\n"))
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
}

// Validate checks the form against the limits. The returned error is a
// validation.Errors keyed by form field name.
func (f ArticleForm) Validate(limits FormLimits) error {
	categories := make([]interface{}, 0, len(ArticleCategories))
	for _, key := range CategoryKeys() {
		categories = append(categories, key)
	}

	return validation.ValidateStruct(&f,
		validation.Field(&f.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(0, limits.TitleMaxLength).
				Error(fmt.Sprintf("title must be at most %d characters", limits.TitleMaxLength)),
		),
		validation.Field(&f.Content,
			validation.Required.Error("content is required"),
			validation.Length(0, limits.ContentMaxBytes).
				Error(fmt.Sprintf("content must be at most %d bytes", limits.ContentMaxBytes)),
		),
		validation.Field(&f.Category,
			validation.In(categories...).Error("unknown category"),
		),
	)
}
