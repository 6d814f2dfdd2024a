// Package models defines core data structures for go-guildhub
package models

import (
	"html/template"
	"time"
)

// Guild represents a tenant scope under which articles are grouped
type Guild struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	PassphraseHash string    `json:"-" db:"passphrase_hash"` // bcrypt hash, empty = open guild
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Protected reports whether write routes of the guild require the editor passphrase
func (g *Guild) Protected() bool {
	return g != nil && g.PassphraseHash != ""
}

// Article represents a guild article with markdown content
type Article struct {
	ID        int64     `json:"id" db:"id"`
	GuildID   int64     `json:"guild_id" db:"guild_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"` // markdown source
	Category  string    `json:"category" db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ArticleCategory is one of the fixed article categories offered by the input forms
type ArticleCategory struct {
	Key   string
	Label string
}

// ArticleCategories lists the valid categories in display order
var ArticleCategories = []ArticleCategory{
	{Key: "news", Label: "News"},
	{Key: "guide", Label: "Guide"},
	{Key: "event", Label: "Event"},
	{Key: "recruitment", Label: "Recruitment"},
	{Key: "other", Label: "Other"},
}

// CategoryKeys returns the keys of ArticleCategories
func CategoryKeys() []string {
	keys := make([]string, 0, len(ArticleCategories))
	for _, cat := range ArticleCategories {
		keys = append(keys, cat.Key)
	}
	return keys
}

// CategoryLabel returns the display label for key, or key itself when unknown
func CategoryLabel(key string) string {
	for _, cat := range ArticleCategories {
		if cat.Key == key {
			return cat.Label
		}
	}
	return key
}

// ArticleDto is one rendered article inside a view model
type ArticleDto struct {
	ID          int64
	Title       string
	Category    string
	HTMLContent template.HTML
}

// ArticleIndexDto is the view model of the article list page
type ArticleIndexDto struct {
	GuildID   int64
	GuildName string
	Articles  []ArticleDto
}

// ArticleShowDto is the view model of the article detail page
type ArticleShowDto struct {
	GuildID   int64
	GuildName string
	Article   ArticleDto
}

// ArticleFormDto is the view model of the input and edit pages
type ArticleFormDto struct {
	GuildID     int64
	GuildName   string
	ArticleID   int64 // zero on the input page
	Categories  []ArticleCategory
	Form        ArticleForm
	FieldErrors map[string]string
}

// GuildIndexDto is the view model of the guild list page
type GuildIndexDto struct {
	Guilds []*Guild
}
