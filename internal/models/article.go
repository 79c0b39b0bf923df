package models

import (
	"strings"
	"time"
)

// Article is a knowledge-base entry. The ID is a UUID generated by the
// caller at creation time and is immutable afterwards. Edits overwrite
// title/category/content in place; there is no versioning.
type Article struct {
	ID        string    `json:"article_id"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
}

// ArticleUpdate carries the mutable subset of an article for edits.
type ArticleUpdate struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// InCategory reports whether the article belongs to the named category.
// Category comparisons are case-insensitive throughout the site.
func (a *Article) InCategory(category string) bool {
	return strings.EqualFold(a.Category, category)
}

// MatchesTerm reports whether term is a case-insensitive substring of the
// article title or category.
func (a *Article) MatchesTerm(term string) bool {
	t := strings.ToLower(term)
	return strings.Contains(strings.ToLower(a.Title), t) ||
		strings.Contains(strings.ToLower(a.Category), t)
}
