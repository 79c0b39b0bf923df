// Package interfaces defines service contracts for the support site.
package interfaces

import (
	"context"

	"github.com/twbot/supportsite/internal/models"
)

// StorageManager coordinates the document store backends.
type StorageManager interface {
	UserStore() UserStore
	ArticleStore() ArticleStore

	Close() error
}

// UserStore persists local user records keyed by Discord user id.
type UserStore interface {
	// GetUser returns models.ErrNotFound when no record exists.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// SaveUser upserts the record, overwriting any previous admin flag.
	SaveUser(ctx context.Context, user *models.User) error

	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	Close() error
}

// ArticleStore persists knowledge-base articles.
type ArticleStore interface {
	// GetArticle returns models.ErrNotFound when no article has the id.
	GetArticle(ctx context.Context, id string) (*models.Article, error)

	// InsertArticle stores a new article. The id must be caller-supplied
	// and unique; generation happens at creation time only.
	InsertArticle(ctx context.Context, article *models.Article) error

	// UpdateArticle replaces title/category/content. A missing id is a
	// silent no-op; callers check existence first via GetArticle.
	UpdateArticle(ctx context.Context, id string, update models.ArticleUpdate) error

	// RemoveArticle deletes by id. Removing a nonexistent id is not an error.
	RemoveArticle(ctx context.Context, id string) error

	ListArticles(ctx context.Context) ([]*models.Article, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Article, error)

	// ListByCategory matches the category case-insensitively and exactly.
	ListByCategory(ctx context.Context, category string) ([]*models.Article, error)

	// SearchArticles returns articles whose title or category contains
	// term as a case-insensitive substring. Callers must not pass an
	// empty term.
	SearchArticles(ctx context.Context, term string) ([]*models.Article, error)

	Close() error
}
