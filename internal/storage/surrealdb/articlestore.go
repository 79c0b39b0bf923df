package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/twbot/supportsite/internal/common"
	"github.com/twbot/supportsite/internal/interfaces"
	"github.com/twbot/supportsite/internal/models"
)

// ArticleStore persists knowledge-base articles in the "article" table,
// keyed by the generated article id.
type ArticleStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewArticleStore(db *surrealdb.DB, logger *common.Logger) *ArticleStore {
	return &ArticleStore{
		db:     db,
		logger: logger,
	}
}

func (s *ArticleStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	article, err := surrealdb.Select[models.Article](ctx, s.db, surrealmodels.NewRecordID("article", id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select article: %w", err)
	}
	if article == nil || article.ID == "" {
		return nil, models.ErrNotFound
	}
	return article, nil
}

func (s *ArticleStore) InsertArticle(ctx context.Context, article *models.Article) error {
	sql := "UPSERT type::record('article', $id) CONTENT $article"
	vars := map[string]any{"id": article.ID, "article": article}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Article](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to insert article after retries: %w", err)
		}
	}
	return nil
}

func (s *ArticleStore) UpdateArticle(ctx context.Context, id string, update models.ArticleUpdate) error {
	// UPDATE targeting a record id that does not exist affects zero rows,
	// which keeps a missing-id update a silent no-op.
	sql := `UPDATE type::record('article', $id) SET
		title = $title, category = $category, content = $content`
	vars := map[string]any{
		"id":       id,
		"title":    update.Title,
		"category": update.Category,
		"content":  update.Content,
	}

	if _, err := surrealdb.Query[[]models.Article](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	return nil
}

func (s *ArticleStore) RemoveArticle(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.Article](ctx, s.db, surrealmodels.NewRecordID("article", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to remove article: %w", err)
	}
	return nil
}

func (s *ArticleStore) ListArticles(ctx context.Context) ([]*models.Article, error) {
	sql := "SELECT * FROM article ORDER BY created_at ASC"

	results, err := surrealdb.Query[[]models.Article](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]*models.Article, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			articles = append(articles, &(*results)[0].Result[i])
		}
	}
	return articles, nil
}

func (s *ArticleStore) ListByCreator(ctx context.Context, creatorID string) ([]*models.Article, error) {
	sql := "SELECT * FROM article WHERE creator_id = $creator_id ORDER BY created_at ASC"
	vars := map[string]any{"creator_id": creatorID}

	results, err := surrealdb.Query[[]models.Article](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles by creator: %w", err)
	}

	articles := make([]*models.Article, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			articles = append(articles, &(*results)[0].Result[i])
		}
	}
	return articles, nil
}

// ListByCategory matches the category case-insensitively. The comparison
// runs over the typed list rather than in SurrealQL so the matching rules
// stay in one place, shared with search.
func (s *ArticleStore) ListByCategory(ctx context.Context, category string) ([]*models.Article, error) {
	all, err := s.ListArticles(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Article, 0)
	for _, a := range all {
		if a.InCategory(category) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *ArticleStore) SearchArticles(ctx context.Context, term string) ([]*models.Article, error) {
	if term == "" {
		return nil, fmt.Errorf("search term must not be empty")
	}

	all, err := s.ListArticles(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Article, 0)
	for _, a := range all {
		if a.MatchesTerm(term) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *ArticleStore) Close() error {
	return nil
}

var _ interfaces.ArticleStore = (*ArticleStore)(nil)
