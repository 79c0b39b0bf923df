package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/twbot/supportsite/internal/models"
)

// articleRequest is the JSON body for create and edit.
type articleRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (req *articleRequest) validate(w http.ResponseWriter) bool {
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" {
		WriteError(w, http.StatusBadRequest, "title is required")
		return false
	}
	if req.Category == "" {
		WriteError(w, http.StatusBadRequest, "category is required")
		return false
	}
	return true
}

// handleIndex handles GET /: lists all articles, with the current user's
// profile when a session is logged in.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	profile, _ := s.app.Identity.ResolveCurrentUser(r.Context(), sess.Token(), s.tokenSaver(sess))

	articles, err := s.app.Storage.ArticleStore().ListArticles(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list articles")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
		"user":     profile,
	})
}

// handleArticleCreate handles GET and POST /articles/new (admin only).
// GET returns the form context; anonymous GETs are sent through login with
// the path recorded for the post-login redirect.
func (s *Server) handleArticleCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	profile, ok := s.app.Identity.ResolveCurrentUser(r.Context(), sess.Token(), s.tokenSaver(sess))
	if !ok {
		if r.Method == http.MethodGet {
			s.redirectToLogin(w, r)
			return
		}
		WriteErrorFor(w, models.ErrAuth)
		return
	}
	if !s.app.Identity.IsAdmin(r.Context(), profile.ID) {
		WriteErrorFor(w, models.ErrForbidden)
		return
	}

	if r.Method == http.MethodGet {
		categories, err := s.knownCategories(r)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"user":       profile,
			"categories": categories,
		})
		return
	}

	var req articleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !req.validate(w) {
		return
	}

	article := &models.Article{
		ID:        uuid.NewString(),
		CreatorID: profile.ID,
		CreatedAt: time.Now().UTC(),
		Title:     req.Title,
		Category:  req.Category,
		Content:   req.Content,
	}

	if err := s.app.Storage.ArticleStore().InsertArticle(r.Context(), article); err != nil {
		s.logger.Error().Err(err).Msg("Failed to insert article")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Info().
		Str("article_id", article.ID).
		Str("creator_id", article.CreatorID).
		Str("category", article.Category).
		Msg("Article created")

	WriteJSON(w, http.StatusCreated, article)
}

// handleArticleGet handles GET /articles/{id}. The response embeds the
// author's user record when one is still on file.
func (s *Server) handleArticleGet(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	article, err := s.app.Storage.ArticleStore().GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Article not found")
			return
		}
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to get article")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var author *models.User
	if article.CreatorID != "" {
		author, err = s.app.Storage.UserStore().GetUser(r.Context(), article.CreatorID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				s.logger.Warn().Err(err).Str("user_id", article.CreatorID).Msg("Failed to load article author")
			}
			author = nil
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"article": article,
		"author":  author,
		"created": article.CreatedAt.Format("Jan 02, 2006"),
	})
}

// knownCategories collects the distinct categories in use, for form context.
func (s *Server) knownCategories(r *http.Request) ([]string, error) {
	articles, err := s.app.Storage.ArticleStore().ListArticles(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list articles for categories")
		return nil, err
	}

	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, a := range articles {
		key := strings.ToLower(a.Category)
		if !seen[key] {
			seen[key] = true
			categories = append(categories, a.Category)
		}
	}
	return categories, nil
}

// handleArticleEdit handles GET and POST /articles/{id}/edit (admin only).
// GET returns the article as form context. The id, creator, and creation
// time never change on edit.
func (s *Server) handleArticleEdit(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodPut) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	profile, ok := s.app.Identity.ResolveCurrentUser(r.Context(), sess.Token(), s.tokenSaver(sess))
	if !ok {
		if r.Method == http.MethodGet {
			s.redirectToLogin(w, r)
			return
		}
		WriteErrorFor(w, models.ErrAuth)
		return
	}
	if !s.app.Identity.IsAdmin(r.Context(), profile.ID) {
		WriteErrorFor(w, models.ErrForbidden)
		return
	}

	store := s.app.Storage.ArticleStore()
	article, err := store.GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Article not found")
			return
		}
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to get article")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if r.Method == http.MethodGet {
		WriteJSON(w, http.StatusOK, article)
		return
	}

	var req articleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !req.validate(w) {
		return
	}

	update := models.ArticleUpdate{
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
	}
	if err := store.UpdateArticle(r.Context(), id, update); err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to update article")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	article, err = store.GetArticle(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to reload article")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Info().Str("article_id", id).Msg("Article updated")
	WriteJSON(w, http.StatusOK, article)
}

// handleArticleDelete handles POST /articles/{id}/delete (admin only).
// Deleting an already-deleted article succeeds.
func (s *Server) handleArticleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost, http.MethodDelete) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	if _, ok := s.requireAdmin(w, r, sess); !ok {
		return
	}

	if err := s.app.Storage.ArticleStore().RemoveArticle(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to remove article")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Info().Str("article_id", id).Msg("Article deleted")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleCategory handles GET /category/{category}.
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	category, err := url.PathUnescape(PathParam(r, "/category/", ""))
	if err != nil || category == "" {
		WriteError(w, http.StatusBadRequest, "category is required in path")
		return
	}

	articles, listErr := s.app.Storage.ArticleStore().ListByCategory(r.Context(), category)
	if listErr != nil {
		s.logger.Error().Err(listErr).Str("category", category).Msg("Failed to list category")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"articles": articles,
	})
}

// handleSearch handles GET /search?q=term. An empty term redirects home
// rather than erroring.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	articles, err := s.app.Storage.ArticleStore().SearchArticles(r.Context(), term)
	if err != nil {
		s.logger.Error().Err(err).Str("term", term).Msg("Search failed")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"term":     term,
		"articles": articles,
	})
}
