package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/twbot/supportsite/internal/common"
)

// registerRoutes sets up all routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// OAuth login flow
	mux.HandleFunc("/oauth", s.handleOAuthBegin)
	mux.HandleFunc("/oauth/authorize", s.handleOAuthCallback)
	mux.HandleFunc("/oauth/deauthorize", s.handleOAuthLogout)

	// Current user
	mux.HandleFunc("/me", s.handleMe)

	// Articles
	mux.HandleFunc("/articles/new", s.handleArticleCreate)
	mux.HandleFunc("/articles/", s.routeArticles)

	// Browsing
	mux.HandleFunc("/category/", s.handleCategory)
	mux.HandleFunc("/search", s.handleSearch)

	// Static assets
	if s.app.Config.Assets.Path != "" {
		fs := http.FileServer(http.Dir(s.app.Config.Assets.Path))
		mux.Handle("/assets/", http.StripPrefix("/assets/", fs))
	}

	// Index
	mux.HandleFunc("/", s.handleIndex)
}

// routeArticles dispatches /articles/{id} and /articles/{id}/{action}.
func (s *Server) routeArticles(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/articles/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "article id is required in path")
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch action {
	case "":
		s.handleArticleGet(w, r, id)
	case "edit":
		s.handleArticleEdit(w, r, id)
	case "delete":
		s.handleArticleDelete(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
