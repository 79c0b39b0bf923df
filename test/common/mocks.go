// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/twbot/supportsite/internal/interfaces"
	"github.com/twbot/supportsite/internal/models"
)

// MockDiscordClient implements DiscordClient for testing
type MockDiscordClient struct {
	Profile        *models.DiscordUser
	ProfileErr     error
	Members        map[string]*models.GuildMember // keyed by userID
	MemberErr      error
	ExchangedToken *oauth2.Token
	ExchangeErr    error
	RefreshedToken *oauth2.Token // when set, CurrentUser reports it via onToken

	StateCounter     int
	CurrentUserCalls int
	GuildMemberCalls int
	ExchangeCalls    int
}

// NewMockDiscordClient creates a mock Discord client
func NewMockDiscordClient() *MockDiscordClient {
	return &MockDiscordClient{
		Members:        make(map[string]*models.GuildMember),
		ExchangedToken: &oauth2.Token{AccessToken: "mock-access"},
	}
}

func (m *MockDiscordClient) NewState() (string, error) {
	m.StateCounter++
	return fmt.Sprintf("state-%d", m.StateCounter), nil
}

func (m *MockDiscordClient) AuthCodeURL(state string) string {
	return "https://discord.example/oauth2/authorize?state=" + state
}

func (m *MockDiscordClient) ExchangeCode(ctx context.Context, code, state, expectedState string) (*oauth2.Token, error) {
	m.ExchangeCalls++
	if expectedState == "" || state != expectedState {
		return nil, models.ErrStateMismatch
	}
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return m.ExchangedToken, nil
}

func (m *MockDiscordClient) CurrentUser(ctx context.Context, token *oauth2.Token, onToken interfaces.TokenUpdater) (*models.DiscordUser, error) {
	m.CurrentUserCalls++
	if token == nil {
		return nil, models.ErrAuth
	}
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	if m.RefreshedToken != nil && onToken != nil {
		onToken(m.RefreshedToken)
	}
	if m.Profile == nil {
		return &models.DiscordUser{ID: "1000", Username: "tester"}, nil
	}
	return m.Profile, nil
}

func (m *MockDiscordClient) GuildMember(ctx context.Context, guildID, userID string) (*models.GuildMember, error) {
	m.GuildMemberCalls++
	if m.MemberErr != nil {
		return nil, m.MemberErr
	}
	if member, ok := m.Members[userID]; ok {
		return member, nil
	}
	// Unknown members resolve to an empty record, matching the real client.
	return &models.GuildMember{}, nil
}

var _ interfaces.DiscordClient = (*MockDiscordClient)(nil)

// MemoryUserStore implements UserStore backed by a map
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User

	SaveErr error
	GetErr  error
}

// NewMemoryUserStore creates an empty in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func (s *MemoryUserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryUserStore) SaveUser(ctx context.Context, user *models.User) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *MemoryUserStore) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

func (s *MemoryUserStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		clone := *u
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryUserStore) Close() error { return nil }

var _ interfaces.UserStore = (*MemoryUserStore)(nil)

// MemoryArticleStore implements ArticleStore backed by a map
type MemoryArticleStore struct {
	mu       sync.RWMutex
	articles map[string]*models.Article

	InsertErr error
	GetErr    error
}

// NewMemoryArticleStore creates an empty in-memory article store
func NewMemoryArticleStore() *MemoryArticleStore {
	return &MemoryArticleStore{articles: make(map[string]*models.Article)}
}

func (s *MemoryArticleStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	article, ok := s.articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *article
	return &clone, nil
}

func (s *MemoryArticleStore) InsertArticle(ctx context.Context, article *models.Article) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *article
	s.articles[article.ID] = &clone
	return nil
}

func (s *MemoryArticleStore) UpdateArticle(ctx context.Context, id string, update models.ArticleUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[id]
	if !ok {
		return nil
	}
	article.Title = update.Title
	article.Category = update.Category
	article.Content = update.Content
	return nil
}

func (s *MemoryArticleStore) RemoveArticle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, id)
	return nil
}

func (s *MemoryArticleStore) ListArticles(ctx context.Context) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	articles := make([]*models.Article, 0, len(s.articles))
	for _, a := range s.articles {
		clone := *a
		articles = append(articles, &clone)
	}
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].CreatedAt.Before(articles[j].CreatedAt)
	})
	return articles, nil
}

func (s *MemoryArticleStore) ListByCreator(ctx context.Context, creatorID string) ([]*models.Article, error) {
	all, _ := s.ListArticles(ctx)
	matched := make([]*models.Article, 0)
	for _, a := range all {
		if a.CreatorID == creatorID {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *MemoryArticleStore) ListByCategory(ctx context.Context, category string) ([]*models.Article, error) {
	all, _ := s.ListArticles(ctx)
	matched := make([]*models.Article, 0)
	for _, a := range all {
		if a.InCategory(category) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *MemoryArticleStore) SearchArticles(ctx context.Context, term string) ([]*models.Article, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("search term must not be empty")
	}
	all, _ := s.ListArticles(ctx)
	matched := make([]*models.Article, 0)
	for _, a := range all {
		if a.MatchesTerm(term) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *MemoryArticleStore) Close() error { return nil }

var _ interfaces.ArticleStore = (*MemoryArticleStore)(nil)

// MockStorageManager bundles the in-memory stores
type MockStorageManager struct {
	Users    *MemoryUserStore
	Articles *MemoryArticleStore
}

// NewMockStorageManager creates a storage manager over fresh in-memory stores
func NewMockStorageManager() *MockStorageManager {
	return &MockStorageManager{
		Users:    NewMemoryUserStore(),
		Articles: NewMemoryArticleStore(),
	}
}

func (m *MockStorageManager) UserStore() interfaces.UserStore       { return m.Users }
func (m *MockStorageManager) ArticleStore() interfaces.ArticleStore { return m.Articles }
func (m *MockStorageManager) Close() error                          { return nil }

var _ interfaces.StorageManager = (*MockStorageManager)(nil)
