// Package discord provides a client for the Discord OAuth2 and REST APIs.
package discord

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/twbot/supportsite/internal/common"
	"github.com/twbot/supportsite/internal/interfaces"
	"github.com/twbot/supportsite/internal/models"
)

const (
	DefaultBaseURL   = "https://discord.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the DiscordClient interface.
type Client struct {
	baseURL    string
	botToken   string
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the API base URL (and the OAuth endpoints under it).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithHTTPClient sets the HTTP client used for all requests, including
// token-endpoint calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new Discord client from the discord config section.
func NewClient(cfg common.DiscordConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		botToken: cfg.BotToken,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	if cfg.APIBaseURL != "" {
		c.baseURL = cfg.APIBaseURL
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	for _, opt := range opts {
		opt(c)
	}

	c.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"identify"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.baseURL + "/oauth2/authorize",
			TokenURL:  c.baseURL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return c
}

// APIError represents a Discord API error.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord API error %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// NewState returns a fresh random anti-forgery nonce.
func (c *Client) NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthCodeURL builds the provider authorization URL for the given state nonce.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode validates the callback state against the expected nonce and
// exchanges the authorization code for a token pair. A mismatched or empty
// nonce never reaches the token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, code, state, expectedState string) (*oauth2.Token, error) {
	if expectedState == "" || state != expectedState {
		return nil, models.ErrStateMismatch
	}

	token, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// withHTTPClient makes the oauth2 package use this client's HTTP client for
// token-endpoint calls.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// notifySource wraps a TokenSource and reports refreshed tokens through the
// updater so the session copy stays current.
type notifySource struct {
	base    oauth2.TokenSource
	last    string
	onToken interfaces.TokenUpdater
}

func (s *notifySource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh: %v", models.ErrAuth, err)
	}
	if s.onToken != nil && token.AccessToken != s.last {
		s.onToken(token)
		s.last = token.AccessToken
	}
	return token, nil
}

// AuthorizedRequest issues an API call with the user's token. An expired
// access token is refreshed once via the refresh token, and the new token is
// persisted through onToken before the request proceeds. Refresh failure
// surfaces models.ErrAuth.
func (c *Client) AuthorizedRequest(ctx context.Context, token *oauth2.Token, onToken interfaces.TokenUpdater, method, path string, body io.Reader) (*http.Response, error) {
	if token == nil {
		return nil, models.ErrAuth
	}

	source := &notifySource{
		base:    c.oauth.TokenSource(c.withHTTPClient(ctx), token),
		last:    token.AccessToken,
		onToken: onToken,
	}
	current, err := source.Token()
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	current.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// BotRequest issues a privileged server-to-server API call using the static
// bot credential. Failures are surfaced to the caller without retry.
func (c *Client) BotRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bot request failed: %w", err)
	}
	return resp, nil
}

// CurrentUser fetches the profile of the token's owner via /users/@me.
func (c *Client) CurrentUser(ctx context.Context, token *oauth2.Token, onToken interfaces.TokenUpdater) (*models.DiscordUser, error) {
	resp, err := c.AuthorizedRequest(ctx, token, onToken, http.MethodGet, "/users/@me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: token rejected", models.ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp, "/users/@me")
	}

	var user models.DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode user profile: %v", models.ErrProvider, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user profile missing id", models.ErrProvider)
	}
	return &user, nil
}

// GuildMember fetches a guild membership record with the bot credential.
// Discord answers 404 for users who are not members; that is reported as an
// empty record so the caller can treat it as "not a member".
func (c *Client) GuildMember(ctx context.Context, guildID, userID string) (*models.GuildMember, error) {
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	resp, err := c.BotRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &models.GuildMember{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp, path)
	}

	var member models.GuildMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, fmt.Errorf("%w: decode guild member: %v", models.ErrProvider, err)
	}
	return &member, nil
}

func (c *Client) apiError(resp *http.Response, endpoint string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.logger.Warn().
		Int("status", resp.StatusCode).
		Str("endpoint", endpoint).
		Msg("Discord API error")
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(data),
		Endpoint:   endpoint,
	}
}

// Compile-time check
var _ interfaces.DiscordClient = (*Client)(nil)
