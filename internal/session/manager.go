package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/twbot/supportsite/internal/common"
)

// Manager binds sessions to browsers through a signed cookie carrying the
// session ID. The cookie itself holds no state; everything lives in the Repo.
type Manager struct {
	repo       Repo
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager creates a session manager from the session config section.
// Cookies are marked Secure in production.
func NewManager(repo Repo, cfg common.SessionConfig, production bool) *Manager {
	return &Manager{
		repo:       repo,
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		ttl:        cfg.GetTTL(),
		secure:     production,
	}
}

// Load returns the session for the request's cookie, creating a fresh
// session (and setting the cookie) when there is none or the cookie is
// invalid or expired.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		if id, err := m.parseCookie(cookie.Value); err == nil {
			if sess, err := m.repo.Get(id); err == nil {
				return sess, nil
			}
		}
	}
	return m.create(w)
}

// Save persists session mutations.
func (m *Manager) Save(sess *Session) error {
	return m.repo.Upsert(sess)
}

// Destroy removes the session and expires the browser cookie.
func (m *Manager) Destroy(w http.ResponseWriter, sess *Session) error {
	if err := m.repo.Delete(sess.ID); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) create(w http.ResponseWriter) (*Session, error) {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now()
	sess := &Session{
		ID:        hex.EncodeToString(idBytes),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.Upsert(sess); err != nil {
		return nil, err
	}

	signed, err := m.signCookie(sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// signCookie creates a signed HMAC-SHA256 JWT carrying the session ID.
func (m *Manager) signCookie(id string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid": id,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// parseCookie validates the cookie JWT and returns the session ID.
func (m *Manager) parseCookie(value string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", fmt.Errorf("cookie missing session id")
	}
	return sid, nil
}
