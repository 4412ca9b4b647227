// Package state issues and checks the per-hop CSRF nonces of the OAuth flow.
//
// Nothing is kept on the server. The nonce lives in an HttpOnly cookie,
// tagged with the hop it was issued for, and is deleted on every check
// so that a value can be accepted at most once.
package state

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"role-gate/internal/session"
)

// Purpose names the OAuth hop a nonce belongs to.
type Purpose string

const (
	DiscordHop Purpose = "discord"
	GoogleHop  Purpose = "google"
)

type Manager struct {
	ttl     time.Duration
	cookies session.CookieOptions
}

func NewManager(ttl time.Duration, cookies session.CookieOptions) *Manager {
	return &Manager{ttl: ttl, cookies: cookies}
}

// Issue generates a fresh nonce for the given hop, stores it in the
// state cookie and returns the value to send as the OAuth state parameter.
func (m *Manager) Issue(w http.ResponseWriter, purpose Purpose) (string, error) {
	nonce, err := session.GenerateNonce()
	if err != nil {
		return "", err
	}

	session.SetCookie(w, session.StateCookieName, string(purpose)+"."+nonce, m.ttl, m.cookies)
	return nonce, nil
}

// Validate reports whether presented matches the nonce stored for purpose.
// The stored nonce is cleared whether or not it matches.
func (m *Manager) Validate(w http.ResponseWriter, r *http.Request, purpose Purpose, presented string) bool {
	stored := session.ReadCookie(r, session.StateCookieName)
	session.ClearCookie(w, session.StateCookieName, m.cookies)

	if stored == "" || presented == "" {
		return false
	}

	hop, nonce, ok := strings.Cut(stored, ".")
	if !ok || Purpose(hop) != purpose {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(nonce), []byte(presented)) == 1
}
