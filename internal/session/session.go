// Package session resolves the signed-in user from a request. Users sign
// in out of band; the server only reads the session and never changes it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// CookieName is the session cookie's name.
const CookieName = "buildfast_session"

const userIDKey = "user_id"

// ErrNoSecret is returned when the provider has no signing secret.
var ErrNoSecret = errors.New("session secret is required")

type ctxKey struct{}

// Provider reads sessions signed with the server secret.
type Provider struct {
	store *sessions.CookieStore
}

// NewProvider creates a provider whose cookies are signed with secret.
func NewProvider(secret string, secure bool) (*Provider, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Provider{store: store}, nil
}

// UserID returns the signed-in user, if any. Besides the cookie, a minted
// token is accepted as "Authorization: Bearer <token>" for terminal and
// MCP clients.
func (p *Provider) UserID(r *http.Request) (string, bool) {
	if token, ok := bearer(r); ok {
		return p.decode(token)
	}

	sess, err := p.store.Get(r, CookieName)
	if err != nil {
		return "", false
	}
	id, ok := sess.Values[userIDKey].(string)
	return id, ok && id != ""
}

// Mint returns a signed session value for userID, usable as the cookie
// value or as a bearer token.
func (p *Provider) Mint(userID string) (string, error) {
	values := map[interface{}]interface{}{userIDKey: userID}
	return securecookie.EncodeMulti(CookieName, values, p.store.Codecs...)
}

func (p *Provider) decode(token string) (string, bool) {
	values := map[interface{}]interface{}{}
	if err := securecookie.DecodeMulti(CookieName, token, &values, p.store.Codecs...); err != nil {
		return "", false
	}
	id, ok := values[userIDKey].(string)
	return id, ok && id != ""
}

// Require rejects requests without a session and stores the user id in
// the request context for downstream handlers.
func (p *Provider) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := p.UserID(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFrom returns the user id stored by Require.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
