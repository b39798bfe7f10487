package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/session"
)

func newProvider(t *testing.T) *session.Provider {
	t.Helper()

	p, err := session.NewProvider("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)
	return p
}

func TestNewProviderRequiresSecret(t *testing.T) {
	_, err := session.NewProvider("", false)
	assert.ErrorIs(t, err, session.ErrNoSecret)
}

func TestMintedTokenResolves(t *testing.T) {
	p := newProvider(t)
	token, err := p.Mint("user-1")
	require.NoError(t, err)

	byCookie := httptest.NewRequest(http.MethodGet, "/", nil)
	byCookie.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	id, ok := p.UserID(byCookie)
	require.True(t, ok)
	assert.Equal(t, "user-1", id)

	byHeader := httptest.NewRequest(http.MethodGet, "/", nil)
	byHeader.Header.Set("Authorization", "Bearer "+token)
	id, ok = p.UserID(byHeader)
	require.True(t, ok)
	assert.Equal(t, "user-1", id)
}

func TestForeignTokenIsRejected(t *testing.T) {
	other, err := session.NewProvider("fedcba9876543210fedcba9876543210", false)
	require.NoError(t, err)
	token, err := other.Mint("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, ok := newProvider(t).UserID(req)
	assert.False(t, ok)
}

func TestRequire(t *testing.T) {
	p := newProvider(t)
	var seen string
	h := p.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = session.UserIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	token, err := p.Mint("user-2")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-2", seen)
}
