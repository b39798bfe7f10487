package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/api"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/session"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/tests/testutil"
)

type harness struct {
	t        *testing.T
	handler  http.Handler
	store    *store.SQLStore
	sessions *session.Provider
	model    *testutil.ScriptedModel
	fx       testutil.Fixture
	token    string
}

func newHarness(t *testing.T, cfg model.ServerConfig) *harness {
	t.Helper()

	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "owner@example.com")
	sessions, err := session.NewProvider("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)
	token, err := sessions.Mint(fx.User.ID)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := steps.NewService(s)
	m := testutil.NewScriptedModel()
	engine := ai.NewEngine(m, s, svc, model.AIConfig{
		Model:          "test-model",
		ToolsEnabled:   true,
		MaxSteps:       3,
		PlanningWindow: 10,
	}, log)

	srv := api.NewServer(api.Options{
		Config:   cfg,
		Store:    s,
		Steps:    svc,
		Engine:   engine,
		Sessions: sessions,
		Logger:   log,
	})

	return &harness{
		t:        t,
		handler:  srv.Routes(),
		store:    s,
		sessions: sessions,
		model:    m,
		fx:       fx,
		token:    token,
	}
}

// do sends a request as token's user; an empty token sends none.
func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(h.t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) as(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.do(method, path, h.token, body)
}

// tokenFor seeds another user and returns their session token.
func (h *harness) tokenFor(email string) string {
	h.t.Helper()

	u := testutil.SeedUser(h.t, h.store, email)
	token, err := h.sessions.Mint(u.ID)
	require.NoError(h.t, err)
	return token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func defaultConfig() model.ServerConfig {
	return model.ServerConfig{
		CORSOrigins:       []string{"http://localhost:3000"},
		RequestTimeoutSec: 30,
	}
}
