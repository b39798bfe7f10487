package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/store"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := store.Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "buildfast.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	again, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, v, again)
	assert.Equal(t, 2, again)
}

func TestUserByEmailCaseInsensitive(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	u, err := s.CreateUser(ctx, model.User{Email: "Dev@Example.com", Name: "Dev"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	got, err := s.GetUserByEmail(ctx, "dev@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLegacyPrefixMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	u, err := s.CreateUser(ctx, model.User{Email: "legacy@example.com"})
	require.NoError(t, err)
	p, err := s.CreateProject(ctx, model.Project{UserID: u.ID, Name: "Old"})
	require.NoError(t, err)
	idea, err := s.CreateIdea(ctx, model.Idea{ProjectID: p.ID, Title: "Old idea"})
	require.NoError(t, err)
	sec, err := s.CreateSection(ctx, model.StepSection{IdeaID: idea.ID, Title: "Old section"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Simulate rows written by a client that predates the role column.
	raw, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	raw.MustExec(`INSERT INTO step_section_chats (section_id, message, created_at) VALUES
		(?, 'User: how do I start?', CURRENT_TIMESTAMP),
		(?, 'AI: Create the schema first.', CURRENT_TIMESTAMP),
		(?, 'no prefix at all', CURRENT_TIMESTAMP)`, sec.ID, sec.ID, sec.ID)
	raw.MustExec("DELETE FROM schema_version WHERE version = 2")
	require.NoError(t, raw.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	msgs, err := s.ListChats(ctx, model.ScopeSection, sec.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	got := map[string]model.Role{}
	for _, m := range msgs {
		got[m.Message] = m.Role
	}
	assert.Equal(t, map[string]model.Role{
		"how do I start?":          model.RoleUser,
		"Create the schema first.": model.RoleAssistant,
		"no prefix at all":         model.RoleUser,
	}, got)
}
