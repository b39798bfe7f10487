package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/tests/testutil"
)

func TestChatLogs(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	empty, err := s.ListChats(ctx, model.ScopeSection, fx.Section.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.AppendChat(ctx, model.ScopeSection, fx.Section.ID, model.RoleUser, "hi")
	require.NoError(t, err)
	_, err = s.AppendChat(ctx, model.ScopeSection, fx.Section.ID, model.RoleAssistant, "hello")
	require.NoError(t, err)
	_, err = s.AppendChat(ctx, model.ScopePlanning, fx.Idea.ID, model.RoleUser, "plan it")
	require.NoError(t, err)

	section, err := s.ListChats(ctx, model.ScopeSection, fx.Section.ID)
	require.NoError(t, err)
	require.Len(t, section, 2)
	assert.Equal(t, model.RoleUser, section[0].Role)
	assert.Equal(t, "hi", section[0].Message)
	assert.Equal(t, model.RoleAssistant, section[1].Role)
	assert.Equal(t, fx.Section.ID, section[1].ParentID)

	planning, err := s.ListChats(ctx, model.ScopePlanning, fx.Idea.ID)
	require.NoError(t, err)
	require.Len(t, planning, 1)
	assert.Equal(t, "plan it", planning[0].Message)
}

func TestAppendChatRejectsUnknownRole(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")

	_, err := s.AppendChat(context.Background(), model.ScopeSection, fx.Section.ID, model.Role("system"), "x")
	assert.Error(t, err)
}

func TestRecentChatsNewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		_, err := s.AppendChat(ctx, model.ScopePlanning, fx.Idea.ID, role, string(rune('a'+i)))
		require.NoError(t, err)
	}

	recent, err := s.RecentChats(ctx, model.ScopePlanning, fx.Idea.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, "l", recent[0].Message)
	assert.Equal(t, "c", recent[9].Message)
}
