package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/tests/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestCreateTodoAssignsNextOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	first, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "schema"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Order)
	assert.False(t, first.IsCompleted)

	second, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "queries"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Order)

	require.NoError(t, s.DeleteTodo(ctx, first.ID))

	third, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "indexes"})
	require.NoError(t, err)
	assert.Equal(t, 3, third.Order, "order is max+1, not count+1")

	other := testutil.SeedSection(t, s, fx.Idea.ID, "API")
	firstElsewhere, err := s.CreateTodo(ctx, model.StepTodo{SectionID: other.ID, Title: "routes"})
	require.NoError(t, err)
	assert.Equal(t, 1, firstElsewhere.Order, "order is scoped per section")
}

func TestCreateTodoRejectsEmptyTitle(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")

	_, err := s.CreateTodo(context.Background(), model.StepTodo{SectionID: fx.Section.ID, Title: "   "})
	assert.Error(t, err)
}

func TestListTodosOrdered(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: title})
		require.NoError(t, err)
	}

	todos, err := s.ListTodos(ctx, fx.Section.ID)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	for i, todo := range todos {
		assert.Equal(t, i+1, todo.Order)
	}
	assert.Equal(t, "one", todos[0].Title)
	assert.Equal(t, "three", todos[2].Title)
}

func TestUpdateTodoPartial(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "draft", Description: "keep me"})
	require.NoError(t, err)

	updated, err := s.UpdateTodo(ctx, todo.ID, model.TodoPatch{Title: ptr("final")})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.False(t, updated.IsCompleted)

	updated, err = s.UpdateTodo(ctx, todo.ID, model.TodoPatch{IsCompleted: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.IsCompleted)
}

func TestUpdateTodoUnknownID(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "untouched"})
	require.NoError(t, err)

	_, err = s.UpdateTodo(ctx, todo.ID+100, model.TodoPatch{Title: ptr("nope")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetTodo(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "untouched", got.Title)
}

func TestDeleteTodo(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	keep, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "keep"})
	require.NoError(t, err)
	drop, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "drop"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTodo(ctx, drop.ID))
	assert.ErrorIs(t, s.DeleteTodo(ctx, drop.ID), store.ErrNotFound)

	todos, err := s.ListTodos(ctx, fx.Section.ID)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, keep.ID, todos[0].ID)
}

func TestSetTodosCompletedAndCompletion(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()

	total, done, err := s.TodoCompletion(ctx, fx.Section.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, done)

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: title})
		require.NoError(t, err)
	}

	changed, err := s.SetTodosCompleted(ctx, fx.Section.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, changed)

	total, done, err = s.TodoCompletion(ctx, fx.Section.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, done)
}

func TestGetOwnedTodo(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "owner@example.com")
	stranger := testutil.SeedUser(t, s, "stranger@example.com")
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "mine"})
	require.NoError(t, err)

	got, err := s.GetOwnedTodo(ctx, fx.User.ID, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.ID, got.ID)

	_, err = s.GetOwnedTodo(ctx, stranger.ID, todo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	s := testutil.NewTestStore(t)
	fx := testutil.SeedFixture(t, s, "a@example.com")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.CreateTodo(ctx, model.StepTodo{SectionID: fx.Section.ID, Title: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	todos, err := s.ListTodos(ctx, fx.Section.ID)
	require.NoError(t, err)
	assert.Empty(t, todos)
}
