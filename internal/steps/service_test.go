package steps_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/tests/testutil"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*steps.Service, *store.SQLStore, testutil.Fixture) {
	t.Helper()
	s := testutil.NewTestStore(t)
	return steps.NewService(s), s, testutil.SeedFixture(t, s, "dev@example.com")
}

func sectionCompleted(t *testing.T, s store.Store, id int64) bool {
	t.Helper()
	sec, err := s.GetSectionByID(context.Background(), id)
	require.NoError(t, err)
	return sec.IsCompleted
}

func TestCompletingLastTodoCompletesSection(t *testing.T) {
	svc, s, fx := setup(t)
	ctx := context.Background()

	a, err := svc.CreateTodo(ctx, fx.Section.ID, "a", "")
	require.NoError(t, err)
	b, err := svc.CreateTodo(ctx, fx.Section.ID, "b", "")
	require.NoError(t, err)

	change, err := svc.UpdateTodo(ctx, fx.Section.ID, a.Todo.ID, model.TodoPatch{IsCompleted: ptr(true)})
	require.NoError(t, err)
	assert.False(t, change.SectionCompleted)

	change, err = svc.UpdateTodo(ctx, fx.Section.ID, b.Todo.ID, model.TodoPatch{IsCompleted: ptr(true)})
	require.NoError(t, err)
	assert.True(t, change.SectionCompleted)
	assert.True(t, sectionCompleted(t, s, fx.Section.ID))

	// A fresh open todo reopens the section.
	change, err = svc.CreateTodo(ctx, fx.Section.ID, "c", "")
	require.NoError(t, err)
	assert.False(t, change.SectionCompleted)
	assert.False(t, sectionCompleted(t, s, fx.Section.ID))

	// Deleting the only open todo completes it again.
	change, err = svc.DeleteTodo(ctx, fx.Section.ID, change.Todo.ID)
	require.NoError(t, err)
	assert.True(t, change.SectionCompleted)
}

func TestSetSectionCompletedPropagates(t *testing.T) {
	svc, s, fx := setup(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.CreateTodo(ctx, fx.Section.ID, title, "")
		require.NoError(t, err)
	}

	require.NoError(t, svc.SetSectionCompleted(ctx, fx.Section.ID, true))
	todos, err := s.ListTodos(ctx, fx.Section.ID)
	require.NoError(t, err)
	for _, todo := range todos {
		assert.True(t, todo.IsCompleted, todo.Title)
	}
	assert.True(t, sectionCompleted(t, s, fx.Section.ID))

	require.NoError(t, svc.SetSectionCompleted(ctx, fx.Section.ID, false))
	todos, err = s.ListTodos(ctx, fx.Section.ID)
	require.NoError(t, err)
	for _, todo := range todos {
		assert.False(t, todo.IsCompleted, todo.Title)
	}
	assert.False(t, sectionCompleted(t, s, fx.Section.ID))
}

func TestEmptySectionKeepsFlag(t *testing.T) {
	svc, s, fx := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.SetSectionCompleted(ctx, fx.Section.ID, true))
	assert.True(t, sectionCompleted(t, s, fx.Section.ID))

	created, err := svc.CreateTodo(ctx, fx.Section.ID, "late addition", "")
	require.NoError(t, err)
	assert.False(t, created.SectionCompleted)

	deleted, err := svc.DeleteTodo(ctx, fx.Section.ID, created.Todo.ID)
	require.NoError(t, err)
	assert.False(t, deleted.SectionCompleted)
}

func TestTodoOutsideSectionIsNotFound(t *testing.T) {
	svc, s, fx := setup(t)
	ctx := context.Background()

	other := testutil.SeedSection(t, s, fx.Idea.ID, "Elsewhere")
	foreign, err := svc.CreateTodo(ctx, other.ID, "foreign", "")
	require.NoError(t, err)

	_, err = svc.UpdateTodo(ctx, fx.Section.ID, foreign.Todo.ID, model.TodoPatch{Title: ptr("stolen")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.DeleteTodo(ctx, fx.Section.ID, foreign.Todo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetTodo(ctx, foreign.Todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "foreign", got.Title)
}

func TestCreateTodoInMissingSectionIsNotFound(t *testing.T) {
	svc, s, _ := setup(t)

	_, err := svc.CreateTodo(context.Background(), 9999, "orphan", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	total, _, err := s.TodoCompletion(context.Background(), 9999)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateTodoValidatesTitle(t *testing.T) {
	svc, _, fx := setup(t)

	_, err := svc.CreateTodo(context.Background(), fx.Section.ID, "  ", "desc")
	assert.ErrorIs(t, err, steps.ErrEmptyTitle)

	_, err = svc.UpdateTodo(context.Background(), fx.Section.ID, 1, model.TodoPatch{Title: ptr("")})
	assert.ErrorIs(t, err, steps.ErrEmptyTitle)
}

func TestConcurrentCreatesGetDistinctOrders(t *testing.T) {
	svc, s, fx := setup(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateTodo(ctx, fx.Section.ID, "parallel", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	todos, err := s.ListTodos(ctx, fx.Section.ID)
	require.NoError(t, err)
	require.Len(t, todos, n)

	orders := make([]int, 0, n)
	for _, todo := range todos {
		orders = append(orders, todo.Order)
	}
	sort.Ints(orders)
	for i, o := range orders {
		assert.Equal(t, i+1, o)
	}
}
