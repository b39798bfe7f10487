package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/tests/testutil"
)

type todoChange struct {
	Todo             model.StepTodo `json:"todo"`
	SectionCompleted bool           `json:"sectionCompleted"`
}

type historyBody struct {
	Messages []ai.HistoryEntry `json:"messages"`
}

func TestTodoLifecycle(t *testing.T) {
	h := newHarness(t, defaultConfig())
	sectionID := h.fx.Section.ID

	rec := h.as(http.MethodPost, "/api/step-todos", map[string]any{"sectionId": sectionID, "title": "Pick a DB"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[todoChange](t, rec)
	assert.Equal(t, 1, created.Todo.Order)
	assert.False(t, created.SectionCompleted)

	rec = h.as(http.MethodPatch, fmt.Sprintf("/api/step-todos/%d", created.Todo.ID), map[string]any{"isCompleted": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[todoChange](t, rec).SectionCompleted)

	rec = h.as(http.MethodPatch, fmt.Sprintf("/api/step-todos/%d", created.Todo.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.as(http.MethodGet, fmt.Sprintf("/api/step-todos?sectionId=%d", sectionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.StepTodo](t, rec), 1)

	rec = h.as(http.MethodDelete, fmt.Sprintf("/api/step-todos/%d", created.Todo.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.as(http.MethodDelete, fmt.Sprintf("/api/step-todos/%d", created.Todo.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Todo not found"}`, rec.Body.String())
}

func TestTodoOfAnotherUser(t *testing.T) {
	h := newHarness(t, defaultConfig())

	rec := h.as(http.MethodPost, "/api/step-todos", map[string]any{"sectionId": h.fx.Section.ID, "title": "Mine"})
	require.Equal(t, http.StatusCreated, rec.Code)
	todo := decode[todoChange](t, rec).Todo

	other := h.tokenFor("other@example.com")
	rec = h.do(http.MethodPatch, fmt.Sprintf("/api/step-todos/%d", todo.ID), other, map[string]any{"title": "Theirs"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodPost, "/api/step-todos", other, map[string]any{"sectionId": h.fx.Section.ID, "title": "Sneaky"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSectionTogglePropagates(t *testing.T) {
	h := newHarness(t, defaultConfig())
	for _, title := range []string{"One", "Two"} {
		rec := h.as(http.MethodPost, "/api/step-todos", map[string]any{"sectionId": h.fx.Section.ID, "title": title})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := h.as(http.MethodPatch, fmt.Sprintf("/api/step-sections/%d", h.fx.Section.ID), map[string]any{"isCompleted": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.StepSection](t, rec).IsCompleted)

	rec = h.as(http.MethodGet, fmt.Sprintf("/api/step-todos?sectionId=%d", h.fx.Section.ID), nil)
	for _, todo := range decode[[]model.StepTodo](t, rec) {
		assert.True(t, todo.IsCompleted, todo.Title)
	}

	rec = h.as(http.MethodPatch, fmt.Sprintf("/api/step-sections/%d", h.fx.Section.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSectionChatStreams(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.model.Enqueue(testutil.TextRound("Use ", "sqlite."))
	path := fmt.Sprintf("/api/step-sections/%d/chat", h.fx.Section.ID)

	rec := h.as(http.MethodPost, path, map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "earlier"},
			{"role": "user", "content": "which database?"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Use sqlite.", rec.Body.String())
	assert.True(t, rec.Flushed)

	rec = h.as(http.MethodGet, path+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[historyBody](t, rec)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "which database?", history.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, history.Messages[1].Role)
	assert.Equal(t, "Use sqlite.", history.Messages[1].Content)
}

func TestSectionChatErrorsBeforeStreaming(t *testing.T) {
	h := newHarness(t, defaultConfig())

	rec := h.as(http.MethodPost, "/api/step-sections/9999/chat", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Section not found"}`, rec.Body.String())

	rec = h.as(http.MethodPost, fmt.Sprintf("/api/step-sections/%d/chat", h.fx.Section.ID), map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.as(http.MethodGet, "/api/step-sections/9999/chat/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmptySectionHistory(t *testing.T) {
	h := newHarness(t, defaultConfig())

	rec := h.as(http.MethodGet, fmt.Sprintf("/api/step-sections/%d/chat/history", h.fx.Section.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestPlanningChat(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.model.Enqueue(testutil.TextRound("Start with persistence."))

	rec := h.as(http.MethodPost, "/api/steps/chat", map[string]any{"ideaId": h.fx.Idea.ID, "message": "plan it"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Start with persistence.", rec.Body.String())

	rec = h.as(http.MethodGet, fmt.Sprintf("/api/steps/chat/history?ideaId=%d", h.fx.Idea.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[historyBody](t, rec).Messages, 2)

	rec = h.as(http.MethodPost, "/api/steps/chat", map[string]any{"message": "no idea"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestChatPassthrough(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.model.Enqueue(testutil.TextRound("Hello there."))

	rec := h.as(http.MethodPost, "/api/test-chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello there.", rec.Body.String())

	reqs := h.model.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, ai.TestChatSystemPrompt, reqs[0].Messages[0].Content)
}

func TestChatRateLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.ChatRatePerMin = 1
	h := newHarness(t, cfg)
	h.model.Enqueue(testutil.TextRound("one"), testutil.TextRound("two"))

	rec := h.as(http.MethodPost, "/api/test-chat", map[string]any{"message": "first"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.as(http.MethodPost, "/api/test-chat", map[string]any{"message": "second"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
