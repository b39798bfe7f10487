package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/codes"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/internal/telemetry"
)

// Emit receives each text delta as it streams from the model.
type Emit func(delta string) error

// TurnResult summarises a completed chat turn.
type TurnResult struct {
	// Text is everything the model streamed, across all rounds.
	Text string

	ToolResults []ToolResult

	// Assistant is the persisted reply, nil for unpersisted chats or
	// when there was nothing to store.
	Assistant *model.ChatMessage

	Rounds int
}

// Engine runs chat turns: it loads context, persists the user's message,
// streams the model's reply, executes tool calls, and persists the reply.
type Engine struct {
	model ChatModel
	store store.Store
	todos TodoService
	cfg   model.AIConfig
	log   *slog.Logger
}

// NewEngine creates a chat engine. m may be nil when no API key is
// configured; history reads still work and chat turns fail with ErrNoAPIKey.
func NewEngine(m ChatModel, st store.Store, todos TodoService, cfg model.AIConfig, log *slog.Logger) *Engine {
	if cfg.MaxSteps < 1 {
		cfg.MaxSteps = 1
	}
	return &Engine{model: m, store: st, todos: todos, cfg: cfg, log: log}
}

// SectionHistory returns a section's chat log, oldest first.
func (e *Engine) SectionHistory(ctx context.Context, userID string, sectionID int64) ([]HistoryEntry, error) {
	if _, err := e.store.GetSection(ctx, userID, sectionID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListChats(ctx, model.ScopeSection, sectionID)
	if err != nil {
		return nil, err
	}
	return Reconstruct(rows), nil
}

// PlanningHistory returns an idea's planning chat log, oldest first.
func (e *Engine) PlanningHistory(ctx context.Context, userID string, ideaID int64) ([]HistoryEntry, error) {
	if _, err := e.store.GetIdea(ctx, userID, ideaID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListChats(ctx, model.ScopePlanning, ideaID)
	if err != nil {
		return nil, err
	}
	return Reconstruct(rows), nil
}

// SectionChat runs one turn of a section chat. Errors returned before
// the first Emit call mean nothing was streamed.
func (e *Engine) SectionChat(ctx context.Context, userID string, sectionID int64, message string, emit Emit) (*TurnResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ai.section_chat")
	span.SetAttributes(telemetry.AttrSectionID.Int64(sectionID), telemetry.AttrModel.String(e.cfg.Model))
	defer span.End()

	result, err := e.sectionChat(ctx, userID, sectionID, message, emit)
	e.observe(model.ScopeSection, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat turn failed")
	}
	return result, err
}

func (e *Engine) sectionChat(ctx context.Context, userID string, sectionID int64, message string, emit Emit) (*TurnResult, error) {
	if e.model == nil {
		return nil, ErrNoAPIKey
	}

	sc, err := e.store.GetSection(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}
	todos, err := e.store.ListTodos(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.ListChats(ctx, model.ScopeSection, sectionID)
	if err != nil {
		return nil, err
	}
	history := Window(Reconstruct(rows), e.cfg.HistoryWindow)

	if _, err := e.store.AppendChat(ctx, model.ScopeSection, sectionID, model.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	conv := NewConversation(SectionSystemPrompt(*sc, todos, e.cfg.ToolsEnabled))
	conv.AddHistory(history)
	conv.Add(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	var toolbox *Toolbox
	if e.cfg.ToolsEnabled {
		toolbox = NewToolbox(e.todos, sectionID, e.log.With("section_id", sectionID))
	}

	result, err := e.run(ctx, conv, toolbox, emit)
	if err != nil {
		return nil, err
	}

	reply := result.Text
	if strings.TrimSpace(reply) == "" && len(result.ToolResults) > 0 {
		parts := make([]string, 0, len(result.ToolResults))
		for _, r := range result.ToolResults {
			parts = append(parts, r.String())
		}
		reply = strings.Join(parts, "\n")
	}
	if strings.TrimSpace(reply) == "" {
		e.log.Warn("model returned an empty reply", "section_id", sectionID)
		return result, nil
	}

	result.Assistant, err = e.store.AppendChat(ctx, model.ScopeSection, sectionID, model.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("persisting assistant message: %w", err)
	}
	return result, nil
}

// PlanningChat runs one turn of an idea's planning chat. The prompt embeds
// a trailing window of the log as plain text; no tools are offered.
func (e *Engine) PlanningChat(ctx context.Context, userID string, ideaID int64, message string, emit Emit) (*TurnResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ai.planning_chat")
	span.SetAttributes(telemetry.AttrIdeaID.Int64(ideaID), telemetry.AttrModel.String(e.cfg.Model))
	defer span.End()

	result, err := e.planningChat(ctx, userID, ideaID, message, emit)
	e.observe(model.ScopePlanning, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat turn failed")
	}
	return result, err
}

func (e *Engine) planningChat(ctx context.Context, userID string, ideaID int64, message string, emit Emit) (*TurnResult, error) {
	if e.model == nil {
		return nil, ErrNoAPIKey
	}

	idea, err := e.store.GetIdea(ctx, userID, ideaID)
	if err != nil {
		return nil, err
	}
	sections, err := e.store.ListSections(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.RecentChats(ctx, model.ScopePlanning, ideaID, e.cfg.PlanningWindow)
	if err != nil {
		return nil, err
	}
	recent := Chronological(Reconstruct(rows))

	if _, err := e.store.AppendChat(ctx, model.ScopePlanning, ideaID, model.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	conv := NewConversation(PlanningSystemPrompt(*idea, sections, recent))
	conv.Add(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	result, err := e.run(ctx, conv, nil, emit)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Text) == "" {
		e.log.Warn("model returned an empty reply", "idea_id", ideaID)
		return result, nil
	}

	result.Assistant, err = e.store.AppendChat(ctx, model.ScopePlanning, ideaID, model.RoleAssistant, result.Text)
	if err != nil {
		return nil, fmt.Errorf("persisting assistant message: %w", err)
	}
	return result, nil
}

// Passthrough streams a reply to a single message with a fixed system
// prompt. Nothing is read from or written to the store.
func (e *Engine) Passthrough(ctx context.Context, message string, emit Emit) (*TurnResult, error) {
	if e.model == nil {
		return nil, ErrNoAPIKey
	}

	conv := NewConversation(TestChatSystemPrompt)
	conv.Add(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	result, err := e.run(ctx, conv, nil, emit)
	e.observe("test", err)
	return result, err
}

// run drives the model until it answers without tool calls or the round
// budget is spent. The last round is sent without tools so the model has
// to answer in text.
func (e *Engine) run(ctx context.Context, conv *Conversation, toolbox *Toolbox, emit Emit) (*TurnResult, error) {
	result := &TurnResult{}
	var text strings.Builder

	for round := 0; round < e.cfg.MaxSteps; round++ {
		offerTools := toolbox != nil && round < e.cfg.MaxSteps-1

		req := openai.ChatCompletionRequest{
			Model:     e.cfg.Model,
			MaxTokens: e.cfg.MaxTokens,
			Messages:  conv.Messages(),
		}
		if offerTools {
			req.Tools = ToolDefinitions()
		}

		roundEmit := emit
		if emit != nil && text.Len() > 0 {
			roundEmit = separated(emit)
		}

		roundCtx, span := telemetry.Tracer().Start(ctx, "ai.model_round")
		span.SetAttributes(telemetry.AttrRound.Int(round))
		content, calls, err := e.streamRound(roundCtx, req, roundEmit)
		span.End()
		telemetry.ModelRounds.Inc()
		result.Rounds++
		if err != nil {
			return nil, err
		}
		if content != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(content)
		}

		if len(calls) == 0 || !offerTools {
			break
		}

		conv.Add(openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   content,
			ToolCalls: calls,
		})
		for _, call := range calls {
			res := toolbox.Execute(ctx, call.Function.Name, call.Function.Arguments)
			result.ToolResults = append(result.ToolResults, res)
			conv.Add(openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    res.String(),
				ToolCallID: call.ID,
			})
		}
	}

	result.Text = text.String()
	return result, nil
}

// separated writes a newline ahead of the first delta so text from a later
// round does not run into the previous one.
func separated(emit Emit) Emit {
	started := false
	return func(delta string) error {
		if !started {
			started = true
			if err := emit("\n"); err != nil {
				return err
			}
		}
		return emit(delta)
	}
}

// streamRound makes one streaming call, forwarding text deltas to emit and
// reassembling tool calls from their fragments.
func (e *Engine) streamRound(ctx context.Context, req openai.ChatCompletionRequest, emit Emit) (string, []openai.ToolCall, error) {
	stream, err := e.model.Stream(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("starting model stream: %w", err)
	}
	defer stream.Close()

	var text strings.Builder
	acc := newToolCallAccumulator()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("reading model stream: %w", err)
		}

		for _, choice := range resp.Choices {
			if delta := choice.Delta.Content; delta != "" {
				text.WriteString(delta)
				if emit != nil {
					if err := emit(delta); err != nil {
						return "", nil, fmt.Errorf("writing reply: %w", err)
					}
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				acc.add(tc)
			}
		}
	}

	return text.String(), acc.calls(), nil
}

func (e *Engine) observe(scope model.ChatScope, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	telemetry.ChatTurns.WithLabelValues(string(scope), outcome).Inc()
}

// toolCallAccumulator merges streamed tool-call fragments by index, or by
// position when the provider sends none.
type toolCallAccumulator struct {
	byIndex map[int]*openai.ToolCall
	order   []int
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*openai.ToolCall)}
}

func (a *toolCallAccumulator) add(fragment openai.ToolCall) {
	idx := a.slot(fragment)

	call, ok := a.byIndex[idx]
	if !ok {
		call = &openai.ToolCall{Type: openai.ToolTypeFunction}
		a.byIndex[idx] = call
		a.order = append(a.order, idx)
	}
	if fragment.ID != "" {
		call.ID = fragment.ID
	}
	if fragment.Type != "" {
		call.Type = fragment.Type
	}
	if fragment.Function.Name != "" {
		call.Function.Name = fragment.Function.Name
	}
	call.Function.Arguments += fragment.Function.Arguments
}

// slot picks the call a fragment belongs to. Some providers omit the
// index; such a fragment continues the last call unless it carries an id
// of its own.
func (a *toolCallAccumulator) slot(fragment openai.ToolCall) int {
	if fragment.Index != nil {
		return *fragment.Index
	}
	if n := len(a.order); n > 0 {
		last := a.order[n-1]
		if fragment.ID == "" || fragment.ID == a.byIndex[last].ID {
			return last
		}
	}

	idx := len(a.order)
	for {
		if _, taken := a.byIndex[idx]; !taken {
			return idx
		}
		idx++
	}
}

func (a *toolCallAccumulator) calls() []openai.ToolCall {
	out := make([]openai.ToolCall, 0, len(a.order))
	for i, idx := range a.order {
		call := *a.byIndex[idx]
		if call.Function.Name == "" {
			continue
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%d", i)
		}
		out = append(out, call)
	}
	return out
}
