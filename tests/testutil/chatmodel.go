package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/nhle/buildfast/internal/ai"
)

// Round is one scripted model response. Err, when set, is returned by
// Recv after all chunks have been delivered.
type Round struct {
	Chunks []openai.ChatCompletionStreamResponse
	Err    error
}

// ScriptedModel is an ai.ChatModel that replays Rounds in order and
// records every request it receives. Once the script runs out it streams
// an empty reply.
type ScriptedModel struct {
	mu       sync.Mutex
	rounds   []Round
	requests []openai.ChatCompletionRequest

	// OpenErr fails Stream itself.
	OpenErr error
}

// NewScriptedModel creates a model that plays rounds in order.
func NewScriptedModel(rounds ...Round) *ScriptedModel {
	return &ScriptedModel{rounds: rounds}
}

// Stream implements ai.ChatModel.
func (m *ScriptedModel) Stream(ctx context.Context, req openai.ChatCompletionRequest) (ai.ChatStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	var round Round
	if len(m.rounds) > 0 {
		round = m.rounds[0]
		m.rounds = m.rounds[1:]
	}
	return &scriptedStream{ctx: ctx, round: round}, nil
}

// Enqueue appends rounds to the script.
func (m *ScriptedModel) Enqueue(rounds ...Round) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rounds = append(m.rounds, rounds...)
}

// Requests returns a copy of the requests seen so far.
func (m *ScriptedModel) Requests() []openai.ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]openai.ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

type scriptedStream struct {
	ctx   context.Context
	round Round
	pos   int
}

func (s *scriptedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if err := s.ctx.Err(); err != nil {
		return openai.ChatCompletionStreamResponse{}, err
	}
	if s.pos < len(s.round.Chunks) {
		chunk := s.round.Chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.round.Err != nil {
		return openai.ChatCompletionStreamResponse{}, s.round.Err
	}
	return openai.ChatCompletionStreamResponse{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

// TextRound streams each part as its own delta.
func TextRound(parts ...string) Round {
	chunks := make([]openai.ChatCompletionStreamResponse, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, openai.ChatCompletionStreamResponse{
			Choices: []openai.ChatCompletionStreamChoice{{
				Delta: openai.ChatCompletionStreamChoiceDelta{Content: p},
			}},
		})
	}
	return Round{Chunks: chunks}
}

// ToolCall describes one call for ToolRound.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolRound streams the calls the way providers do: a header fragment with
// id and name, then the arguments split across two fragments.
func ToolRound(calls ...ToolCall) Round {
	var chunks []openai.ChatCompletionStreamResponse
	for i, c := range calls {
		idx := i
		half := len(c.Arguments) / 2
		fragments := []openai.ToolCall{
			{Index: &idx, ID: c.ID, Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: c.Name}},
			{Index: &idx, Function: openai.FunctionCall{Arguments: c.Arguments[:half]}},
			{Index: &idx, Function: openai.FunctionCall{Arguments: c.Arguments[half:]}},
		}
		for _, f := range fragments {
			chunks = append(chunks, openai.ChatCompletionStreamResponse{
				Choices: []openai.ChatCompletionStreamChoice{{
					Delta: openai.ChatCompletionStreamChoiceDelta{ToolCalls: []openai.ToolCall{f}},
				}},
			})
		}
	}
	return Round{Chunks: chunks}
}

// UnindexedToolRound streams the calls without fragment indexes, the way
// some OpenAI-compatible providers do: the id and name ride on the first
// fragment and the rest of the arguments follow in bare fragments.
func UnindexedToolRound(calls ...ToolCall) Round {
	var chunks []openai.ChatCompletionStreamResponse
	for _, c := range calls {
		half := len(c.Arguments) / 2
		fragments := []openai.ToolCall{
			{ID: c.ID, Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: c.Name, Arguments: c.Arguments[:half]}},
			{Function: openai.FunctionCall{Arguments: c.Arguments[half:]}},
		}
		for _, f := range fragments {
			chunks = append(chunks, openai.ChatCompletionStreamResponse{
				Choices: []openai.ChatCompletionStreamChoice{{
					Delta: openai.ChatCompletionStreamChoiceDelta{ToolCalls: []openai.ToolCall{f}},
				}},
			})
		}
	}
	return Round{Chunks: chunks}
}

// WithText prefixes a round with streamed text deltas.
func WithText(r Round, parts ...string) Round {
	text := TextRound(parts...)
	r.Chunks = append(text.Chunks, r.Chunks...)
	return r
}
