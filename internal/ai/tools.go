package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/internal/telemetry"
)

// Tool names exposed to the model.
const (
	ToolCreateTodo      = "createTodo"
	ToolUpdateTodo      = "updateTodo"
	ToolDeleteTodo      = "deleteTodo"
	ToolGetCurrentTodos = "getCurrentTodos"
)

// TodoService is the subset of steps.Service the tools need.
type TodoService interface {
	ListTodos(ctx context.Context, sectionID int64) ([]model.StepTodo, error)
	CreateTodo(ctx context.Context, sectionID int64, title, description string) (*steps.Change, error)
	UpdateTodo(ctx context.Context, sectionID, todoID int64, patch model.TodoPatch) (*steps.Change, error)
	DeleteTodo(ctx context.Context, sectionID, todoID int64) (*steps.Change, error)
}

// ToolResult is the structured outcome of one tool call. String renders
// it for the model.
type ToolResult struct {
	Tool   string
	OK     bool
	TodoID int64
	Todo   *model.StepTodo
	Todos  []model.StepTodo

	// Err is a short, caller-safe reason when OK is false.
	Err string
}

// String formats the result as the text the model sees.
func (r ToolResult) String() string {
	if !r.OK {
		return r.Err
	}
	switch r.Tool {
	case ToolCreateTodo:
		return fmt.Sprintf("Created todo %q (id %d).", r.Todo.Title, r.Todo.ID)
	case ToolUpdateTodo:
		return fmt.Sprintf("Updated todo %q (id %d).", r.Todo.Title, r.Todo.ID)
	case ToolDeleteTodo:
		return fmt.Sprintf("Deleted todo %q (id %d).", r.Todo.Title, r.Todo.ID)
	case ToolGetCurrentTodos:
		if len(r.Todos) == 0 {
			return "No todos found in this section."
		}
		return "Current todos:\n" + FormatTodoList(r.Todos, true)
	default:
		return ""
	}
}

// Toolbox executes the todo tools against one section.
type Toolbox struct {
	todos     TodoService
	sectionID int64
	log       *slog.Logger
}

// NewToolbox binds the tools to sectionID.
func NewToolbox(todos TodoService, sectionID int64, log *slog.Logger) *Toolbox {
	return &Toolbox{todos: todos, sectionID: sectionID, log: log}
}

// Execute runs the named tool with JSON arguments. It never returns an
// error: every failure becomes a ToolResult with OK=false so the
// conversation can carry on.
func (t *Toolbox) Execute(ctx context.Context, name, arguments string) ToolResult {
	ctx, span := telemetry.Tracer().Start(ctx, "ai.tool")
	span.SetAttributes(telemetry.AttrToolName.String(name), telemetry.AttrSectionID.Int64(t.sectionID))
	defer span.End()

	var res ToolResult
	switch name {
	case ToolCreateTodo:
		res = t.createTodo(ctx, arguments)
	case ToolUpdateTodo:
		res = t.updateTodo(ctx, arguments)
	case ToolDeleteTodo:
		res = t.deleteTodo(ctx, arguments)
	case ToolGetCurrentTodos:
		res = t.getCurrentTodos(ctx)
	default:
		res = ToolResult{Tool: name, Err: fmt.Sprintf("Unknown tool: %s", name)}
	}

	telemetry.ToolCalls.WithLabelValues(name, fmt.Sprint(res.OK)).Inc()
	if !res.OK {
		t.log.Warn("tool call failed", "tool", name, "section_id", t.sectionID, "reason", res.Err)
	}
	return res
}

func (t *Toolbox) createTodo(ctx context.Context, arguments string) ToolResult {
	var args struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeArgs(arguments, &args); err != nil {
		return ToolResult{Tool: ToolCreateTodo, Err: "Could not create todo: " + err.Error()}
	}
	if strings.TrimSpace(args.Title) == "" {
		return ToolResult{Tool: ToolCreateTodo, Err: "Could not create todo: title is required."}
	}

	change, err := t.todos.CreateTodo(ctx, t.sectionID, args.Title, args.Description)
	if err != nil {
		return t.failure(ToolCreateTodo, "Could not create todo", 0, err)
	}
	return ToolResult{Tool: ToolCreateTodo, OK: true, TodoID: change.Todo.ID, Todo: change.Todo}
}

func (t *Toolbox) updateTodo(ctx context.Context, arguments string) ToolResult {
	var args struct {
		TodoID      int64   `json:"todoId"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		IsCompleted *bool   `json:"isCompleted"`
	}
	if err := decodeArgs(arguments, &args); err != nil {
		return ToolResult{Tool: ToolUpdateTodo, Err: "Could not update todo: " + err.Error()}
	}
	if args.TodoID <= 0 {
		return ToolResult{Tool: ToolUpdateTodo, Err: "Could not update todo: todoId is required."}
	}

	patch := model.TodoPatch{Title: args.Title, Description: args.Description, IsCompleted: args.IsCompleted}
	change, err := t.todos.UpdateTodo(ctx, t.sectionID, args.TodoID, patch)
	if err != nil {
		return t.failure(ToolUpdateTodo, "Could not update todo", args.TodoID, err)
	}
	return ToolResult{Tool: ToolUpdateTodo, OK: true, TodoID: change.Todo.ID, Todo: change.Todo}
}

func (t *Toolbox) deleteTodo(ctx context.Context, arguments string) ToolResult {
	var args struct {
		TodoID int64 `json:"todoId"`
	}
	if err := decodeArgs(arguments, &args); err != nil {
		return ToolResult{Tool: ToolDeleteTodo, Err: "Could not delete todo: " + err.Error()}
	}
	if args.TodoID <= 0 {
		return ToolResult{Tool: ToolDeleteTodo, Err: "Could not delete todo: todoId is required."}
	}

	change, err := t.todos.DeleteTodo(ctx, t.sectionID, args.TodoID)
	if err != nil {
		return t.failure(ToolDeleteTodo, "Could not delete todo", args.TodoID, err)
	}
	return ToolResult{Tool: ToolDeleteTodo, OK: true, TodoID: change.Todo.ID, Todo: change.Todo}
}

func (t *Toolbox) getCurrentTodos(ctx context.Context) ToolResult {
	todos, err := t.todos.ListTodos(ctx, t.sectionID)
	if err != nil {
		return t.failure(ToolGetCurrentTodos, "Could not list todos", 0, err)
	}
	return ToolResult{Tool: ToolGetCurrentTodos, OK: true, Todos: todos}
}

// failure maps a service error to a soft result. Only not-found and
// validation reasons are shown to the model; anything else is logged.
func (t *Toolbox) failure(tool, prefix string, todoID int64, err error) ToolResult {
	res := ToolResult{Tool: tool, TodoID: todoID}
	switch {
	case errors.Is(err, store.ErrNotFound) && tool == ToolCreateTodo:
		res.Err = prefix + ": this section no longer exists."
	case errors.Is(err, store.ErrNotFound):
		res.Err = fmt.Sprintf("Todo %d not found in this section.", todoID)
	case errors.Is(err, steps.ErrEmptyTitle):
		res.Err = prefix + ": title is required."
	default:
		t.log.Error("tool call error", "tool", tool, "section_id", t.sectionID, "todo_id", todoID, "error", err)
		res.Err = prefix + ": an internal error occurred."
	}
	return res
}

func decodeArgs(arguments string, dest any) error {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), dest); err != nil {
		return fmt.Errorf("invalid arguments")
	}
	return nil
}

// ToolDefinitions returns the tool specifications sent with each request.
func ToolDefinitions() []openai.Tool {
	defs := []struct {
		name, description string
		schema            string
	}{
		{
			name:        ToolCreateTodo,
			description: "Create a new todo in the current section.",
			schema: `{
				"type": "object",
				"properties": {
					"title": {"type": "string", "description": "Short title of the todo"},
					"description": {"type": "string", "description": "Optional details"}
				},
				"required": ["title"]
			}`,
		},
		{
			name:        ToolUpdateTodo,
			description: "Update an existing todo in the current section. Only the supplied fields change.",
			schema: `{
				"type": "object",
				"properties": {
					"todoId": {"type": "integer", "description": "Id of the todo to update"},
					"title": {"type": "string"},
					"description": {"type": "string"},
					"isCompleted": {"type": "boolean"}
				},
				"required": ["todoId"]
			}`,
		},
		{
			name:        ToolDeleteTodo,
			description: "Delete a todo from the current section.",
			schema: `{
				"type": "object",
				"properties": {
					"todoId": {"type": "integer", "description": "Id of the todo to delete"}
				},
				"required": ["todoId"]
			}`,
		},
		{
			name:        ToolGetCurrentTodos,
			description: "List the todos currently in this section, with their ids.",
			schema:      `{"type": "object", "properties": {}}`,
		},
	}

	tools := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.name,
				Description: d.description,
				Parameters:  json.RawMessage(d.schema),
			},
		})
	}
	return tools
}
