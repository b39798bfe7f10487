// Package mcpserver exposes section chat history and todos as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/session"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
)

// Tool names.
const (
	ToolEcho               = "echo"
	ToolSectionChatHistory = "getSectionChatHistory"
	ToolListSectionTodos   = "listSectionTodos"
	ToolCreateSectionTodo  = "createSectionTodo"
)

// Server wraps an MCP server bound to one user. An empty user id means
// the caller has no session; only echo works then.
type Server struct {
	store  store.Store
	steps  *steps.Service
	userID string
	log    *slog.Logger
	server *mcp.Server
}

// New creates an MCP server acting on behalf of userID.
func New(st store.Store, svc *steps.Service, userID, version string, log *slog.Logger) *Server {
	s := &Server{store: st, steps: svc, userID: userID, log: log}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "buildfast",
		Version: version,
	}, nil)
	s.registerTools()

	return s
}

// MCP returns the underlying server for custom transports.
func (s *Server) MCP() *mcp.Server { return s.server }

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport. Each request gets a
// server bound to the session found on it.
func HTTPHandler(st store.Store, svc *steps.Service, sessions *session.Provider, version string, log *slog.Logger) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		userID, _ := sessions.UserID(r)
		return New(st, svc, userID, version, log).server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolEcho,
		Description: "Echo a message back. Useful for checking the connection.",
	}, s.handleEcho)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSectionChatHistory,
		Description: "Read the chat history of a step section, oldest first.",
	}, s.handleSectionChatHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolListSectionTodos,
		Description: "List the todos of a step section in display order.",
	}, s.handleListSectionTodos)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolCreateSectionTodo,
		Description: "Append a todo to a step section.",
	}, s.handleCreateSectionTodo)
}

// EchoArgs is the input for echo.
type EchoArgs struct {
	Message string `json:"message" jsonschema:"Text to echo back"`
}

// SectionArgs identifies a section. Ids are strings on the wire.
type SectionArgs struct {
	SectionID string `json:"sectionId,omitempty" jsonschema:"Id of the step section"`
}

// CreateTodoArgs is the input for createSectionTodo.
type CreateTodoArgs struct {
	SectionID   string `json:"sectionId,omitempty" jsonschema:"Id of the step section"`
	Title       string `json:"title,omitempty" jsonschema:"Title of the new todo"`
	Description string `json:"description,omitempty" jsonschema:"Optional details"`
}

func (s *Server) handleEcho(_ context.Context, _ *mcp.CallToolRequest, args EchoArgs) (*mcp.CallToolResult, any, error) {
	return textResult("Tool echo: " + args.Message), nil, nil
}

func (s *Server) handleSectionChatHistory(ctx context.Context, _ *mcp.CallToolRequest, args SectionArgs) (*mcp.CallToolResult, any, error) {
	if s.userID == "" {
		return errorResult("Unauthorized"), nil, nil
	}
	sectionID, res := s.ownedSection(ctx, args.SectionID, "Section ID is required")
	if res != nil {
		return res, nil, nil
	}

	rows, err := s.store.ListChats(ctx, model.ScopeSection, sectionID)
	if err != nil {
		return s.internal(ToolSectionChatHistory, err), nil, nil
	}
	entries := ai.Reconstruct(rows)

	content := make([]mcp.Content, 0, len(entries))
	for _, e := range entries {
		content = append(content, &mcp.TextContent{Text: fmt.Sprintf("%s: %s", e.Role, e.Content)})
	}
	return &mcp.CallToolResult{
		Content:           content,
		StructuredContent: map[string]any{"messages": entries},
	}, nil, nil
}

func (s *Server) handleListSectionTodos(ctx context.Context, _ *mcp.CallToolRequest, args SectionArgs) (*mcp.CallToolResult, any, error) {
	if s.userID == "" {
		return errorResult("Unauthorized"), nil, nil
	}
	sectionID, res := s.ownedSection(ctx, args.SectionID, "Section ID is required")
	if res != nil {
		return res, nil, nil
	}

	todos, err := s.steps.ListTodos(ctx, sectionID)
	if err != nil {
		return s.internal(ToolListSectionTodos, err), nil, nil
	}
	result := textResult(fmt.Sprintf("Found %d todos.", len(todos)))
	result.StructuredContent = map[string]any{"todos": todos}
	return result, nil, nil
}

func (s *Server) handleCreateSectionTodo(ctx context.Context, _ *mcp.CallToolRequest, args CreateTodoArgs) (*mcp.CallToolResult, any, error) {
	if s.userID == "" {
		return errorResult("Unauthorized"), nil, nil
	}
	if strings.TrimSpace(args.Title) == "" {
		return errorResult("Section ID and title are required"), nil, nil
	}
	sectionID, res := s.ownedSection(ctx, args.SectionID, "Section ID and title are required")
	if res != nil {
		return res, nil, nil
	}

	change, err := s.steps.CreateTodo(ctx, sectionID, args.Title, args.Description)
	if err != nil {
		return s.internal(ToolCreateSectionTodo, err), nil, nil
	}
	result := textResult("Todo created: " + change.Todo.Title)
	result.StructuredContent = map[string]any{"todo": change.Todo}
	return result, nil, nil
}

// ownedSection parses raw and checks the section belongs to the caller.
// A non-nil result is the error to return to the client.
func (s *Server) ownedSection(ctx context.Context, raw, missing string) (int64, *mcp.CallToolResult) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errorResult(missing)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorResult("Invalid section ID")
	}
	if _, err := s.store.GetSection(ctx, s.userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, errorResult("Section not found")
		}
		return 0, s.internal("section lookup", err)
	}
	return id, nil
}

func (s *Server) internal(tool string, err error) *mcp.CallToolResult {
	s.log.Error("mcp tool failed", "tool", tool, "user_id", s.userID, "error", err)
	return errorResult("Internal server error")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}
