package mcpserver_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/mcpserver"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/session"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/tests/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connect starts srv over in-memory transports and returns a client session.
func connect(t *testing.T, srv *mcpserver.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func texts(res *mcp.CallToolResult) []string {
	out := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			out = append(out, tc.Text)
		}
	}
	return out
}

func setup(t *testing.T) (*store.SQLStore, *steps.Service, testutil.Fixture) {
	t.Helper()

	s := testutil.NewTestStore(t)
	return s, steps.NewService(s), testutil.SeedFixture(t, s, "mcp@example.com")
}

func TestToolsAreListed(t *testing.T) {
	s, svc, fx := setup(t)
	cs := connect(t, mcpserver.New(s, svc, fx.User.ID, "test", discard()))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		mcpserver.ToolEcho,
		mcpserver.ToolSectionChatHistory,
		mcpserver.ToolListSectionTodos,
		mcpserver.ToolCreateSectionTodo,
	}, names)
}

func TestEchoWorksWithoutSession(t *testing.T) {
	s, svc, _ := setup(t)
	cs := connect(t, mcpserver.New(s, svc, "", "test", discard()))

	res := call(t, cs, mcpserver.ToolEcho, map[string]any{"message": "ping"})
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"Tool echo: ping"}, texts(res))

	res = call(t, cs, mcpserver.ToolListSectionTodos, map[string]any{"sectionId": "1"})
	assert.True(t, res.IsError)
	assert.Equal(t, []string{"Unauthorized"}, texts(res))
}

func TestCreateAndListTodos(t *testing.T) {
	s, svc, fx := setup(t)
	cs := connect(t, mcpserver.New(s, svc, fx.User.ID, "test", discard()))
	sectionID := strconv.FormatInt(fx.Section.ID, 10)

	res := call(t, cs, mcpserver.ToolCreateSectionTodo, map[string]any{"sectionId": sectionID, "title": "Pick a DB"})
	require.False(t, res.IsError, texts(res))
	assert.Equal(t, []string{"Todo created: Pick a DB"}, texts(res))

	res = call(t, cs, mcpserver.ToolListSectionTodos, map[string]any{"sectionId": sectionID})
	require.False(t, res.IsError)
	assert.Equal(t, []string{"Found 1 todos."}, texts(res))
	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Len(t, structured["todos"], 1)

	todos, err := s.ListTodos(context.Background(), fx.Section.ID)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, 1, todos[0].Order)
}

func TestArgumentErrors(t *testing.T) {
	s, svc, fx := setup(t)
	cs := connect(t, mcpserver.New(s, svc, fx.User.ID, "test", discard()))

	res := call(t, cs, mcpserver.ToolListSectionTodos, map[string]any{})
	assert.True(t, res.IsError)
	assert.Equal(t, []string{"Section ID is required"}, texts(res))

	res = call(t, cs, mcpserver.ToolCreateSectionTodo, map[string]any{"sectionId": "1"})
	assert.True(t, res.IsError)
	assert.Equal(t, []string{"Section ID and title are required"}, texts(res))

	res = call(t, cs, mcpserver.ToolListSectionTodos, map[string]any{"sectionId": "9999"})
	assert.True(t, res.IsError)
	assert.Equal(t, []string{"Section not found"}, texts(res))
}

func TestSectionChatHistory(t *testing.T) {
	s, svc, fx := setup(t)
	ctx := context.Background()
	_, err := s.AppendChat(ctx, model.ScopeSection, fx.Section.ID, model.RoleUser, "add tests")
	require.NoError(t, err)
	_, err = s.AppendChat(ctx, model.ScopeSection, fx.Section.ID, model.RoleAssistant, "Added.")
	require.NoError(t, err)

	cs := connect(t, mcpserver.New(s, svc, fx.User.ID, "test", discard()))
	res := call(t, cs, mcpserver.ToolSectionChatHistory, map[string]any{"sectionId": strconv.FormatInt(fx.Section.ID, 10)})
	require.False(t, res.IsError)
	assert.Equal(t, []string{"user: add tests", "assistant: Added."}, texts(res))
}

// bearerTransport attaches a session token to every request.
type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(r)
}

func TestHTTPHandlerResolvesSession(t *testing.T) {
	s, svc, fx := setup(t)
	sessions, err := session.NewProvider("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)
	token, err := sessions.Mint(fx.User.ID)
	require.NoError(t, err)

	srv := httptest.NewServer(mcpserver.HTTPHandler(s, svc, sessions, "test", discard()))
	t.Cleanup(srv.Close)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{
		Endpoint:   srv.URL,
		HTTPClient: &http.Client{Transport: bearerTransport{token: token}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	res := call(t, cs, mcpserver.ToolListSectionTodos, map[string]any{"sectionId": strconv.FormatInt(fx.Section.ID, 10)})
	require.False(t, res.IsError, texts(res))
	assert.Equal(t, []string{"Found 0 todos."}, texts(res))
}
