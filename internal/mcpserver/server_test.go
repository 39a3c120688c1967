package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	feedbackservice "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

type stubRequester struct {
	got    feedbackservice.Request
	result feedbackservice.Result
	err    error
}

func (s *stubRequester) RequestFeedback(_ context.Context, req feedbackservice.Request) (feedbackservice.Result, error) {
	s.got = req
	return s.result, s.err
}

func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolIsListed(t *testing.T) {
	session := connect(t, New(&stubRequester{}))

	list, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, list.Tools, 1)
	assert.Equal(t, ToolName, list.Tools[0].Name)
}

func TestCollectFeedbackAppliesDefaults(t *testing.T) {
	stub := &stubRequester{result: feedbackservice.Result{
		SessionID: "s1",
		Status:    feedback.StatusCompleted,
		Response:  &feedback.Response{Text: "ship it"},
	}}
	session := connect(t, New(stub))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"work_summary": "Deployed v2"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "ship it")

	assert.Equal(t, "Deployed v2", stub.got.WorkSummary)
	assert.True(t, stub.got.RequireResponse)
	assert.Zero(t, stub.got.Timeout)
	assert.Empty(t, stub.got.SessionID)
}

func TestCollectFeedbackPassesArguments(t *testing.T) {
	stub := &stubRequester{result: feedbackservice.Result{SessionID: "abc", Status: feedback.StatusWaiting, FeedbackURL: "http://x/ui?session=abc"}}
	session := connect(t, New(stub))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: ToolName,
		Arguments: map[string]any{
			"work_summary":     "Wrote docs",
			"timeout":          30,
			"session_id":       "abc",
			"require_response": false,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "http://x/ui?session=abc")

	assert.Equal(t, 30*time.Second, stub.got.Timeout)
	assert.Equal(t, "abc", stub.got.SessionID)
	assert.False(t, stub.got.RequireResponse)
}

func TestCollectFeedbackReportsErrors(t *testing.T) {
	stub := &stubRequester{err: errors.New("session id already exists")}
	session := connect(t, New(stub))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"work_summary": "x", "session_id": "dup"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "already exists")
}

func TestCollectFeedbackTimesOutEndToEnd(t *testing.T) {
	store := feedbackservice.NewStore()
	manager := feedbackservice.NewManager(store, push.NewRegistry(), feedbackservice.Config{BaseURL: "http://localhost:8000"})
	session := connect(t, New(manager))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"work_summary": "Deployed v2", "timeout": 1, "session_id": "e2e"},
	})
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "Timed out")
	assert.Contains(t, text, "session=e2e")

	got, ok := store.Get("e2e")
	require.True(t, ok)
	assert.Equal(t, feedback.StatusExpired, got.Status)
}
