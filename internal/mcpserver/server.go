// Package mcpserver exposes feedback collection as an MCP tool.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"

	feedbackservice "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
)

const (
	ServerName    = "feedback-collector"
	ServerVersion = "2.0.0"
	ToolName      = "collect_feedback"
)

const toolDescription = "Collect feedback from the user on completed work. Use this whenever you need the user " +
	"to review, confirm or answer a question. The work summary is shown in the feedback page; the call " +
	"blocks until the user replies or the timeout elapses, then returns the reply or a link to answer later."

// Requester is the part of the lifecycle manager the tool needs.
type Requester interface {
	RequestFeedback(ctx context.Context, req feedbackservice.Request) (feedbackservice.Result, error)
}

// CollectFeedbackArgs are the tool arguments.
type CollectFeedbackArgs struct {
	WorkSummary     string `json:"work_summary" jsonschema:"Report of the work the agent completed and its results"`
	Timeout         int    `json:"timeout,omitempty" jsonschema:"Seconds to wait for the user (default 300)"`
	SessionID       string `json:"session_id,omitempty" jsonschema:"Optional session id; generated when omitted"`
	RequireResponse *bool  `json:"require_response,omitempty" jsonschema:"Wait for the reply before returning (default true)"`
}

// Server wraps the MCP server carrying the collect_feedback tool.
type Server struct {
	server    *mcp.Server
	requester Requester
}

// New builds the MCP server and registers its tool.
func New(requester Requester) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
		requester: requester,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, s.handleCollectFeedback)

	return s
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// RunStdio serves the tool over stdin/stdout until ctx ends or the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the tool over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) handleCollectFeedback(ctx context.Context, _ *mcp.CallToolRequest, args CollectFeedbackArgs) (*mcp.CallToolResult, any, error) {
	result, err := s.requester.RequestFeedback(ctx, feedbackservice.Request{
		WorkSummary:     args.WorkSummary,
		Timeout:         time.Duration(args.Timeout) * time.Second,
		SessionID:       args.SessionID,
		RequireResponse: lo.FromPtrOr(args.RequireResponse, true),
	})
	if err != nil {
		log.Printf("[mcp] collect_feedback failed: %v", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Feedback collection failed: %v", err)}},
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Text()}},
	}, nil, nil
}
