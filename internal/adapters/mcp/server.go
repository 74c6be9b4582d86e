// Package mcpadapter exposes review retrieval as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

const (
	ServerName    = "memorappy"
	ServerVersion = "1.0.0"
)

type Server struct {
	mcp     *server.MCPServer
	query   ports.QueryResolver
	reviews ports.ReviewReader
	logger  *slog.Logger
}

func NewServer(query ports.QueryResolver, reviews ports.ReviewReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		query:   query,
		reviews: reviews,
		logger:  logger,
	}
	s.mcp.AddTool(resolveReviewsTool(), s.handleResolveReviews)
	if reviews != nil {
		s.mcp.AddTool(getReviewTool(), s.handleGetReview)
	}
	return s
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func resolveReviewsTool() mcp.Tool {
	return mcp.NewTool("resolve_reviews",
		mcp.WithDescription("Answer a natural-language question about past restaurant visits. "+
			"Returns matching reviews and the places they refer to."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Question such as 'where did I have tacos near Mountain View last month?'"),
		),
	)
}

func getReviewTool() mcp.Tool {
	return mcp.NewTool("get_review",
		mcp.WithDescription("Fetch one committed review by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Review id")),
	)
}

func (s *Server) handleResolveReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	result, err := s.query.ResolveQuery(ctx, query)
	if err != nil {
		return s.toolError("resolve_reviews", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	review, err := s.reviews.GetReviewByID(ctx, id)
	if err != nil {
		return s.toolError("get_review", err), nil
	}
	return jsonResult(review)
}

// toolError reports failures in-band so the calling model can react to them.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", errorKind(err), err.Error()))
}

func errorKind(err error) string {
	kind := domain.KindOf(err)
	if kind == nil {
		return "internal error"
	}
	switch kind.Class() {
	case domain.ClassInput:
		return "invalid input"
	case domain.ClassNotFound:
		return "not found"
	case domain.ClassUnderstanding:
		return "could not understand the question"
	case domain.ClassUnavailable:
		return "temporarily unavailable"
	default:
		return "internal error"
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
