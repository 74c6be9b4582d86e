package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

type queryFake struct {
	result domain.RetrievalResult
	err    error
}

func (f queryFake) ResolveQuery(context.Context, string) (domain.RetrievalResult, error) {
	return f.result, f.err
}

type reviewsFake struct{}

func (reviewsFake) GetReviewByID(_ context.Context, id string) (*domain.Review, error) {
	if id == "missing" {
		return nil, domain.WrapError(domain.ErrReviewNotFound, "get review", errors.New(id))
	}
	return &domain.Review{ID: id}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %+v", result)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestResolveReviewsReturnsJSON(t *testing.T) {
	s := NewServer(queryFake{result: domain.RetrievalResult{
		Places:  []domain.Place{{PlaceID: "p1"}},
		Reviews: []domain.Review{{ID: "r1", PlaceID: "p1"}},
	}}, reviewsFake{}, nil)

	result, err := s.handleResolveReviews(context.Background(), callRequest("resolve_reviews", map[string]any{"query": "tacos"}))
	if err != nil {
		t.Fatalf("handleResolveReviews() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var out domain.RetrievalResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if len(out.Reviews) != 1 || out.Reviews[0].ID != "r1" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestResolveReviewsMissingQuery(t *testing.T) {
	s := NewServer(queryFake{}, reviewsFake{}, nil)
	result, err := s.handleResolveReviews(context.Background(), callRequest("resolve_reviews", map[string]any{}))
	if err != nil {
		t.Fatalf("expected in-band error, got %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestResolveReviewsDomainErrorIsInBand(t *testing.T) {
	s := NewServer(queryFake{err: domain.WrapError(domain.ErrInvalidQueryType, "classify", errors.New("semantic"))}, reviewsFake{}, nil)
	result, err := s.handleResolveReviews(context.Background(), callRequest("resolve_reviews", map[string]any{"query": "q"}))
	if err != nil {
		t.Fatalf("expected in-band error, got %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "could not understand") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGetReview(t *testing.T) {
	s := NewServer(queryFake{}, reviewsFake{}, nil)

	result, err := s.handleGetReview(context.Background(), callRequest("get_review", map[string]any{"id": "r9"}))
	if err != nil || result.IsError || !strings.Contains(resultText(t, result), `"id": "r9"`) {
		t.Fatalf("unexpected result %+v, %v", result, err)
	}

	result, err = s.handleGetReview(context.Background(), callRequest("get_review", map[string]any{"id": "missing"}))
	if err != nil || !result.IsError || !strings.Contains(resultText(t, result), "not found") {
		t.Fatalf("expected not found tool error, got %+v, %v", result, err)
	}
}
