package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/observability/metrics"
)

type queryFake struct {
	result domain.RetrievalResult
	err    error
	got    string
}

func (f *queryFake) ResolveQuery(_ context.Context, query string) (domain.RetrievalResult, error) {
	f.got = query
	if f.err != nil {
		return domain.RetrievalResult{}, f.err
	}
	return f.result, nil
}

type submitFake struct {
	err   error
	draft domain.ReviewDraft
}

func (f *submitFake) Submit(_ context.Context, draft domain.ReviewDraft) (*domain.Review, error) {
	f.draft = draft
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Review{
		ID:      "rev-1",
		PlaceID: draft.PlaceID,
		Structured: domain.StructuredReviewProperties{
			DateOfVisit: draft.DateOfVisit,
			WouldReturn: draft.WouldReturn,
		},
		Freeform:  domain.FreeformReviewProperties{ReviewText: draft.ReviewText, ItemReviews: draft.ItemReviews},
		CreatedAt: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

type reviewsFake struct {
	err error
}

func (f reviewsFake) GetReviewByID(_ context.Context, id string) (*domain.Review, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Review{ID: id, PlaceID: "p-1"}, nil
}

func newTestHandler(opts RouterOptions, query *queryFake, submit *submitFake, reviews reviewsFake) http.Handler {
	if query == nil {
		query = &queryFake{result: domain.EmptyRetrievalResult()}
	}
	if submit == nil {
		submit = &submitFake{}
	}
	return NewRouter(opts, query, submit, reviews).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryReturnsRetrievalResult(t *testing.T) {
	query := &queryFake{result: domain.RetrievalResult{
		Places:  []domain.Place{{PlaceID: "p-costena", Name: "La Costeña"}},
		Reviews: []domain.Review{{ID: "r1", PlaceID: "p-costena"}},
	}}
	handler := newTestHandler(RouterOptions{}, query, nil, reviewsFake{})

	res := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", map[string]string{"query": "tacos near Mountain View"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if query.got != "tacos near Mountain View" {
		t.Fatalf("unexpected query forwarded: %q", query.got)
	}

	var out domain.RetrievalResult
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Places) != 1 || len(out.Reviews) != 1 || out.Reviews[0].ID != "r1" {
		t.Fatalf("unexpected result %+v", out)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestQueryEmptyResultEncodesEmptyArrays(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})
	res := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", map[string]string{"query": "anything"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"places":[]`) || !strings.Contains(res.Body.String(), `"reviews":[]`) {
		t.Fatalf("expected empty arrays, got %s", res.Body.String())
	}
}

func TestQueryValidation(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})

	cases := []struct {
		name string
		body any
	}{
		{name: "blank query", body: map[string]string{"query": "   "}},
		{name: "malformed json", body: `{"query":`},
		{name: "unknown field", body: `{"question":"tacos"}`},
		{name: "empty body", body: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", tc.body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
		})
	}
}

func TestQueryMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.WrapError(domain.ErrIntentClassification, "classify", errors.New("not json")), http.StatusUnprocessableEntity, "intent_classification_failed"},
		{domain.WrapError(domain.ErrInvalidQueryType, "classify", errors.New("semantic")), http.StatusUnprocessableEntity, "invalid_query_type"},
		{domain.WrapError(domain.ErrEmbeddingUnavailable, "rank", errors.New("503")), http.StatusServiceUnavailable, "embedding_unavailable"},
		{domain.WrapError(domain.ErrStoreUnavailable, "find", errors.New("conn refused")), http.StatusServiceUnavailable, "store_unavailable"},
		{domain.WrapError(domain.ErrLanguageModelUnavailable, "complete", errors.New("eof")), http.StatusServiceUnavailable, "language_model_unavailable"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		handler := newTestHandler(RouterOptions{}, &queryFake{err: tc.err}, nil, reviewsFake{})
		res := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", map[string]string{"query": "q"})
		if res.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, res.Code)
		}
		var body errorResponse
		if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if body.Code != tc.code || body.RequestID == "" {
			t.Fatalf("%v: unexpected error body %+v", tc.err, body)
		}
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, &queryFake{err: errors.New("password=hunter2")}, nil, reviewsFake{})
	res := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", map[string]string{"query": "q"})
	if strings.Contains(res.Body.String(), "hunter2") {
		t.Fatalf("expected internal error details hidden, got %s", res.Body.String())
	}
}

func TestSubmitReviewReturns201(t *testing.T) {
	submit := &submitFake{}
	handler := newTestHandler(RouterOptions{}, nil, submit, reviewsFake{})

	res := doJSON(t, handler, http.MethodPost, "/v1/reviews", map[string]any{
		"place_id":      "p-costena",
		"date_of_visit": "2024-02-10",
		"would_return":  true,
		"review_text":   "Great carnitas",
		"item_reviews":  []map[string]string{{"item": "tacos", "review": "spicy"}},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("Location") != "/v1/reviews/rev-1" {
		t.Fatalf("unexpected location %q", res.Header().Get("Location"))
	}
	if submit.draft.WouldReturn != domain.WouldReturnYes || submit.draft.DateOfVisit != domain.NewDate(2024, time.February, 10) {
		t.Fatalf("draft not decoded: %+v", submit.draft)
	}
}

func TestSubmitReviewErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("place_id is required")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrPlaceNotFound, "ensure place", errors.New("p-x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrTemporary, "google place details", errors.New("502")), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		handler := newTestHandler(RouterOptions{}, nil, &submitFake{err: tc.err}, reviewsFake{})
		res := doJSON(t, handler, http.MethodPost, "/v1/reviews", map[string]any{"place_id": "p-x"})
		if res.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, res.Code)
		}
	}

	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})
	res := doJSON(t, handler, http.MethodPost, "/v1/reviews", `{"place_id":"p","date_of_visit":"yesterday"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", res.Code)
	}
}

func TestGetReviewByID(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})
	res := doJSON(t, handler, http.MethodGet, "/v1/reviews/r-42", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"id":"r-42"`) {
		t.Fatalf("unexpected response %d: %s", res.Code, res.Body.String())
	}

	missing := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{
		err: domain.WrapError(domain.ErrReviewNotFound, "get review", errors.New("id=missing")),
	})
	res = doJSON(t, missing, http.MethodGet, "/v1/reviews/missing", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("expected incoming request id echoed, got %q", res.Header().Get(requestIDHeader))
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("api")
	handler := newTestHandler(RouterOptions{RateLimitRPS: 1, RateLimitBurst: 1, Metrics: m}, nil, nil, reviewsFake{})

	res1 := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", map[string]string{"query": "q"})
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}
	res2 := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", map[string]string{"query": "q"})
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	health := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if health.Code != http.StatusOK {
		t.Fatalf("expected health exempt from rate limiting, got %d", health.Code)
	}

	scrape := doJSON(t, handler, http.MethodGet, "/metrics", nil)
	if !strings.Contains(scrape.Body.String(), "memorappy_http_rate_limited_total") {
		t.Fatalf("expected rate limit counter exported")
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})
	if res := doJSON(t, handler, http.MethodGet, "/v1/unknown", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if res := doJSON(t, handler, http.MethodDelete, "/v1/reviews/r1", nil); res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
