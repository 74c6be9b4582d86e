package httpadapter

import (
	"net/http"
	"strings"
	"testing"
)

func TestContractLoads(t *testing.T) {
	if _, err := loadContract(); err != nil {
		t.Fatalf("loadContract() error = %v", err)
	}
}

func TestContractRejectsSchemaViolations(t *testing.T) {
	query := &queryFake{}
	submit := &submitFake{}
	handler := newTestHandler(RouterOptions{}, query, submit, reviewsFake{})

	cases := []struct {
		name string
		path string
		body string
	}{
		{name: "query not a string", path: "/v1/reviews/query", body: `{"query":42}`},
		{name: "empty query", path: "/v1/reviews/query", body: `{"query":""}`},
		{name: "draft without place", path: "/v1/reviews", body: `{"review_text":"good"}`},
		{name: "would_return not boolean", path: "/v1/reviews", body: `{"place_id":"p","would_return":"maybe"}`},
		{name: "item review extra field", path: "/v1/reviews", body: `{"place_id":"p","item_reviews":[{"item":"tacos","stars":5}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := doJSON(t, handler, http.MethodPost, tc.path, tc.body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			if !strings.Contains(res.Body.String(), `"code":"invalid_input"`) {
				t.Fatalf("unexpected error body %s", res.Body.String())
			}
		})
	}
	if query.got != "" || submit.draft.PlaceID != "" {
		t.Fatalf("expected handlers not to run for invalid requests")
	}
}

func TestContractAcceptsNullableDraftFields(t *testing.T) {
	submit := &submitFake{}
	handler := newTestHandler(RouterOptions{}, nil, submit, reviewsFake{})

	res := doJSON(t, handler, http.MethodPost, "/v1/reviews", `{"place_id":"p-1","would_return":null,"date_of_visit":"2024-05-01","review_text":"fine"}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if submit.draft.PlaceID != "p-1" {
		t.Fatalf("expected draft forwarded, got %+v", submit.draft)
	}
}

func TestContractRejectsOversizedBody(t *testing.T) {
	handler := newTestHandler(RouterOptions{MaxBodyBytes: 64}, nil, nil, reviewsFake{})
	body := `{"query":"` + strings.Repeat("x", 200) + `"}`
	res := doJSON(t, handler, http.MethodPost, "/v1/reviews/query", body)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", res.Code, res.Body.String())
	}
}

func TestServesContract(t *testing.T) {
	handler := newTestHandler(RouterOptions{}, nil, nil, reviewsFake{})
	res := doJSON(t, handler, http.MethodGet, "/openapi.yaml", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "operationId: resolveReviews") {
		t.Fatalf("unexpected contract response %d", res.Code)
	}
}
