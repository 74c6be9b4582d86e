package usecase

import (
	"reflect"
	"sort"
	"testing"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

func TestMergeReviewsDedupLaw(t *testing.T) {
	structured := []domain.Review{{ID: "s1"}, {ID: "both"}, {ID: "s2"}}
	fullText := []domain.Review{{ID: "f1"}, {ID: "both"}, {ID: "s1"}}

	merged := mergeReviews(structured, fullText)
	if got := reviewIDs(merged); !reflect.DeepEqual(got, []string{"s1", "both", "s2", "f1"}) {
		t.Fatalf("unexpected merge order %v", got)
	}

	union := map[string]struct{}{}
	for _, r := range append(append([]domain.Review{}, structured...), fullText...) {
		union[r.ID] = struct{}{}
	}
	want := make([]string, 0, len(union))
	for id := range union {
		want = append(want, id)
	}
	got := reviewIDs(merged)
	sort.Strings(want)
	sort.Strings(got)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected set union %v, got %v", want, got)
	}
}

func TestMergeReviewsEmptyInputs(t *testing.T) {
	merged := mergeReviews(nil, nil)
	if merged == nil || len(merged) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", merged)
	}
}

func TestPlacesInReviewOrder(t *testing.T) {
	reviews := []domain.Review{{ID: "1", PlaceID: "b"}, {ID: "2", PlaceID: "a"}, {ID: "3", PlaceID: "b"}, {ID: "4", PlaceID: "gone"}}
	index := indexPlaces([]domain.Place{{PlaceID: "a"}, {PlaceID: "b"}})

	if got := placeIDs(placesInReviewOrder(reviews, index)); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("expected first-reference order, got %v", got)
	}
	if got := reviewIDs(reviewsAtPlaces(reviews, index)); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("expected review at missing place dropped, got %v", got)
	}
}
