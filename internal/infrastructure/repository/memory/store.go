// Package memory is an in-process review and place store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

type Store struct {
	mu      sync.RWMutex
	places  map[string]domain.Place
	reviews map[string]domain.Review
}

func NewStore() *Store {
	return &Store{
		places:  make(map[string]domain.Place),
		reviews: make(map[string]domain.Review),
	}
}

func (s *Store) FindReviews(ctx context.Context, pred domain.ReviewPredicate) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Review, 0)
	for _, review := range s.reviews {
		if pred.Matches(review) {
			out = append(out, cloneReview(review))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetReviewByID(_ context.Context, id string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrReviewNotFound, "get review by id", fmt.Errorf("id=%s", id))
	}
	review = cloneReview(review)
	return &review, nil
}

func (s *Store) CreateReview(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.places[review.PlaceID]; !ok {
		return domain.WrapError(domain.ErrPlaceNotFound, "create review", fmt.Errorf("place_id=%s", review.PlaceID))
	}
	if _, ok := s.reviews[review.ID]; ok {
		return fmt.Errorf("create review: duplicate id %s", review.ID)
	}
	s.reviews[review.ID] = cloneReview(*review)
	return nil
}

func (s *Store) FindPlaces(ctx context.Context, pred domain.PlacePredicate) ([]domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Place, 0)
	for _, place := range s.places {
		if pred.Matches(place) {
			out = append(out, place)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })
	return out, nil
}

func (s *Store) GetPlaceByID(_ context.Context, placeID string) (*domain.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	place, ok := s.places[placeID]
	if !ok {
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "get place by id", fmt.Errorf("place_id=%s", placeID))
	}
	return &place, nil
}

// UpsertPlace refreshes descriptive fields of a known place but never its geometry.
func (s *Store) UpsertPlace(_ context.Context, place domain.Place) (*domain.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.places[place.PlaceID]; ok {
		place.Geometry = existing.Geometry
	}
	s.places[place.PlaceID] = place
	return &place, nil
}

func cloneReview(r domain.Review) domain.Review {
	if r.Freeform.ItemReviews != nil {
		r.Freeform.ItemReviews = append([]domain.ItemReview(nil), r.Freeform.ItemReviews...)
	}
	return r
}
