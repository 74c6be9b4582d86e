package usecase

import (
	"github.com/tshaffer/memorappy/internal/core/domain"
)

// mergeReviews keeps the primary order and appends secondary reviews not already present.
// Identity is the review id; the result never depends on which branch finished first.
func mergeReviews(primary, secondary []domain.Review) []domain.Review {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	out := make([]domain.Review, 0, len(primary)+len(secondary))
	appendList := func(reviews []domain.Review) {
		for _, review := range reviews {
			if _, ok := seen[review.ID]; ok {
				continue
			}
			seen[review.ID] = struct{}{}
			out = append(out, review)
		}
	}

	appendList(primary)
	appendList(secondary)
	return out
}

// referencedPlaceIDs lists the distinct place ids of reviews in first-appearance order.
func referencedPlaceIDs(reviews []domain.Review) []string {
	seen := make(map[string]struct{}, len(reviews))
	out := make([]string, 0, len(reviews))
	for _, review := range reviews {
		if review.PlaceID == "" {
			continue
		}
		if _, ok := seen[review.PlaceID]; ok {
			continue
		}
		seen[review.PlaceID] = struct{}{}
		out = append(out, review.PlaceID)
	}
	return out
}

func indexPlaces(places []domain.Place) map[string]domain.Place {
	out := make(map[string]domain.Place, len(places))
	for _, place := range places {
		out[place.PlaceID] = place
	}
	return out
}

// reviewsAtPlaces drops reviews whose place is not in the index.
func reviewsAtPlaces(reviews []domain.Review, places map[string]domain.Place) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, review := range reviews {
		if _, ok := places[review.PlaceID]; ok {
			out = append(out, review)
		}
	}
	return out
}

// placesInReviewOrder returns the indexed places referenced by reviews, ordered by first reference.
func placesInReviewOrder(reviews []domain.Review, places map[string]domain.Place) []domain.Place {
	out := make([]domain.Place, 0, len(places))
	for _, id := range referencedPlaceIDs(reviews) {
		if place, ok := places[id]; ok {
			out = append(out, place)
		}
	}
	return out
}
