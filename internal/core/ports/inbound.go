package ports

import (
	"context"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

// QueryResolver is the inbound contract for natural-language review retrieval.
type QueryResolver interface {
	ResolveQuery(ctx context.Context, query string) (domain.RetrievalResult, error)
}

// ReviewSubmitter commits new reviews.
type ReviewSubmitter interface {
	Submit(ctx context.Context, draft domain.ReviewDraft) (*domain.Review, error)
}

// ReviewReader is the inbound read model for committed reviews.
type ReviewReader interface {
	GetReviewByID(ctx context.Context, id string) (*domain.Review, error)
}

// PlaceEnsurer resolves a place through the store, fetching and persisting it on first reference.
type PlaceEnsurer interface {
	EnsurePlace(ctx context.Context, placeID string) (*domain.Place, error)
}

// ReviewWarmer precomputes embeddings for a committed review.
type ReviewWarmer interface {
	WarmByID(ctx context.Context, reviewID string) error
}
