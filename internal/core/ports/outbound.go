package ports

import (
	"context"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

// LanguageModel completes a single system+user prompt exchange.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embeddings maps texts to vectors, one per input, preserving order.
type Embeddings interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// EmbeddingCache is a persistent second-level cache keyed by content hash.
type EmbeddingCache interface {
	GetEmbeddings(ctx context.Context, keys []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, vectors map[string][]float32) error
}

// ReviewStore reads and writes committed reviews.
type ReviewStore interface {
	FindReviews(ctx context.Context, predicate domain.ReviewPredicate) ([]domain.Review, error)
	GetReviewByID(ctx context.Context, id string) (*domain.Review, error)
	CreateReview(ctx context.Context, review *domain.Review) error
}

// PlaceStore reads and writes places. UpsertPlace never relocates an existing place.
type PlaceStore interface {
	FindPlaces(ctx context.Context, predicate domain.PlacePredicate) ([]domain.Place, error)
	GetPlaceByID(ctx context.Context, placeID string) (*domain.Place, error)
	UpsertPlace(ctx context.Context, place domain.Place) (*domain.Place, error)
}

// Geocoder resolves a free-text location. found is false when nothing matched.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (point domain.LatLng, found bool, err error)
}

// PlaceLookup fetches place details from the external places provider.
type PlaceLookup interface {
	LookupPlace(ctx context.Context, placeID string) (*domain.Place, error)
}

// ReviewEvents publishes/consumes review-committed events.
type ReviewEvents interface {
	PublishReviewCommitted(ctx context.Context, reviewID string) error
	SubscribeReviewCommitted(ctx context.Context, handler func(context.Context, string) error) error
}

// RetrievalObserver receives retrieval telemetry. Implementations must be cheap and non-blocking.
type RetrievalObserver interface {
	ObserveQuery(queryType domain.QueryType, status string, seconds float64, reviews int)
	ObserveEmbeddingCache(hits, misses int)
	ObserveGeoDegraded(reason string)
}
