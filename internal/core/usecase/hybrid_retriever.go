package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

// Classifier turns a natural-language question into a ParsedQuery.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.ParsedQuery, error)
}

// Reranker optionally reorders the full-text candidates after vector ranking.
type Reranker interface {
	Rerank(ctx context.Context, query string, reviews []domain.Review) ([]domain.Review, error)
}

type HybridRetrieverOptions struct {
	TopK     int
	Reranker Reranker
}

// HybridRetriever dispatches a classified question to the structured branch,
// the full-text branch, or both.
type HybridRetriever struct {
	classifier Classifier
	filters    *StructuredFilterBuilder
	index      *EmbeddingIndex
	reviews    ports.ReviewStore
	places     ports.PlaceStore
	topK       int
	reranker   Reranker
}

func NewHybridRetriever(
	classifier Classifier,
	filters *StructuredFilterBuilder,
	index *EmbeddingIndex,
	reviews ports.ReviewStore,
	places ports.PlaceStore,
	opts HybridRetrieverOptions,
) *HybridRetriever {
	return &HybridRetriever{
		classifier: classifier,
		filters:    filters,
		index:      index,
		reviews:    reviews,
		places:     places,
		topK:       opts.TopK,
		reranker:   opts.Reranker,
	}
}

func (r *HybridRetriever) Retrieve(ctx context.Context, query string) (domain.RetrievalResult, error) {
	_, result, err := r.retrieve(ctx, query)
	return result, err
}

func (r *HybridRetriever) retrieve(ctx context.Context, query string) (domain.ParsedQuery, domain.RetrievalResult, error) {
	parsed, err := r.classifier.Classify(ctx, query)
	if err != nil {
		return domain.ParsedQuery{}, domain.RetrievalResult{}, fmt.Errorf("classify query: %w", err)
	}
	result, err := r.RetrieveParsed(ctx, query, parsed)
	return parsed, result, err
}

// RetrieveParsed runs retrieval for an already classified question.
func (r *HybridRetriever) RetrieveParsed(ctx context.Context, query string, parsed domain.ParsedQuery) (domain.RetrievalResult, error) {
	switch parsed.QueryType {
	case domain.QueryTypeStructured:
		result, err := r.structured(ctx, parsed.Parameters)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("structured: %w", err)
		}
		return result, nil
	case domain.QueryTypeFullText:
		result, err := r.fullText(ctx, query)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("full-text: %w", err)
		}
		return result, nil
	case domain.QueryTypeHybrid:
		result, err := r.hybrid(ctx, query, parsed.Parameters)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("hybrid: %w", err)
		}
		return result, nil
	default:
		return domain.RetrievalResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidQueryType, parsed.QueryType)
	}
}

func (r *HybridRetriever) hybrid(ctx context.Context, query string, params domain.QueryParameters) (domain.RetrievalResult, error) {
	var structured, fullText domain.RetrievalResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.structured(gctx, params)
		if err != nil {
			return fmt.Errorf("structured: %w", err)
		}
		structured = res
		return nil
	})
	g.Go(func() error {
		res, err := r.fullText(gctx, query)
		if err != nil {
			return fmt.Errorf("full-text: %w", err)
		}
		fullText = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.RetrievalResult{}, err
	}

	merged := mergeReviews(structured.Reviews, fullText.Reviews)
	placeIndex := indexPlaces(append(append([]domain.Place{}, structured.Places...), fullText.Places...))
	return domain.RetrievalResult{
		Places:  placesInReviewOrder(merged, placeIndex),
		Reviews: merged,
	}, nil
}

func (r *HybridRetriever) structured(ctx context.Context, params domain.QueryParameters) (domain.RetrievalResult, error) {
	pred, err := r.filters.Build(ctx, params)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("build filter: %w", err)
	}

	reviews, err := r.reviews.FindReviews(ctx, pred.Review)
	if err != nil {
		return domain.RetrievalResult{}, storeError(ctx, "find reviews", err)
	}
	if len(reviews) == 0 {
		return domain.EmptyRetrievalResult(), nil
	}

	placePred := pred.Place
	placePred.PlaceIDs = referencedPlaceIDs(reviews)
	places, err := r.places.FindPlaces(ctx, placePred)
	if err != nil {
		return domain.RetrievalResult{}, storeError(ctx, "find places", err)
	}

	// A review is dropped only when a place-side constraint rejects its place.
	// Without one, reviews whose place row is missing are kept, as in full-text.
	placeIndex := indexPlaces(places)
	kept := reviews
	if pred.Place.ConstrainsPlace() {
		kept = reviewsAtPlaces(reviews, placeIndex)
	}
	return domain.RetrievalResult{
		Places:  placesInReviewOrder(kept, placeIndex),
		Reviews: kept,
	}, nil
}

func (r *HybridRetriever) fullText(ctx context.Context, query string) (domain.RetrievalResult, error) {
	corpus, err := r.reviews.FindReviews(ctx, domain.ReviewPredicate{})
	if err != nil {
		return domain.RetrievalResult{}, storeError(ctx, "find reviews", err)
	}
	if len(corpus) == 0 {
		return domain.EmptyRetrievalResult(), nil
	}

	candidates := make([]RankCandidate, 0, len(corpus))
	byID := make(map[string]domain.Review, len(corpus))
	for _, review := range corpus {
		if _, dup := byID[review.ID]; dup {
			continue
		}
		byID[review.ID] = review
		candidates = append(candidates, RankCandidate{ID: review.ID, Text: review.SearchText()})
	}

	ranked, err := r.index.Rank(ctx, query, candidates, r.topK)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("rank candidates: %w", err)
	}

	reviews := make([]domain.Review, 0, len(ranked))
	for _, hit := range ranked {
		reviews = append(reviews, byID[hit.ID])
	}

	if r.reranker != nil {
		reviews, err = r.reranker.Rerank(ctx, query, reviews)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("rerank candidates: %w", err)
		}
	}

	// Ranked reviews are kept even when their place row is missing.
	placeIDs := referencedPlaceIDs(reviews)
	if len(placeIDs) == 0 {
		return domain.RetrievalResult{Places: []domain.Place{}, Reviews: reviews}, nil
	}
	places, err := r.places.FindPlaces(ctx, domain.PlacePredicate{PlaceIDs: placeIDs})
	if err != nil {
		return domain.RetrievalResult{}, storeError(ctx, "find places", err)
	}
	return domain.RetrievalResult{
		Places:  placesInReviewOrder(reviews, indexPlaces(places)),
		Reviews: reviews,
	}, nil
}

func storeError(ctx context.Context, operation string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", operation, ctxErr)
	}
	if domain.IsKind(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrStoreUnavailable, operation, err)
}
