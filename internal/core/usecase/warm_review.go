package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/tshaffer/memorappy/internal/core/ports"
)

// WarmReviewUseCase precomputes the embedding of a committed review so the
// first full-text query that sees it hits the cache.
type WarmReviewUseCase struct {
	reviews ports.ReviewStore
	index   *EmbeddingIndex
}

func NewWarmReviewUseCase(reviews ports.ReviewStore, index *EmbeddingIndex) *WarmReviewUseCase {
	return &WarmReviewUseCase{reviews: reviews, index: index}
}

func (uc *WarmReviewUseCase) WarmByID(ctx context.Context, reviewID string) error {
	review, err := uc.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("load review: %w", err)
	}

	text := review.SearchText()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := uc.index.Warm(ctx, []string{text}); err != nil {
		return fmt.Errorf("warm embedding: %w", err)
	}
	return nil
}
