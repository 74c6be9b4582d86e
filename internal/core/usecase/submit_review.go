package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

type SubmitReviewUseCase struct {
	places  ports.PlaceEnsurer
	reviews ports.ReviewStore
	events  ports.ReviewEvents
	logger  *slog.Logger
}

func NewSubmitReviewUseCase(
	places ports.PlaceEnsurer,
	reviews ports.ReviewStore,
	events ports.ReviewEvents,
	logger *slog.Logger,
) *SubmitReviewUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitReviewUseCase{
		places:  places,
		reviews: reviews,
		events:  events,
		logger:  logger,
	}
}

// Submit commits a review. The committed event only drives embedding warm-up,
// so a publish failure is logged and the review is still returned.
func (uc *SubmitReviewUseCase) Submit(ctx context.Context, draft domain.ReviewDraft) (*domain.Review, error) {
	draft, err := normalizeDraft(draft)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate review", err)
	}

	place, err := uc.places.EnsurePlace(ctx, draft.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("ensure place: %w", err)
	}

	review := &domain.Review{
		ID:      uuid.NewString(),
		PlaceID: place.PlaceID,
		Structured: domain.StructuredReviewProperties{
			DateOfVisit: draft.DateOfVisit,
			WouldReturn: draft.WouldReturn,
		},
		Freeform: domain.FreeformReviewProperties{
			ReviewText:  draft.ReviewText,
			ItemReviews: draft.ItemReviews,
			Reviewer:    draft.Reviewer,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := uc.reviews.CreateReview(ctx, review); err != nil {
		return nil, storeError(ctx, "create review", err)
	}

	if uc.events != nil {
		if err := uc.events.PublishReviewCommitted(ctx, review.ID); err != nil {
			uc.logger.Warn("review_event_publish_failed", "review_id", review.ID, "error", err)
		}
	}

	uc.logger.Info("review_committed", "review_id", review.ID, "place_id", review.PlaceID)
	return review, nil
}

func normalizeDraft(draft domain.ReviewDraft) (domain.ReviewDraft, error) {
	draft.PlaceID = strings.TrimSpace(draft.PlaceID)
	draft.ReviewText = strings.TrimSpace(draft.ReviewText)
	draft.Reviewer = strings.TrimSpace(draft.Reviewer)

	items := make([]domain.ItemReview, 0, len(draft.ItemReviews))
	for _, item := range draft.ItemReviews {
		item.Item = strings.TrimSpace(item.Item)
		item.Review = strings.TrimSpace(item.Review)
		if item.Item == "" {
			continue
		}
		items = append(items, item)
	}
	draft.ItemReviews = items

	switch {
	case draft.PlaceID == "":
		return draft, errors.New("place_id is required")
	case draft.DateOfVisit.IsZero():
		return draft, errors.New("date_of_visit is required")
	case draft.ReviewText == "" && len(draft.ItemReviews) == 0:
		return draft, errors.New("review_text or item_reviews is required")
	}
	return draft, nil
}
