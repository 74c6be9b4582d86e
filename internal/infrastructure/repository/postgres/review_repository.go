package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

const reviewColumns = `id, place_id, date_of_visit, would_return, review_text, item_reviews, reviewer, created_at`

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) FindReviews(ctx context.Context, pred domain.ReviewPredicate) ([]domain.Review, error) {
	w := reviewWhere(pred)
	query := "SELECT " + reviewColumns + "\nFROM reviews\n" + w.sql() + "ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

func (r *ReviewRepository) GetReviewByID(ctx context.Context, id string) (*domain.Review, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+"\nFROM reviews\nWHERE id = $1", id)

	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReviewNotFound, "get review by id", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return &review, nil
}

func (r *ReviewRepository) CreateReview(ctx context.Context, review *domain.Review) error {
	items := review.Freeform.ItemReviews
	if items == nil {
		items = []domain.ItemReview{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal item reviews: %w", err)
	}

	var visited any
	if !review.Structured.DateOfVisit.IsZero() {
		visited = review.Structured.DateOfVisit.Time()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO reviews (`+reviewColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		review.ID, review.PlaceID, visited, review.Structured.WouldReturn.Bool(),
		review.Freeform.ReviewText, itemsJSON, review.Freeform.Reviewer, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func scanReview(row rowScanner) (domain.Review, error) {
	var review domain.Review
	var visited sql.NullTime
	var wouldReturn sql.NullBool
	var itemsRaw []byte
	err := row.Scan(
		&review.ID,
		&review.PlaceID,
		&visited,
		&wouldReturn,
		&review.Freeform.ReviewText,
		&itemsRaw,
		&review.Freeform.Reviewer,
		&review.CreatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}

	if visited.Valid {
		review.Structured.DateOfVisit = domain.DateOf(visited.Time)
	}
	if wouldReturn.Valid {
		review.Structured.WouldReturn = domain.WouldReturnFromBool(&wouldReturn.Bool)
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &review.Freeform.ItemReviews); err != nil {
			return domain.Review{}, fmt.Errorf("unmarshal item reviews: %w", err)
		}
	}
	return review, nil
}
