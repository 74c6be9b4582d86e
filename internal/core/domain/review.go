package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD and, for leniency with model output, RFC3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", s)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WouldReturn is the reviewer's return intent. The zero value is Unspecified.
type WouldReturn int8

const (
	WouldReturnUnspecified WouldReturn = iota
	WouldReturnYes
	WouldReturnNo
)

func WouldReturnFromBool(v *bool) WouldReturn {
	switch {
	case v == nil:
		return WouldReturnUnspecified
	case *v:
		return WouldReturnYes
	default:
		return WouldReturnNo
	}
}

// Bool maps the tri-state onto a nullable boolean for storage edges.
func (w WouldReturn) Bool() *bool {
	switch w {
	case WouldReturnYes:
		v := true
		return &v
	case WouldReturnNo:
		v := false
		return &v
	default:
		return nil
	}
}

func (w WouldReturn) String() string {
	switch w {
	case WouldReturnYes:
		return "yes"
	case WouldReturnNo:
		return "no"
	default:
		return "unspecified"
	}
}

func (w WouldReturn) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Bool())
}

func (w *WouldReturn) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("would_return must be true, false or null: %w", err)
	}
	*w = WouldReturnFromBool(v)
	return nil
}

type ItemReview struct {
	Item   string `json:"item"`
	Review string `json:"review"`
}

type StructuredReviewProperties struct {
	DateOfVisit Date        `json:"date_of_visit"`
	WouldReturn WouldReturn `json:"would_return"`
}

type FreeformReviewProperties struct {
	ReviewText  string       `json:"review_text"`
	ItemReviews []ItemReview `json:"item_reviews"`
	Reviewer    string       `json:"reviewer,omitempty"`
}

// Review is one committed account of a visit to a Place.
type Review struct {
	ID         string                     `json:"id"`
	PlaceID    string                     `json:"place_id"`
	Structured StructuredReviewProperties `json:"structured_review_properties"`
	Freeform   FreeformReviewProperties   `json:"freeform_review_properties"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// SearchText is the text embedded for full-text retrieval.
func (r Review) SearchText() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Freeform.ReviewText))
	for _, item := range r.Freeform.ItemReviews {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(item.Item))
		if review := strings.TrimSpace(item.Review); review != "" {
			b.WriteString(": ")
			b.WriteString(review)
		}
	}
	return b.String()
}

// ReviewDraft is the input accepted when committing a new review.
type ReviewDraft struct {
	PlaceID     string       `json:"place_id"`
	DateOfVisit Date         `json:"date_of_visit"`
	WouldReturn WouldReturn  `json:"would_return"`
	ReviewText  string       `json:"review_text"`
	ItemReviews []ItemReview `json:"item_reviews"`
	Reviewer    string       `json:"reviewer,omitempty"`
}
