package domain

import (
	"fmt"
	"strings"
)

type QueryType string

const (
	QueryTypeStructured QueryType = "structured"
	QueryTypeFullText   QueryType = "full-text"
	QueryTypeHybrid     QueryType = "hybrid"
)

// ParseQueryType accepts the three canonical names, ignoring case and surrounding space.
func ParseQueryType(raw string) (QueryType, error) {
	switch QueryType(strings.ToLower(strings.TrimSpace(raw))) {
	case QueryTypeStructured:
		return QueryTypeStructured, nil
	case QueryTypeFullText:
		return QueryTypeFullText, nil
	case QueryTypeHybrid:
		return QueryTypeHybrid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQueryType, raw)
	}
}

type DateRange struct {
	Start *Date `json:"start"`
	End   *Date `json:"end"`
}

// WouldReturnFilter selects which return-intent states match.
// All flags false means the dimension is unconstrained, not "match nothing".
type WouldReturnFilter struct {
	Yes          bool `json:"yes"`
	No           bool `json:"no"`
	NotSpecified bool `json:"notSpecified"`
}

func (f WouldReturnFilter) IsEmpty() bool {
	return !f.Yes && !f.No && !f.NotSpecified
}

// States returns the accepted states, or nil when unconstrained.
func (f WouldReturnFilter) States() []WouldReturn {
	if f.IsEmpty() {
		return nil
	}
	out := make([]WouldReturn, 0, 3)
	if f.Yes {
		out = append(out, WouldReturnYes)
	}
	if f.No {
		out = append(out, WouldReturnNo)
	}
	if f.NotSpecified {
		out = append(out, WouldReturnUnspecified)
	}
	return out
}

// QueryParameters is the canonical parameter set extracted from a question.
// Absent fields are nil and serialize as explicit nulls.
type QueryParameters struct {
	Location       *string            `json:"location"`
	Radius         *float64           `json:"radius"`
	RestaurantName *string            `json:"restaurantName"`
	DateRange      *DateRange         `json:"dateRange"`
	WouldReturn    *WouldReturnFilter `json:"wouldReturn"`
	ItemsOrdered   []string           `json:"itemsOrdered"`
}

type ParsedQuery struct {
	QueryType  QueryType       `json:"queryType"`
	Parameters QueryParameters `json:"queryParameters"`
}

type RetrievalResult struct {
	Places  []Place  `json:"places"`
	Reviews []Review `json:"reviews"`
}

func EmptyRetrievalResult() RetrievalResult {
	return RetrievalResult{Places: []Place{}, Reviews: []Review{}}
}
