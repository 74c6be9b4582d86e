package domain

import (
	"slices"
	"strings"
)

type GeoRadius struct {
	Center       LatLng  `json:"center"`
	RadiusMeters float64 `json:"radius_meters"`
}

// ReviewPredicate constrains review-side fields. Nil fields are unconstrained.
type ReviewPredicate struct {
	DateFrom       *Date
	DateTo         *Date
	WouldReturnIn  []WouldReturn
	ItemSubstrings []string
	PlaceIDs       []string
}

// PlacePredicate constrains place-side fields. Nil fields are unconstrained.
type PlacePredicate struct {
	NameContains *string
	Near         *GeoRadius
	PlaceIDs     []string
}

// StorePredicate is the AND of a review-side and a place-side predicate.
type StorePredicate struct {
	Review ReviewPredicate
	Place  PlacePredicate
}

func (p ReviewPredicate) Matches(r Review) bool {
	if p.DateFrom != nil && r.Structured.DateOfVisit.Compare(*p.DateFrom) < 0 {
		return false
	}
	if p.DateTo != nil && r.Structured.DateOfVisit.Compare(*p.DateTo) > 0 {
		return false
	}
	if p.WouldReturnIn != nil && !slices.Contains(p.WouldReturnIn, r.Structured.WouldReturn) {
		return false
	}
	if len(p.ItemSubstrings) > 0 && !anyItemContains(r.Freeform.ItemReviews, p.ItemSubstrings) {
		return false
	}
	if p.PlaceIDs != nil && !slices.Contains(p.PlaceIDs, r.PlaceID) {
		return false
	}
	return true
}

func (p PlacePredicate) Matches(place Place) bool {
	if p.NameContains != nil &&
		!strings.Contains(strings.ToLower(place.Name), strings.ToLower(*p.NameContains)) {
		return false
	}
	if p.Near != nil && DistanceMeters(p.Near.Center, place.Geometry.Location) > p.Near.RadiusMeters {
		return false
	}
	if p.PlaceIDs != nil && !slices.Contains(p.PlaceIDs, place.PlaceID) {
		return false
	}
	return true
}

// ConstrainsPlace reports whether the predicate filters on place attributes
// rather than only scoping by id.
func (p PlacePredicate) ConstrainsPlace() bool {
	return p.NameContains != nil || p.Near != nil
}

func anyItemContains(items []ItemReview, needles []string) bool {
	for _, item := range items {
		name := strings.ToLower(item.Item)
		for _, needle := range needles {
			if strings.Contains(name, strings.ToLower(needle)) {
				return true
			}
		}
	}
	return false
}
