package postgres

import (
	"fmt"
	"strings"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

// geoSlackMeters widens the SQL radius so float drift never drops a boundary
// place; the exact inclusive check runs in Go on the scanned rows.
const geoSlackMeters = 1.0

type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		w.add("FALSE")
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = w.arg(v)
	}
	w.add(fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, "\n  AND ") + "\n"
}

func reviewWhere(pred domain.ReviewPredicate) *whereBuilder {
	w := &whereBuilder{}
	if pred.DateFrom != nil {
		w.add("date_of_visit >= " + w.arg(pred.DateFrom.Time()))
	}
	if pred.DateTo != nil {
		w.add("date_of_visit <= " + w.arg(pred.DateTo.Time()))
	}
	if pred.WouldReturnIn != nil {
		w.add(wouldReturnClause(pred.WouldReturnIn))
	}
	if len(pred.ItemSubstrings) > 0 {
		conds := make([]string, 0, len(pred.ItemSubstrings))
		for _, item := range pred.ItemSubstrings {
			conds = append(conds, "it->>'item' ILIKE "+w.arg(containsPattern(item)))
		}
		w.add("EXISTS (SELECT 1 FROM jsonb_array_elements(item_reviews) AS it WHERE " + strings.Join(conds, " OR ") + ")")
	}
	if pred.PlaceIDs != nil {
		w.in("place_id", pred.PlaceIDs)
	}
	return w
}

func wouldReturnClause(states []domain.WouldReturn) string {
	conds := make([]string, 0, len(states))
	for _, state := range states {
		switch state {
		case domain.WouldReturnYes:
			conds = append(conds, "would_return IS TRUE")
		case domain.WouldReturnNo:
			conds = append(conds, "would_return IS FALSE")
		default:
			conds = append(conds, "would_return IS NULL")
		}
	}
	if len(conds) == 0 {
		return "FALSE"
	}
	return "(" + strings.Join(conds, " OR ") + ")"
}

func placeWhere(pred domain.PlacePredicate) *whereBuilder {
	w := &whereBuilder{}
	if pred.NameContains != nil {
		w.add("name ILIKE " + w.arg(containsPattern(*pred.NameContains)))
	}
	if pred.Near != nil {
		lat := w.arg(pred.Near.Center.Lat)
		lng := w.arg(pred.Near.Center.Lng)
		radius := w.arg(pred.Near.RadiusMeters + geoSlackMeters)
		w.add(fmt.Sprintf(
			"2 * 6371008.8 * asin(least(1, sqrt(power(sin(radians(lat - %[1]s) / 2), 2) + cos(radians(%[1]s)) * cos(radians(lat)) * power(sin(radians(lng - %[2]s) / 2), 2)))) <= %[3]s",
			lat, lng, radius,
		))
	}
	if pred.PlaceIDs != nil {
		w.in("place_id", pred.PlaceIDs)
	}
	return w
}

func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
