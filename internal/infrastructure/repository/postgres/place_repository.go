package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

const placeColumns = `place_id, name, formatted_address, address_components, website, lat, lng, viewport`

type PlaceRepository struct {
	db *sql.DB
}

func NewPlaceRepository(db *sql.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

func (r *PlaceRepository) FindPlaces(ctx context.Context, pred domain.PlacePredicate) ([]domain.Place, error) {
	w := placeWhere(pred)
	query := "SELECT " + placeColumns + "\nFROM places\n" + w.sql() + "ORDER BY place_id"

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("find places: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Place, 0)
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		// The SQL radius is widened; the predicate decides the exact boundary.
		if !pred.Matches(place) {
			continue
		}
		out = append(out, place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return out, nil
}

func (r *PlaceRepository) GetPlaceByID(ctx context.Context, placeID string) (*domain.Place, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+placeColumns+"\nFROM places\nWHERE place_id = $1", placeID)

	place, err := scanPlace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPlaceNotFound, "get place by id", fmt.Errorf("place_id=%s", placeID))
		}
		return nil, fmt.Errorf("get place by id: %w", err)
	}
	return &place, nil
}

// UpsertPlace inserts a place or refreshes its descriptive fields. Geometry of an
// existing place is left as stored.
func (r *PlaceRepository) UpsertPlace(ctx context.Context, place domain.Place) (*domain.Place, error) {
	components, err := json.Marshal(nonNilComponents(place.AddressComponents))
	if err != nil {
		return nil, fmt.Errorf("marshal address components: %w", err)
	}
	viewport, err := json.Marshal(place.Geometry.Viewport)
	if err != nil {
		return nil, fmt.Errorf("marshal viewport: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO places (place_id, name, formatted_address, address_components, website, lat, lng, viewport)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (place_id) DO UPDATE
SET name = EXCLUDED.name,
	formatted_address = EXCLUDED.formatted_address,
	address_components = EXCLUDED.address_components,
	website = EXCLUDED.website
RETURNING `+placeColumns,
		place.PlaceID, place.Name, place.FormattedAddress, components, place.Website,
		place.Geometry.Location.Lat, place.Geometry.Location.Lng, viewport,
	)

	stored, err := scanPlace(row)
	if err != nil {
		return nil, fmt.Errorf("upsert place: %w", err)
	}
	return &stored, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (domain.Place, error) {
	var place domain.Place
	var componentsRaw, viewportRaw []byte
	err := row.Scan(
		&place.PlaceID,
		&place.Name,
		&place.FormattedAddress,
		&componentsRaw,
		&place.Website,
		&place.Geometry.Location.Lat,
		&place.Geometry.Location.Lng,
		&viewportRaw,
	)
	if err != nil {
		return domain.Place{}, err
	}
	if len(componentsRaw) > 0 {
		if err := json.Unmarshal(componentsRaw, &place.AddressComponents); err != nil {
			return domain.Place{}, fmt.Errorf("unmarshal address components: %w", err)
		}
	}
	if len(viewportRaw) > 0 {
		if err := json.Unmarshal(viewportRaw, &place.Geometry.Viewport); err != nil {
			return domain.Place{}, fmt.Errorf("unmarshal viewport: %w", err)
		}
	}
	return place, nil
}

func nonNilComponents(c []domain.AddressComponent) []domain.AddressComponent {
	if c == nil {
		return []domain.AddressComponent{}
	}
	return c
}
