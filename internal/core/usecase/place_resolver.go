package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

// PlaceResolver reads places through the store, fetching unknown ids from the
// places provider and persisting them on first reference.
type PlaceResolver struct {
	store  ports.PlaceStore
	lookup ports.PlaceLookup
	group  singleflight.Group
}

func NewPlaceResolver(store ports.PlaceStore, lookup ports.PlaceLookup) *PlaceResolver {
	return &PlaceResolver{store: store, lookup: lookup}
}

func (r *PlaceResolver) EnsurePlace(ctx context.Context, placeID string) (*domain.Place, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ensure place", errors.New("place_id is required"))
	}

	return sharedCall(ctx, &r.group, placeID, func(ctx context.Context) (*domain.Place, error) {
		return r.ensure(ctx, placeID)
	})
}

func (r *PlaceResolver) ensure(ctx context.Context, placeID string) (*domain.Place, error) {
	place, err := r.store.GetPlaceByID(ctx, placeID)
	if err == nil {
		return place, nil
	}
	if !errors.Is(err, domain.ErrPlaceNotFound) {
		return nil, storeError(ctx, "get place", err)
	}

	if r.lookup == nil {
		return nil, fmt.Errorf("lookup place %s: %w", placeID, domain.ErrPlaceNotFound)
	}
	fetched, err := r.lookup.LookupPlace(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("lookup place %s: %w", placeID, err)
	}
	fetched.PlaceID = placeID

	stored, err := r.store.UpsertPlace(ctx, *fetched)
	if err != nil {
		return nil, storeError(ctx, "upsert place", err)
	}
	return stored, nil
}
