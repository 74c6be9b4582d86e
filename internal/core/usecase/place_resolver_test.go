package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

type fakePlaceLookup struct {
	mu    sync.Mutex
	place *domain.Place
	err   error
	calls int

	entered chan struct{}
	release chan struct{}
}

func (f *fakePlaceLookup) LookupPlace(ctx context.Context, placeID string) (*domain.Place, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.place == nil {
		return nil, fmt.Errorf("place %s: %w", placeID, domain.ErrPlaceNotFound)
	}
	p := *f.place
	return &p, nil
}

func (f *fakePlaceLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestEnsurePlaceReturnsStoredPlace(t *testing.T) {
	store := &fakePlaceStore{places: retrievalPlaces()}
	lookup := &fakePlaceLookup{}

	place, err := NewPlaceResolver(store, lookup).EnsurePlace(context.Background(), "p-nopa")
	if err != nil {
		t.Fatalf("EnsurePlace() error = %v", err)
	}
	if place.Name != "Nopalito" {
		t.Fatalf("unexpected place %+v", place)
	}
	if lookup.calls != 0 {
		t.Fatalf("expected no provider lookup for a stored place")
	}
}

func TestEnsurePlaceFetchesAndPersistsUnknownPlace(t *testing.T) {
	store := &fakePlaceStore{}
	lookup := &fakePlaceLookup{place: &domain.Place{Name: "Tacolicious", FormattedAddress: "741 Valencia St"}}
	r := NewPlaceResolver(store, lookup)

	place, err := r.EnsurePlace(context.Background(), " ChIJ-taco ")
	if err != nil {
		t.Fatalf("EnsurePlace() error = %v", err)
	}
	if place.PlaceID != "ChIJ-taco" || len(store.upserted) != 1 {
		t.Fatalf("expected fetched place persisted, got %+v upserts=%d", place, len(store.upserted))
	}

	if _, err := r.EnsurePlace(context.Background(), "ChIJ-taco"); err != nil {
		t.Fatalf("second EnsurePlace() error = %v", err)
	}
	if lookup.calls != 1 {
		t.Fatalf("expected the second call to read through the store, got %d lookups", lookup.calls)
	}
}

func TestEnsurePlaceErrors(t *testing.T) {
	if _, err := NewPlaceResolver(&fakePlaceStore{}, &fakePlaceLookup{}).EnsurePlace(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewPlaceResolver(&fakePlaceStore{}, &fakePlaceLookup{}).EnsurePlace(context.Background(), "missing"); !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound, got %v", err)
	}
	if _, err := NewPlaceResolver(&fakePlaceStore{}, nil).EnsurePlace(context.Background(), "missing"); !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected ErrPlaceNotFound without a provider, got %v", err)
	}
}

func TestEnsurePlaceSurvivesFirstCallerCancel(t *testing.T) {
	store := &fakePlaceStore{}
	lookup := &fakePlaceLookup{
		place:   &domain.Place{Name: "Tacolicious"},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	r := NewPlaceResolver(store, lookup)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.EnsurePlace(firstCtx, "ChIJ-taco")
		firstErr <- err
	}()
	<-lookup.entered

	type ensured struct {
		place *domain.Place
		err   error
	}
	second := make(chan ensured, 1)
	go func() {
		place, err := r.EnsurePlace(context.Background(), "ChIJ-taco")
		second <- ensured{place, err}
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first caller canceled, got %v", err)
	}

	close(lookup.release)
	got := <-second
	if got.err != nil {
		t.Fatalf("second EnsurePlace() error = %v", got.err)
	}
	if got.place.PlaceID != "ChIJ-taco" || got.place.Name != "Tacolicious" {
		t.Fatalf("unexpected place %+v", got.place)
	}
	if lookup.callCount() != 1 || len(store.upserted) != 1 {
		t.Fatalf("expected one shared lookup and upsert, got lookups=%d upserts=%d", lookup.callCount(), len(store.upserted))
	}
}
