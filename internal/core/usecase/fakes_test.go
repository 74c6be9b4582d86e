package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

type fakeLanguageModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	systems   []string
	users     []string
}

func (f *fakeLanguageModel) Complete(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	out := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return out, nil
}

// fakeEmbeddings returns fixed vectors per text; unknown texts get a zero vector.
type fakeEmbeddings struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	short   bool
	batches [][]string

	entered chan struct{}
	release chan struct{}
}

func (f *fakeEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
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

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			vec = []float32{0, 0, 0}
		}
		out = append(out, vec)
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbeddings) ModelName() string { return "fake-embed" }

func (f *fakeEmbeddings) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeEmbeddingCache struct {
	stored map[string][]float32
	getErr error
	putErr error
	puts   int
}

func (f *fakeEmbeddingCache) GetEmbeddings(_ context.Context, keys []string) (map[string][]float32, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[string][]float32)
	for _, key := range keys {
		if vec, ok := f.stored[key]; ok {
			out[key] = vec
		}
	}
	return out, nil
}

func (f *fakeEmbeddingCache) PutEmbeddings(_ context.Context, vectors map[string][]float32) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	if f.stored == nil {
		f.stored = make(map[string][]float32)
	}
	for key, vec := range vectors {
		f.stored[key] = vec
	}
	return nil
}

type fakeReviewStore struct {
	mu         sync.Mutex
	reviews    []domain.Review
	findErr    error
	findCalls  int
	predicates []domain.ReviewPredicate
	created    []domain.Review
	createErr  error
}

func (f *fakeReviewStore) FindReviews(_ context.Context, pred domain.ReviewPredicate) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.predicates = append(f.predicates, pred)
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]domain.Review, 0)
	for _, review := range f.reviews {
		if pred.Matches(review) {
			out = append(out, review)
		}
	}
	return out, nil
}

func (f *fakeReviewStore) GetReviewByID(_ context.Context, id string) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := append(append([]domain.Review{}, f.reviews...), f.created...)
	for _, review := range all {
		if review.ID == id {
			r := review
			return &r, nil
		}
	}
	return nil, fmt.Errorf("review %s: %w", id, domain.ErrReviewNotFound)
}

func (f *fakeReviewStore) CreateReview(_ context.Context, review *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *review)
	return nil
}

type fakePlaceStore struct {
	mu         sync.Mutex
	places     []domain.Place
	findErr    error
	findCalls  int
	predicates []domain.PlacePredicate
	getCalls   int
	upserted   []domain.Place
}

func (f *fakePlaceStore) FindPlaces(_ context.Context, pred domain.PlacePredicate) ([]domain.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.predicates = append(f.predicates, pred)
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]domain.Place, 0)
	for _, place := range f.places {
		if pred.Matches(place) {
			out = append(out, place)
		}
	}
	return out, nil
}

func (f *fakePlaceStore) GetPlaceByID(_ context.Context, placeID string) (*domain.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	for _, place := range f.places {
		if place.PlaceID == placeID {
			p := place
			return &p, nil
		}
	}
	return nil, fmt.Errorf("place %s: %w", placeID, domain.ErrPlaceNotFound)
}

func (f *fakePlaceStore) UpsertPlace(_ context.Context, place domain.Place) (*domain.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, place)
	f.places = append(f.places, place)
	return &place, nil
}

type fakeGeocoder struct {
	mu     sync.Mutex
	points map[string]domain.LatLng
	err    error
	calls  int
	delay  time.Duration

	entered chan struct{}
	release chan struct{}
}

func (f *fakeGeocoder) Geocode(ctx context.Context, location string) (domain.LatLng, bool, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.LatLng{}, false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.LatLng{}, false, f.err
	}
	point, ok := f.points[location]
	return point, ok, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeObserver struct {
	mu          sync.Mutex
	queries     []string
	hits        int
	misses      int
	geoDegraded []string
}

func (f *fakeObserver) ObserveQuery(queryType domain.QueryType, status string, _ float64, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, string(queryType)+":"+status)
}

func (f *fakeObserver) ObserveEmbeddingCache(hits, misses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits += hits
	f.misses += misses
}

func (f *fakeObserver) ObserveGeoDegraded(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geoDegraded = append(f.geoDegraded, reason)
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

func datePtr(year int, month time.Month, day int) *domain.Date {
	d := domain.NewDate(year, month, day)
	return &d
}
