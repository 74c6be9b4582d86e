package usecase

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

const defaultGeoCacheSize = 1024

type geoResolution struct {
	point domain.LatLng
	found bool
}

// GeoResolver resolves location strings to coordinates and caches both hits and misses.
// Concurrent lookups of the same normalized input share one geocoder call,
// which outlives any single caller's cancellation.
type GeoResolver struct {
	geocoder ports.Geocoder
	cache    *lru.Cache[string, geoResolution]
	group    singleflight.Group
}

func NewGeoResolver(geocoder ports.Geocoder, cacheSize int) *GeoResolver {
	if cacheSize <= 0 {
		cacheSize = defaultGeoCacheSize
	}
	cache, _ := lru.New[string, geoResolution](cacheSize)
	return &GeoResolver{
		geocoder: geocoder,
		cache:    cache,
	}
}

func (r *GeoResolver) Resolve(ctx context.Context, location string) (domain.LatLng, bool, error) {
	key := normalizeLocation(location)
	if key == "" {
		return domain.LatLng{}, false, nil
	}
	if hit, ok := r.cache.Get(key); ok {
		return hit.point, hit.found, nil
	}

	res, err := sharedCall(ctx, &r.group, key, func(ctx context.Context) (geoResolution, error) {
		if hit, ok := r.cache.Get(key); ok {
			return hit, nil
		}
		point, found, err := r.geocoder.Geocode(ctx, strings.TrimSpace(location))
		if err != nil {
			return geoResolution{}, err
		}
		res := geoResolution{point: point, found: found}
		r.cache.Add(key, res)
		return res, nil
	})
	if err != nil {
		return domain.LatLng{}, false, fmt.Errorf("geocode %q: %w", location, err)
	}
	return res.point, res.found, nil
}

func normalizeLocation(location string) string {
	return strings.Join(strings.Fields(strings.ToLower(location)), " ")
}
