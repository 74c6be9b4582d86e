package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

const DefaultRadiusMeters = 5000.0

// LocationResolver is the GeoResolver hand-off used by the filter builder.
type LocationResolver interface {
	Resolve(ctx context.Context, location string) (domain.LatLng, bool, error)
}

// StructuredFilterBuilder translates QueryParameters into a store predicate.
type StructuredFilterBuilder struct {
	locations     LocationResolver
	defaultRadius float64
	observer      ports.RetrievalObserver
	logger        *slog.Logger
}

func NewStructuredFilterBuilder(
	locations LocationResolver,
	defaultRadius float64,
	observer ports.RetrievalObserver,
	logger *slog.Logger,
) *StructuredFilterBuilder {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusMeters
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuredFilterBuilder{
		locations:     locations,
		defaultRadius: defaultRadius,
		observer:      observer,
		logger:        logger,
	}
}

func (b *StructuredFilterBuilder) Build(ctx context.Context, params domain.QueryParameters) (domain.StorePredicate, error) {
	var pred domain.StorePredicate

	if params.WouldReturn != nil {
		pred.Review.WouldReturnIn = params.WouldReturn.States()
	}

	if params.DateRange != nil {
		pred.Review.DateFrom = params.DateRange.Start
		pred.Review.DateTo = params.DateRange.End
	}

	for _, item := range params.ItemsOrdered {
		if item = strings.TrimSpace(item); item != "" {
			pred.Review.ItemSubstrings = append(pred.Review.ItemSubstrings, item)
		}
	}

	if params.RestaurantName != nil && strings.TrimSpace(*params.RestaurantName) != "" {
		name := strings.TrimSpace(*params.RestaurantName)
		pred.Place.NameContains = &name
	}

	if params.Location != nil && strings.TrimSpace(*params.Location) != "" {
		near, err := b.geoRadius(ctx, *params.Location, params.Radius)
		if err != nil {
			return domain.StorePredicate{}, err
		}
		pred.Place.Near = near
	}

	return pred, nil
}

// geoRadius resolves the location; a miss or geocoder failure drops the dimension.
func (b *StructuredFilterBuilder) geoRadius(ctx context.Context, location string, radius *float64) (*domain.GeoRadius, error) {
	if b.locations == nil {
		b.dropGeo(location, "no_geocoder", nil)
		return nil, nil
	}

	point, found, err := b.locations.Resolve(ctx, location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.dropGeo(location, "geocoder_error", err)
		return nil, nil
	}
	if !found {
		b.dropGeo(location, "not_found", nil)
		return nil, nil
	}

	r := b.defaultRadius
	if radius != nil && *radius > 0 {
		r = *radius
	}
	return &domain.GeoRadius{Center: point, RadiusMeters: r}, nil
}

func (b *StructuredFilterBuilder) dropGeo(location, reason string, err error) {
	attrs := []any{"location", location, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	b.logger.Warn("geo_dimension_dropped", attrs...)
	if b.observer != nil {
		b.observer.ObserveGeoDegraded(reason)
	}
}
