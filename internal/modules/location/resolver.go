// README: City resolution: external geocoder first, then a declared table of known cities.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	qlog "qibla/internal/log"
	"qibla/internal/types"
)

// Geocoder resolves a free-text query to its best-matching place.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// Observer records resolution outcomes. Implemented by the metrics collector.
type Observer interface {
	ObserveResolution(source, outcome string)
}

// Resolution outcomes.
const (
	OutcomeMatched     = "matched"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
)

type knownCity struct {
	name  string
	point types.Point
}

// builtinCities is consulted only when the geocoder is unreachable.
var builtinCities = []knownCity{
	{"London", types.Point{Lat: 51.5074, Lng: -0.1278}},
	{"New York", types.Point{Lat: 40.7128, Lng: -74.0060}},
	{"Dubai", types.Point{Lat: 25.2048, Lng: 55.2708}},
	{"Karachi", types.Point{Lat: 24.8607, Lng: 67.0011}},
	{"Rome", types.Point{Lat: 41.9028, Lng: 12.4964}},
	{"Paris", types.Point{Lat: 48.8566, Lng: 2.3522}},
	{"Istanbul", types.Point{Lat: 41.0082, Lng: 28.9784}},
	{"Cairo", types.Point{Lat: 30.0444, Lng: 31.2357}},
	{"Makkah", types.Point{Lat: 21.3891, Lng: 39.8579}},
	{"Madinah", types.Point{Lat: 24.5247, Lng: 39.5692}},
}

// KnownCities lists the names available without a geocoder.
func KnownCities() []string {
	names := make([]string, len(builtinCities))
	for i, c := range builtinCities {
		names[i] = c.name
	}
	return names
}

func lookupBuiltin(name string) (Place, bool) {
	for _, c := range builtinCities {
		if strings.EqualFold(c.name, name) {
			return Place{Name: c.name, Point: c.point, Source: SourceBuiltin}, true
		}
	}
	return Place{}, false
}

type Resolver struct {
	geocoder Geocoder
	observer Observer
	log      *slog.Logger
}

// NewResolver builds a resolver. geocoder may be nil, in which case only the
// built-in table is used.
func NewResolver(geocoder Geocoder, observer Observer) *Resolver {
	return &Resolver{geocoder: geocoder, observer: observer, log: qlog.With("component", "resolver")}
}

// ResolveCity looks name up through the geocoder. A geocoder that answers
// with no match is authoritative; a geocoder that fails falls back to the
// built-in table.
func (r *Resolver) ResolveCity(ctx context.Context, name string) (Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Place{}, fmt.Errorf("%w: empty query", ErrCityNotFound)
	}

	cause := errors.New("no geocoder configured")
	if r.geocoder != nil {
		p, err := r.geocoder.Geocode(ctx, name)
		switch {
		case err == nil:
			r.observe(p.Source, OutcomeMatched)
			return p, nil
		case errors.Is(err, ErrNoMatch):
			r.log.Info("city not found by geocoder", "query", name)
			r.observe("geocoder", OutcomeNotFound)
			return Place{}, fmt.Errorf("%w: %q: %w", ErrCityNotFound, name, err)
		default:
			r.log.Warn("geocoder unavailable, using built-in table", "query", name, "error", err)
			r.observe("geocoder", OutcomeUnavailable)
			cause = err
		}
	}

	if p, ok := lookupBuiltin(name); ok {
		r.observe(SourceBuiltin, OutcomeMatched)
		return p, nil
	}
	r.observe(SourceBuiltin, OutcomeNotFound)
	return Place{}, fmt.Errorf("%w: %q (%v)", ErrCityNotFound, name, cause)
}

func (r *Resolver) observe(source, outcome string) {
	if r.observer != nil {
		r.observer.ObserveResolution(source, outcome)
	}
}

// Chain tries each geocoder in order and returns the first match. When every
// geocoder reports no match the chain reports ErrNoMatch; if any of them was
// unavailable its error is returned instead.
type Chain []Geocoder

func (c Chain) Geocode(ctx context.Context, query string) (Place, error) {
	if len(c) == 0 {
		return Place{}, errors.New("empty geocoder chain")
	}
	var unavailable error
	for _, g := range c {
		p, err := g.Geocode(ctx, query)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			unavailable = err
		}
	}
	if unavailable != nil {
		return Place{}, unavailable
	}
	return Place{}, ErrNoMatch
}
