// README: CLI for one-shot Qibla lookups by coordinate or city name.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"qibla/internal/config"
	qlog "qibla/internal/log"
	"qibla/internal/maps"
	"qibla/internal/modules/location"
	"qibla/internal/modules/qibla"
	"qibla/internal/types"
)

func main() {
	var (
		lat     = flag.Float64("lat", 0, "origin latitude")
		lng     = flag.Float64("lng", 0, "origin longitude")
		city    = flag.String("city", "", "city name to resolve instead of lat/lng")
		heading = flag.Float64("heading", -1, "current compass heading; prints the turn needed")
		timeout = flag.Duration("timeout", 10*time.Second, "lookup timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		exit(err)
	}
	qlog.Init("warn")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	place := location.Place{Point: types.Point{Lat: *lat, Lng: *lng}, Source: location.SourceClient}
	if *city != "" {
		resolver := location.NewResolver(geocoder(cfg), nil)
		place, err = resolver.ResolveCity(ctx, *city)
		if errors.Is(err, location.ErrCityNotFound) {
			exit(fmt.Errorf("%w; try: %s", err, strings.Join(location.KnownCities(), ", ")))
		}
		if err != nil {
			exit(err)
		}
	} else if !place.Point.Valid() {
		exit(errors.New("lat must be within [-90,90] and lng within [-180,180]"))
	}

	res := qibla.Compute(place.Point)
	if place.Name != "" {
		fmt.Printf("Location:  %s (%s)\n", place.Name, place.Source)
	}
	fmt.Printf("Origin:    %.4f, %.4f\n", res.Origin.Lat, res.Origin.Lng)
	fmt.Printf("Qibla:     %d° %s (%.2f°)\n", res.Rounded(), qibla.CardinalDirection(res.BearingDegrees), res.BearingDegrees)
	fmt.Printf("Distance:  %d km to the Kaaba\n", res.DistanceKm)
	if *heading >= 0 {
		rel := qibla.RelativeAngle(res.BearingDegrees, *heading)
		fmt.Printf("Turn:      %d° clockwise from your heading\n", qibla.RoundDegrees(rel))
	}
}

func geocoder(cfg config.Config) location.Geocoder {
	var chain location.Chain
	if cfg.Geocoding.GoogleMapsKey != "" {
		if gs, err := maps.NewGeocodeService(cfg.Geocoding.GoogleMapsKey); err == nil {
			chain = append(chain, gs)
		}
	}
	if cfg.Geocoding.OpenCageKey != "" {
		chain = append(chain, maps.NewOpenCageClient(cfg.Geocoding.OpenCageURL, cfg.Geocoding.OpenCageKey, cfg.Geocoding.Timeout))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, "qibla:", err)
	os.Exit(1)
}
