// README: Entry point; loads config, wires geocoders, finder sessions and metrics, starts the HTTP server and the session janitor.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"qibla/internal/config"
	httptransport "qibla/internal/http"
	"qibla/internal/infra"
	qlog "qibla/internal/log"
	"qibla/internal/maps"
	"qibla/internal/modules/camera"
	"qibla/internal/modules/finder"
	"qibla/internal/modules/location"
	"qibla/internal/observability"
	"qibla/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config", err)
	}
	qlog.Init(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		fatal("metrics", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		fatal("postgres", err)
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		qlog.Warn("redis unavailable, geocode cache disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		geocoders location.Chain
		gazetteer *location.Gazetteer
	)
	if dbPool != nil {
		gazetteer = location.NewGazetteer(dbPool)
		geocoders = append(geocoders, gazetteer)
	}
	if cfg.Geocoding.GoogleMapsKey != "" {
		gs, err := maps.NewGeocodeService(cfg.Geocoding.GoogleMapsKey)
		if err != nil {
			fatal("google maps", err)
		}
		geocoders = append(geocoders, gs)
	}
	if cfg.Geocoding.OpenCageKey != "" {
		geocoders = append(geocoders, maps.NewOpenCageClient(cfg.Geocoding.OpenCageURL, cfg.Geocoding.OpenCageKey, cfg.Geocoding.Timeout))
	}

	var geocoder location.Geocoder
	if len(geocoders) > 0 {
		geocoder = location.NewCachedGeocoder(geocoders, redisClient, cfg.Geocoding.CacheTTL)
	}
	resolver := location.NewResolver(geocoder, metrics)

	var deviceLocator location.Locator
	if cfg.Device.HasFix {
		deviceLocator = location.Static{Point: types.Point{Lat: cfg.Device.Lat, Lng: cfg.Device.Lng}}
	}
	locationSvc := location.NewService(deviceLocator, cfg.Device.LocateTimeout)

	var device camera.Device
	if cfg.Device.CameraEnabled {
		device = camera.NewCaptureDevice(cfg.Device.CameraID)
	}

	// one manager for the one capture device; sessions take turns holding it
	cameraMgr := camera.NewManager(device, camera.NewPlatformSink(), metrics)

	registry := finder.NewRegistry(func(string) finder.Deps {
		return finder.Deps{
			Location: locationSvc,
			Resolver: resolver,
			Camera:   cameraMgr,
			Observer: metrics,
		}
	}, cfg.Session.IdleTTL)
	go registry.Run(ctx, cfg.Session.SweepInterval)

	server := httptransport.NewServer(httptransport.ServerDeps{
		Registry: registry,
		Resolver: resolver,
		Places:   gazetteer,
		Metrics:  metrics,
		Logger:   qlog.L(),
		APIKey:   cfg.HTTP.APIKey,
	})

	qlog.Info("qibla api listening",
		"addr", cfg.HTTP.Addr,
		"geocoders", len(geocoders),
		"device_fix", cfg.Device.HasFix,
		"camera", device != nil,
	)
	if err := server.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
		fatal("http server", err)
	}
}

func fatal(msg string, err error) {
	qlog.Error(msg, "error", err)
	os.Exit(1)
}
