package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"QIBLA_HTTP_ADDR", "QIBLA_DEVICE_LAT", "QIBLA_DEVICE_LNG", "QIBLA_LOCATE_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Device.LocateTimeout != 10*time.Second {
		t.Errorf("LocateTimeout = %v, want 10s", cfg.Device.LocateTimeout)
	}
}

func TestLoad_DeviceFix(t *testing.T) {
	t.Setenv("QIBLA_DEVICE_LAT", "51.5074")
	t.Setenv("QIBLA_DEVICE_LNG", "-0.1278")
	t.Setenv("QIBLA_LOCATE_TIMEOUT", "3s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Device.HasFix {
		t.Fatal("expected device fix to be configured")
	}
	if cfg.Device.Lat != 51.5074 || cfg.Device.Lng != -0.1278 {
		t.Errorf("device = %v,%v", cfg.Device.Lat, cfg.Device.Lng)
	}
	if cfg.Device.LocateTimeout != 3*time.Second {
		t.Errorf("LocateTimeout = %v, want 3s", cfg.Device.LocateTimeout)
	}
}

func TestLoad_BadDeviceFix(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng string
	}{
		{"typo in latitude", "51.5O74", "-0.1278"},
		{"latitude out of range", "95", "-0.1278"},
		{"longitude out of range", "51.5074", "181"},
		{"longitude missing", "51.5074", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QIBLA_DEVICE_LAT", tt.lat)
			t.Setenv("QIBLA_DEVICE_LNG", tt.lng)
			if _, err := Load(); err == nil {
				t.Fatal("expected an error for a bad device position")
			}
		})
	}
}
