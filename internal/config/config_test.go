package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/mapview/internal/validate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderNone, cfg.Geolocation.Provider)
	assert.Equal(t, 5*time.Second, cfg.Geolocation.Timeout)
	assert.True(t, cfg.Geolocation.HighAccuracy)
	assert.Equal(t, "~/.config/mapview/places.yaml", cfg.Places.File)
	assert.Equal(t, "map.snapTo", cfg.Navigation.Subject)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Viewport.YieldToUser)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
map:
  style_url: https://tiles.example/style.json
geolocation:
  provider: static
  timeout: 2s
  latitude: 51.5072
  longitude: -0.1276
navigation:
  nats_url: nats://127.0.0.1:4222
  subject: maps.navigate
viewport:
  yield_to_user: true
metrics:
  addr: 127.0.0.1:9102
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tiles.example/style.json", cfg.Map.StyleURL)
	assert.Equal(t, ProviderStatic, cfg.Geolocation.Provider)
	assert.Equal(t, 2*time.Second, cfg.Geolocation.Timeout)
	assert.InDelta(t, 51.5072, cfg.Geolocation.Latitude, 1e-9)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Navigation.NATSURL)
	assert.Equal(t, "maps.navigate", cfg.Navigation.Subject)
	assert.True(t, cfg.Viewport.YieldToUser)
	assert.Equal(t, "127.0.0.1:9102", cfg.Metrics.Addr)

	opts := cfg.Geolocation.Options()
	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.True(t, opts.HighAccuracy)
	assert.Zero(t, opts.MaximumAge)
}

func TestLoad_GeoIP(t *testing.T) {
	path := writeConfig(t, `
geolocation:
  provider: geoip
  database: /var/lib/GeoLite2-City.mmdb
  address: 81.2.69.142
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGeoIP, cfg.Geolocation.Provider)
	assert.Equal(t, "81.2.69.142", cfg.Geolocation.Address)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAPVIEW_GEOLOCATION_PROVIDER", "static")
	t.Setenv("MAPVIEW_NAVIGATION_SUBJECT", "env.subject")
	path := writeConfig(t, "geolocation:\n  provider: none\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderStatic, cfg.Geolocation.Provider)
	assert.Equal(t, "env.subject", cfg.Navigation.Subject)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantTag string
	}{
		{name: "unknown provider", body: "geolocation:\n  provider: gps\n", wantTag: "oneof"},
		{name: "geoip without database", body: "geolocation:\n  provider: geoip\n", wantTag: "required_if"},
		{name: "bad latitude", body: "geolocation:\n  latitude: 95\n", wantTag: "latitude"},
		{name: "zero timeout", body: "geolocation:\n  timeout: 0s\n", wantTag: "gt"},
		{name: "bad log format", body: "log:\n  format: xml\n", wantTag: "oneof"},
		{name: "bad address", body: "geolocation:\n  address: not-an-ip\n", wantTag: "ip"},
		{
			name:    "geoip without address",
			body:    "geolocation:\n  provider: geoip\n  database: /var/lib/GeoLite2-City.mmdb\n",
			wantTag: "required_if",
		},
		{
			name:    "geoip with bad address",
			body:    "geolocation:\n  provider: geoip\n  database: /var/lib/GeoLite2-City.mmdb\n  address: 81.2.69\n",
			wantTag: "ip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")

			var errs validate.Errors
			require.ErrorAs(t, err, &errs)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantTag, errs[0].Tag)
		})
	}
}
