// Package config loads mapview settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ensigniasec/mapview/internal/geolocation"
	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/places"
	"github.com/ensigniasec/mapview/internal/validate"
)

// EnvPrefix namespaces environment overrides: MAPVIEW_GEOLOCATION_PROVIDER → geolocation.provider.
const EnvPrefix = "MAPVIEW"

// Geolocation providers.
const (
	ProviderNone   = "none"
	ProviderStatic = "static"
	ProviderGeoIP  = "geoip"
)

// Config holds all application configuration.
type Config struct {
	Map         MapConfig         `mapstructure:"map"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Places      PlacesConfig      `mapstructure:"places"`
	Navigation  NavigationConfig  `mapstructure:"navigation"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Viewport    ViewportConfig    `mapstructure:"viewport"`
	Log         LogConfig         `mapstructure:"log"`
}

type MapConfig struct {
	StyleURL string `mapstructure:"style_url" validate:"omitempty,url"`
}

type GeolocationConfig struct {
	Provider     string        `mapstructure:"provider" validate:"oneof=none static geoip"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	HighAccuracy bool          `mapstructure:"high_accuracy"`
	Latitude     float64       `mapstructure:"latitude" validate:"latitude"`
	Longitude    float64       `mapstructure:"longitude" validate:"longitude"`
	Database     string        `mapstructure:"database" validate:"required_if=Provider geoip"`
	Address      string        `mapstructure:"address" validate:"required_if=Provider geoip,omitempty,ip"`
}

// Options converts the section into resolver request options.
func (g GeolocationConfig) Options() geolocation.Options {
	return geolocation.Options{HighAccuracy: g.HighAccuracy, Timeout: g.Timeout}
}

type PlacesConfig struct {
	File string `mapstructure:"file" validate:"required"`
}

type NavigationConfig struct {
	NATSURL string `mapstructure:"nats_url" validate:"omitempty,url"`
	Subject string `mapstructure:"subject" validate:"required"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type ViewportConfig struct {
	YieldToUser bool `mapstructure:"yield_to_user"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}

// Load reads configuration. An explicit path must exist; otherwise mapview.yaml is looked up
// in the working directory and ~/.config/mapview and is optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("mapview")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mapview"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// Environment variables: MAPVIEW_NAVIGATION_NATS_URL → navigation.nats_url
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("map.style_url", "")
	v.SetDefault("geolocation.provider", ProviderNone)
	v.SetDefault("geolocation.timeout", geolocation.DefaultOptions().Timeout)
	v.SetDefault("geolocation.high_accuracy", true)
	v.SetDefault("geolocation.latitude", 0.0)
	v.SetDefault("geolocation.longitude", 0.0)
	v.SetDefault("geolocation.database", "")
	v.SetDefault("geolocation.address", "")
	v.SetDefault("places.file", places.DefaultPath)
	v.SetDefault("navigation.nats_url", "")
	v.SetDefault("navigation.subject", navigation.DefaultSubject)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("viewport.yield_to_user", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Validate checks every section against its rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
