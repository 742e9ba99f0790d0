package geolocation

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"
)

// StaticLocator reports a fixed, always-fresh position (a configured home location).
type StaticLocator struct {
	Longitude float64
	Latitude  float64
}

// CurrentPosition implements Locator.
func (s StaticLocator) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{Longitude: s.Longitude, Latitude: s.Latitude, Timestamp: time.Now()}, nil
}

// cityReader is the subset of *geoip2.Reader used here.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// GeoIPLocator locates the host from its public address using a MaxMind City database.
// It cannot honour HighAccuracy; the accuracy radius is reported instead.
type GeoIPLocator struct {
	db   cityReader
	addr net.IP
}

// OpenGeoIP opens the database at path and resolves addr on every lookup.
func OpenGeoIP(path, addr string) (*GeoIPLocator, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("geoip: invalid address %q", addr)
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return &GeoIPLocator{db: db, addr: ip}, nil
}

// CurrentPosition implements Locator.
func (g *GeoIPLocator) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if opts.HighAccuracy {
		logrus.Debug("geoip: high accuracy requested; city-level precision only")
	}
	city, err := g.db.City(g.addr)
	if err != nil {
		return Position{}, fmt.Errorf("geoip: lookup %s: %w", g.addr, err)
	}
	loc := city.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && loc.AccuracyRadius == 0 {
		return Position{}, ErrNoFix
	}
	return Position{
		Longitude: loc.Longitude,
		Latitude:  loc.Latitude,
		Accuracy:  float64(loc.AccuracyRadius) * 1000,
		Timestamp: time.Now(),
	}, nil
}

// Close releases the database.
func (g *GeoIPLocator) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}
