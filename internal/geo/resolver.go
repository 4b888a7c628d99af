// Package geo determines the coordinates the session is scoped to, either
// from static configuration or an IP-based lookup at startup.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmylchreest/locastarr/internal/config"
	"github.com/jmylchreest/locastarr/internal/observability"
	"github.com/jmylchreest/locastarr/internal/version"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Resolver resolves the session coordinates.
type Resolver struct {
	cfg    config.GeoConfig
	http   *http.Client
	logger *slog.Logger
}

// NewResolver creates a Resolver from the geo configuration.
func NewResolver(cfg config.GeoConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: observability.WithComponent(logger, "geo"),
	}
}

// Resolve returns the coordinates to scope the session to. When lookup is
// disabled the configured static coordinates are returned directly. A
// failed lookup falls back to the static coordinates rather than failing
// startup; market resolution downstream decides whether they are usable.
func (r *Resolver) Resolve(ctx context.Context) Coordinates {
	static := Coordinates{Latitude: r.cfg.Latitude, Longitude: r.cfg.Longitude}
	if !r.cfg.Lookup {
		return static
	}

	coords, err := r.lookup(ctx)
	if err != nil {
		r.logger.Warn("IP geolocation failed, using configured coordinates",
			slog.String("error", err.Error()))
		return static
	}

	r.logger.Info("coordinates resolved by IP lookup",
		slog.Float64("lat", coords.Latitude),
		slog.Float64("lon", coords.Longitude),
	)
	return coords
}

// lookup queries the configured geolocation endpoint.
func (r *Resolver) lookup(ctx context.Context) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.LookupURL, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("building geolocation request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := r.http.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("querying geolocation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geolocation endpoint returned status %d", resp.StatusCode)
	}

	var coords Coordinates
	if err := json.NewDecoder(resp.Body).Decode(&coords); err != nil {
		return Coordinates{}, fmt.Errorf("decoding geolocation response: %w", err)
	}
	return coords, nil
}
