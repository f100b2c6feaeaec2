// Package config loads the engine settings from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/1F47E/geo-track-view/pkg/dedupe"
	"github.com/1F47E/geo-track-view/pkg/elevation"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/simplify"
	"github.com/1F47E/geo-track-view/pkg/view"
	"github.com/1F47E/geo-track-view/pkg/visibility"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// DefaultFiles are tried in order when no path is given
var DefaultFiles = []string{"config.yaml", "config.yaml.example"}

// Config structure for YAML configuration
type Config struct {
	Engine struct {
		IndexZoom          float64   `yaml:"index_zoom"`
		Subdivisions       int       `yaml:"subdivisions"`
		MaxEnumeratedTiles int64     `yaml:"max_enumerated_tiles"`
		DedupeTolerances   []float64 `yaml:"dedupe_tolerances"`
	} `yaml:"engine"`
	Simplify  simplify.Curve     `yaml:"simplify"`
	Elevation elevation.Denoiser `yaml:"elevation"`
	View      struct {
		DefaultCenter models.Coordinate `yaml:"default_center"`
		FitPadding    view.Padding      `yaml:"fit_padding"`
	} `yaml:"view"`
}

// Default returns the built-in settings
func Default() Config {
	var c Config
	c.Engine.IndexZoom = visibility.DefaultIndexZoom
	c.Engine.Subdivisions = 1
	c.Engine.MaxEnumeratedTiles = visibility.DefaultMaxEnumeratedTiles
	c.Engine.DedupeTolerances = append([]float64(nil), dedupe.DefaultTolerances...)
	c.Simplify = simplify.DefaultCurve
	c.Elevation = elevation.DefaultDenoiser
	c.View.DefaultCenter = view.DefaultCenter
	c.View.FitPadding = view.DefaultPadding
	return c
}

// Parse overlays YAML data on the defaults and validates the result
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the config at path. An empty path tries DefaultFiles and
// falls back to Default when none exists.
func Load(path string) (Config, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		return Parse(data)
	}

	for _, candidate := range DefaultFiles {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		return Parse(data)
	}
	return Default(), nil
}

// Validate checks every field and reports all problems at once
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(finite(c.Engine.IndexZoom) && c.Engine.IndexZoom >= 0 && c.Engine.IndexZoom <= 30,
		"engine.index_zoom must be in [0, 30], got %v", c.Engine.IndexZoom)
	check(c.Engine.Subdivisions >= 1, "engine.subdivisions must be at least 1, got %d", c.Engine.Subdivisions)
	check(c.Engine.MaxEnumeratedTiles >= 0, "engine.max_enumerated_tiles must not be negative, got %d", c.Engine.MaxEnumeratedTiles)
	for i, tol := range c.Engine.DedupeTolerances {
		check(finite(tol) && tol > 0, "engine.dedupe_tolerances[%d] must be positive, got %v", i, tol)
	}

	check(finite(c.Simplify.BaseMeters) && c.Simplify.BaseMeters >= 0,
		"simplify.base_meters must not be negative, got %v", c.Simplify.BaseMeters)
	check(finite(c.Simplify.MaxZoom) && c.Simplify.MaxZoom >= 0,
		"simplify.max_zoom must not be negative, got %v", c.Simplify.MaxZoom)

	check(c.Elevation.Window >= 1, "elevation.window must be at least 1, got %d", c.Elevation.Window)
	check(finite(c.Elevation.Threshold) && c.Elevation.Threshold > 0,
		"elevation.threshold must be positive, got %v", c.Elevation.Threshold)
	check(finite(c.Elevation.MinSpread) && c.Elevation.MinSpread >= 0,
		"elevation.min_spread must not be negative, got %v", c.Elevation.MinSpread)

	center := c.View.DefaultCenter
	check(center.Lat >= -90 && center.Lat <= 90 && center.Lon >= -180 && center.Lon <= 180,
		"view.default_center out of range: %v,%v", center.Lat, center.Lon)
	check(c.View.FitPadding.Horizontal >= 0 && c.View.FitPadding.Vertical >= 0,
		"view.fit_padding must not be negative")

	return errors.Join(errs...)
}

// TrackerOptions returns the visibility options described by the config
func (c Config) TrackerOptions() []visibility.Option {
	return []visibility.Option{
		visibility.WithIndexZoom(c.Engine.IndexZoom, c.Engine.Subdivisions),
		visibility.WithMaxEnumeratedTiles(c.Engine.MaxEnumeratedTiles),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
