package render

import (
	"log/slog"
	"runtime"

	"github.com/LukeP0WERS/fidget/pkg/interval"
)

// Defaults used when an option is not given.
const (
	DefaultSize        = 256
	DefaultTileSize    = 64
	DefaultMinTile     = 8
	DefaultSupersample = 1
)

// Region is the area of the XY plane an image covers.
type Region struct {
	X, Y interval.Interval
}

// DefaultBounds is the square [-1, 1]².
var DefaultBounds = Region{X: interval.New(-1, 1), Y: interval.New(-1, 1)}

// Config holds renderer settings.
type Config struct {
	Size        int // output edge length in pixels
	TileSize    int // edge of the tiles handed to workers
	MinTile     int // tiles this small are evaluated per pixel
	Bounds      Region
	Z           float64 // plane the image is sliced from
	Workers     int
	Supersample int // samples per output pixel along each axis
	Logger      *slog.Logger
}

// Option configures a render.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Size:        DefaultSize,
		TileSize:    DefaultTileSize,
		MinTile:     DefaultMinTile,
		Bounds:      DefaultBounds,
		Workers:     runtime.GOMAXPROCS(0),
		Supersample: DefaultSupersample,
	}
}

// WithSize sets the output edge length in pixels.
func WithSize(n int) Option { return func(c *Config) { c.Size = n } }

// WithTileSize sets the root tile edge and the edge at which subdivision
// stops.
func WithTileSize(root, min int) Option {
	return func(c *Config) { c.TileSize, c.MinTile = root, min }
}

// WithBounds sets the rendered region.
func WithBounds(b Region) Option { return func(c *Config) { c.Bounds = b } }

// WithZ sets the plane the image is sliced from.
func WithZ(z float64) Option { return func(c *Config) { c.Z = z } }

// WithWorkers limits the number of tiles rendered at once.
func WithWorkers(n int) Option { return func(c *Config) { c.Workers = n } }

// WithSupersample renders n×n samples per output pixel and downscales.
func WithSupersample(n int) Option { return func(c *Config) { c.Supersample = n } }

// WithLogger sets the logger for render statistics.
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }
