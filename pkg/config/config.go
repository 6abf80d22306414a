// Package config reads the YAML file shared by the import and server
// binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"poi_router/pkg/codec"
	"poi_router/pkg/store"
)

// Config is the top-level YAML document.
type Config struct {
	Graph  GraphOptions  `yaml:"graph"`
	Import ImportOptions `yaml:"import"`
	Server ServerOptions `yaml:"server"`
	Log    LogOptions    `yaml:"log"`
}

// GraphOptions controls the on-disk graph.
type GraphOptions struct {
	Dir       string         `yaml:"dir"`
	Codec     codec.Type     `yaml:"codec"`
	BlockSize int            `yaml:"block-size"`
	TimeUnit  store.TimeUnit `yaml:"time-unit"`
}

// ImportOptions controls cmd/import.
type ImportOptions struct {
	OSM              string    `yaml:"osm"`
	POIs             string    `yaml:"pois"`
	LargestComponent bool      `yaml:"largest-component"`
	Buckets          int       `yaml:"buckets"`
	BBox             []float64 `yaml:"bbox"` // minLat, minLng, maxLat, maxLng
	ServiceCost      struct {
		Min  int32  `yaml:"min"`
		Max  int32  `yaml:"max"`
		Seed uint64 `yaml:"seed"`
	} `yaml:"service-cost"`
}

// ServerOptions controls cmd/server.
type ServerOptions struct {
	Addr          string        `yaml:"addr"`
	ReadTimeout   time.Duration `yaml:"read-timeout"`
	WriteTimeout  time.Duration `yaml:"write-timeout"`
	MaxConcurrent int           `yaml:"max-concurrent"`
	CORSOrigin    string        `yaml:"cors-origin"`
	MaxSnapMeters float64       `yaml:"max-snap-meters"`
}

// LogOptions selects the log format and level.
type LogOptions struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.Graph = GraphOptions{
		Dir:       "data/graph",
		Codec:     codec.Gzip,
		BlockSize: store.DefaultBlockSize,
		TimeUnit:  store.Millisecond,
	}
	c.Import.Buckets = 1
	c.Import.ServiceCost.Min = 1
	c.Import.ServiceCost.Max = 300000
	c.Import.ServiceCost.Seed = 1
	c.Server = ServerOptions{
		Addr:          ":8080",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		MaxSnapMeters: 1000,
	}
	c.Log = LogOptions{Level: "info", Format: "text"}
	return c
}

// Read loads file over the defaults. Keys missing from the file keep
// their default value.
func Read(file string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(file)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", file, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", file, err)
	}
	return c, nil
}

// Validate checks the values that cannot be repaired with a default.
func (c Config) Validate() error {
	if c.Graph.Dir == "" {
		return fmt.Errorf("graph.dir is empty")
	}
	if c.Graph.BlockSize < 1 {
		return fmt.Errorf("graph.block-size must be positive, got %d", c.Graph.BlockSize)
	}
	if n := len(c.Import.BBox); n != 0 && n != 4 {
		return fmt.Errorf("import.bbox needs 4 values, got %d", n)
	}
	if sc := c.Import.ServiceCost; sc.Max <= sc.Min {
		return fmt.Errorf("import.service-cost max %d must exceed min %d", sc.Max, sc.Min)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// StoreOptions applies the graph section to store options.
func (g GraphOptions) StoreOptions(o *store.Options) {
	o.Codec = g.Codec
	o.BlockSize = g.BlockSize
	o.TimeUnit = g.TimeUnit
}
