// Package config holds the functional-options Config for a bplusqld
// instance, with an optional YAML overlay for operators who'd rather not
// pass flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the reference configuration (a 1024-entry cache), plus the
// data directory the Catalog opens table files under. The on-disk page
// size is not configurable here: it is the package-level bplustree.PageSize
// constant, which sizes the fixed Node arrays at compile time and cannot
// be varied per instance.
type Config struct {
	DataDir       string `yaml:"dataDir"`
	CacheCapacity int    `yaml:"cacheCapacity"`
	Verbosity     int    `yaml:"verbosity"`
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithDataDir overrides the directory table files are opened under.
func WithDataDir(dir string) Option {
	return func(c *Config) { c.DataDir = dir }
}

// WithCacheCapacity overrides the NodeCache entry capacity.
func WithCacheCapacity(n int) Option {
	return func(c *Config) { c.CacheCapacity = n }
}

// WithVerbosity sets the logr V-level threshold passed to obslog.
func WithVerbosity(v int) Option {
	return func(c *Config) { c.Verbosity = v }
}

// New builds a Config from the reference defaults, overridden left to
// right by opts.
func New(opts ...Option) *Config {
	c := &Config{
		DataDir:       "data",
		CacheCapacity: 1024,
		Verbosity:     0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads a YAML file at path and overlays it onto the reference
// defaults. A missing file is not an error — it returns the defaults
// unchanged, since operators who never wrote a config file should still
// get a working instance.
func Load(path string, opts ...Option) (*Config, error) {
	c := New(opts...)

	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return c, nil
}
