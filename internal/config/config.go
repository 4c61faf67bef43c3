// Package config loads the storage core's configuration options, mirroring
// how the teacher repo's server/conf package loads its Cfg struct, but
// backed by gopkg.in/ini.v1 instead of the teacher's bespoke TOML reader.
package config

import (
	"gopkg.in/ini.v1"
)

// DefaultMaxHashDepth is the spec's fixed MAX_DEPTH for the extendible hash
// table's directory.
const DefaultMaxHashDepth = 9

// Options is the spec's §6 configuration surface: {pool_size, num_instances,
// max_hash_depth}.
type Options struct {
	PoolSize     int
	NumInstances int
	MaxHashDepth int
}

// Validate fills in defaults and rejects non-positive sizes.
func (o *Options) Validate() error {
	if o.NumInstances <= 0 {
		o.NumInstances = 1
	}
	if o.MaxHashDepth <= 0 {
		o.MaxHashDepth = DefaultMaxHashDepth
	}
	if o.PoolSize <= 0 {
		return errInvalidPoolSize
	}
	return nil
}

var errInvalidPoolSize = poolSizeError{}

type poolSizeError struct{}

func (poolSizeError) Error() string { return "config: pool_size must be positive" }

// Default returns the spec's literal defaults with the given pool size.
func Default(poolSize int) Options {
	return Options{
		PoolSize:     poolSize,
		NumInstances: 1,
		MaxHashDepth: DefaultMaxHashDepth,
	}
}

// Load reads Options from an INI file under a "[storage]" section:
//
//	[storage]
//	pool_size = 128
//	num_instances = 4
//	max_hash_depth = 9
func Load(path string) (Options, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Options{}, err
	}
	sec := cfg.Section("storage")
	opts := Options{
		PoolSize:     sec.Key("pool_size").MustInt(0),
		NumInstances: sec.Key("num_instances").MustInt(1),
		MaxHashDepth: sec.Key("max_hash_depth").MustInt(DefaultMaxHashDepth),
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
