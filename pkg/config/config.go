// Package config loads panpart run configuration files.
//
// A configuration file holds the defaults of every command, so long runs
// can be reproduced without retyping flags. TOML and YAML are accepted and
// chosen by file extension:
//
//	[partition]
//	beta = 2.5
//	max_degree = 10
//	chunk_size = 500
//
//	[evolution]
//	resampling = "0.1,10,10,1,Inf,1"
//	workers = 8
//
//	[cache]
//	backend = "redis"
//	ttl = "720h"
//	[cache.redis]
//	addr = "localhost:6379"
//
// Command line flags always win over file values. Unknown keys are
// configuration errors, so a typo never silently falls back to a default.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/panpart/pkg/cache"
	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	"github.com/matzehuels/panpart/pkg/pipeline"
)

// EnvPath names the environment variable holding the default config path.
const EnvPath = "PANPART_CONFIG"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the content of a configuration file.
type Config struct {
	Partition Partition `toml:"partition" yaml:"partition"`
	Evolution Evolution `toml:"evolution" yaml:"evolution"`
	Cache     Cache     `toml:"cache" yaml:"cache"`
}

// Partition holds the partition defaults.
type Partition struct {
	Q              int     `toml:"q" yaml:"q"`
	Qmin           int     `toml:"qmin" yaml:"qmin"`
	Qmax           int     `toml:"qmax" yaml:"qmax"`
	Margin         float64 `toml:"icl_margin" yaml:"icl_margin"`
	Beta           float64 `toml:"beta" yaml:"beta"`
	MaxDegree      int     `toml:"max_degree" yaml:"max_degree"`
	FreeDispersion bool    `toml:"free_dispersion" yaml:"free_dispersion"`
	Seed           uint64  `toml:"seed" yaml:"seed"`
	ChunkSize      int     `toml:"chunk_size" yaml:"chunk_size"`
	SoftCore       float64 `toml:"soft_core" yaml:"soft_core"`
	RemoveHighCopy int     `toml:"remove_high_copy" yaml:"remove_high_copy"`
	Workers        int     `toml:"workers" yaml:"workers"`
	Workdir        string  `toml:"workdir" yaml:"workdir"`
	KeepTempFiles  bool    `toml:"keep_tmp" yaml:"keep_tmp"`
}

// Evolution holds the evolution defaults.
type Evolution struct {
	// Resampling uses the six positional parameters
	// ratio,min,max,step,limit,evolutionQ.
	Resampling         string `toml:"resampling" yaml:"resampling"`
	Workers            int    `toml:"workers" yaml:"workers"`
	MinOrganismsForFit int    `toml:"min_organisms_for_fit" yaml:"min_organisms_for_fit"`
}

// Cache selects where chunk results are cached.
type Cache struct {
	Backend string            `toml:"backend" yaml:"backend"`
	Dir     string            `toml:"dir" yaml:"dir"`
	TTL     Duration          `toml:"ttl" yaml:"ttl"`
	Redis   cache.RedisConfig `toml:"redis" yaml:"redis"`
}

// Duration is a time.Duration written as a Go duration string ("720h").
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// Default returns the built in configuration.
func Default() Config {
	opts := pipeline.DefaultOptions()
	return Config{
		Partition: Partition{
			Qmin:      opts.Qmin,
			Qmax:      opts.Qmax,
			Margin:    opts.Margin,
			Beta:      opts.Beta,
			MaxDegree: opts.MaxDegree,
			Seed:      opts.Seed,
			ChunkSize: opts.ChunkSize,
			SoftCore:  opts.SoftCoreThreshold,
			Workers:   opts.Workers,
		},
		Evolution: Evolution{
			Resampling:         evolution.DefaultResampling().String(),
			Workers:            1,
			MinOrganismsForFit: evolution.DefaultMinOrganismsForFit,
		},
		Cache: Cache{
			Backend: BackendFile,
			TTL:     Duration{cache.TTLChunk},
		},
	}
}

// Load reads the file at path over the defaults. An empty path loads the
// file named by $PANPART_CONFIG, or returns the defaults when it is unset.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
		if path == "" {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config file %s", path)
	}
	if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeConfiguration, err, "config file %s", path)
	}
	return cfg, cfg.Validate()
}

// Decode parses data in the format named by ext (".toml", ".yaml" or
// ".yml") over cfg.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return errors.Configuration("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return err
		}
		return nil
	}
	return errors.New(errors.ErrCodeUnsupported, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
}

// Validate checks values that are not checked by the pipeline options.
func (c Config) Validate() error {
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return errors.Configuration("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return errors.Configuration("redis cache needs an address")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.Configuration("cache ttl must not be negative")
	}
	if _, err := c.Evolution.ResamplingParams(); err != nil {
		return err
	}
	opts := c.Partition.Options()
	return opts.ValidateAndSetDefaults()
}

// Options converts the partition section to pipeline options.
func (p Partition) Options() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Q = p.Q
	opts.Qmin = p.Qmin
	opts.Qmax = p.Qmax
	opts.Margin = p.Margin
	opts.Beta = p.Beta
	opts.MaxDegree = p.MaxDegree
	opts.FreeDispersion = p.FreeDispersion
	opts.Seed = p.Seed
	opts.ChunkSize = p.ChunkSize
	opts.SoftCoreThreshold = p.SoftCore
	opts.RemoveHighCopy = p.RemoveHighCopy
	opts.Workers = p.Workers
	opts.Workdir = p.Workdir
	opts.KeepTempFiles = p.KeepTempFiles
	return opts
}

// ResamplingParams parses the resampling string.
func (e Evolution) ResamplingParams() (evolution.Resampling, error) {
	return evolution.ParseResampling(e.Resampling)
}

// Encode writes cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return buf.Bytes(), nil
}
