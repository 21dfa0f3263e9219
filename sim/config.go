package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DeviceConfig groups the I/O shape used to query the envelope and the
// single-mode physical ceilings.
type DeviceConfig struct {
	IODepth      int     `yaml:"iodepth" json:"iodepth"` // queue depth (must be > 0)
	NumJobs      int     `yaml:"numjobs" json:"numjobs"` // parallel submitters (must be > 0)
	BlockSizeKiB int     `yaml:"bs_k" json:"bs_k"`       // KiB (must be > 0)
	Br           float64 `yaml:"Br" json:"Br"`           // pure-read ceiling, MiB/s
	Bw           float64 `yaml:"Bw" json:"Bw"`           // pure-write ceiling, MiB/s
}

// DatabaseConfig groups storage-engine parameters.
type DatabaseConfig struct {
	CompressionRatio float64 `yaml:"compression_ratio" json:"compression_ratio"` // stored bytes per user byte
	WALFactor        float64 `yaml:"wal_factor" json:"wal_factor"`               // WAL bytes per user byte
}

// LevelParamsSpec is the per-level scaling as written in a config file.
// Nil pointer fields mean "not set" and fall back to LevelDefaults.
type LevelParamsSpec struct {
	Mu             *float64 `yaml:"mu" json:"mu"`
	K              *float64 `yaml:"k" json:"k"`
	Eta            *float64 `yaml:"eta" json:"eta"`
	CapacityFactor *float64 `yaml:"capacity_factor" json:"capacity_factor"`
}

// LevelParams is the resolved per-level scaling applied to envelope bandwidth.
type LevelParams struct {
	Mu             float64 `yaml:"mu"`              // scheduler efficiency
	K              float64 `yaml:"k"`               // codec factor
	Eta            float64 `yaml:"eta"`             // time-varying efficiency
	CapacityFactor float64 `yaml:"capacity_factor"` // share of device bandwidth
}

// Scale is the product applied to the envelope bandwidth.
func (p LevelParams) Scale() float64 {
	return p.Mu * p.K * p.Eta * p.CapacityFactor
}

// LevelDefaults is the defaults table consulted for unset level parameters.
// Resolution order: explicit config value, PerLevel entry, Global.
type LevelDefaults struct {
	Global   LevelParams             `yaml:"global"`
	PerLevel map[int]LevelParamsSpec `yaml:"per_level"`
}

// DefaultLevelDefaults returns the built-in table: every parameter 1.0.
func DefaultLevelDefaults() LevelDefaults {
	return LevelDefaults{
		Global: LevelParams{Mu: 1.0, K: 1.0, Eta: 1.0, CapacityFactor: 1.0},
	}
}

// Validate checks that every table entry is finite and non-negative.
func (d LevelDefaults) Validate() error {
	for name, v := range map[string]float64{"mu": d.Global.Mu, "k": d.Global.K, "eta": d.Global.Eta, "capacity_factor": d.Global.CapacityFactor} {
		if !finite(v) || v < 0 {
			return fmt.Errorf("global.%s must be a finite value >= 0, got %v", name, v)
		}
	}
	for level, spec := range d.PerLevel {
		if level < 0 {
			return fmt.Errorf("per_level references negative level %d", level)
		}
		for name, v := range map[string]*float64{"mu": spec.Mu, "k": spec.K, "eta": spec.Eta, "capacity_factor": spec.CapacityFactor} {
			if v != nil && (!finite(*v) || *v < 0) {
				return fmt.Errorf("per_level[%d].%s must be a finite value >= 0, got %v", level, name, *v)
			}
		}
	}
	return nil
}

// Resolve returns the parameters for level given its explicit spec.
func (d LevelDefaults) Resolve(level int, spec LevelParamsSpec) LevelParams {
	perLevel := d.PerLevel[level]
	pick := func(explicit, tableEntry *float64, global float64) float64 {
		if explicit != nil {
			return *explicit
		}
		if tableEntry != nil {
			return *tableEntry
		}
		return global
	}
	return LevelParams{
		Mu:             pick(spec.Mu, perLevel.Mu, d.Global.Mu),
		K:              pick(spec.K, perLevel.K, d.Global.K),
		Eta:            pick(spec.Eta, perLevel.Eta, d.Global.Eta),
		CapacityFactor: pick(spec.CapacityFactor, perLevel.CapacityFactor, d.Global.CapacityFactor),
	}
}

// Config is the immutable configuration of one simulation run.
// Loaded from YAML or JSON via LoadConfig(path).
type Config struct {
	Levels         []int                   `yaml:"levels" json:"levels"`
	Dt             float64                 `yaml:"dt" json:"dt"`                           // seconds per step
	MaxSteps       int                     `yaml:"max_steps" json:"max_steps"`             // fixed run length
	TargetPutRate  float64                 `yaml:"target_put_rate" json:"target_put_rate"` // MiB/s offered by the application
	StallThreshold float64                 `yaml:"stall_threshold" json:"stall_threshold"` // L0 files at which p_stall = 0.5
	StallSteepness float64                 `yaml:"stall_steepness" json:"stall_steepness"`
	L0FileSizeMB   float64                 `yaml:"l0_file_size_mb" json:"l0_file_size_mb"`
	Device         DeviceConfig            `yaml:"device" json:"device"`
	Database       DatabaseConfig          `yaml:"database" json:"database"`
	LevelParams    map[int]LevelParamsSpec `yaml:"level_params" json:"level_params"`
}

// DefaultConfig returns the values used for fields a config file omits.
func DefaultConfig() Config {
	return Config{
		Levels:         []int{0, 1, 2, 3},
		Dt:             1.0,
		MaxSteps:       1000,
		TargetPutRate:  100,
		StallThreshold: 20,
		StallSteepness: 0.5,
		L0FileSizeMB:   64,
		Device: DeviceConfig{
			IODepth:      32,
			NumJobs:      4,
			BlockSizeKiB: 64,
			Br:           3000,
			Bw:           2000,
		},
		Database: DatabaseConfig{
			CompressionRatio: 1.0,
			WALFactor:        1.0,
		},
	}
}

// LoadConfig reads a simulator configuration on top of DefaultConfig.
// .yaml/.yml files use strict field checking so typos fail; anything else is
// decoded as JSON with unknown fields rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading simulator config: %w", err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing simulator config %q: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing simulator config %q: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("simulator config %q: %w", path, err)
	}
	return cfg, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks completeness and parameter ranges.
func (c *Config) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("levels must not be empty")
	}
	seen := make(map[int]bool, len(c.Levels))
	for _, l := range c.Levels {
		if l < 0 {
			return fmt.Errorf("level %d must be >= 0", l)
		}
		if seen[l] {
			return fmt.Errorf("level %d listed twice", l)
		}
		seen[l] = true
	}
	if !seen[0] {
		return fmt.Errorf("levels must include level 0 (flush target)")
	}
	if !finite(c.Dt) || c.Dt <= 0 {
		return fmt.Errorf("dt must be a finite value > 0, got %v", c.Dt)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be > 0, got %d", c.MaxSteps)
	}
	if !finite(c.TargetPutRate) || c.TargetPutRate < 0 {
		return fmt.Errorf("target_put_rate must be a finite value >= 0, got %v", c.TargetPutRate)
	}
	if !finite(c.StallThreshold) {
		return fmt.Errorf("stall_threshold must be finite, got %v", c.StallThreshold)
	}
	if !finite(c.StallSteepness) || c.StallSteepness < 0 {
		return fmt.Errorf("stall_steepness must be a finite value >= 0, got %v", c.StallSteepness)
	}
	if !finite(c.L0FileSizeMB) || c.L0FileSizeMB <= 0 {
		return fmt.Errorf("l0_file_size_mb must be a finite value > 0, got %v", c.L0FileSizeMB)
	}
	if c.Device.IODepth <= 0 || c.Device.NumJobs <= 0 || c.Device.BlockSizeKiB <= 0 {
		return fmt.Errorf("device iodepth, numjobs and bs_k must be > 0, got %d, %d, %d",
			c.Device.IODepth, c.Device.NumJobs, c.Device.BlockSizeKiB)
	}
	if !finite(c.Device.Br) || c.Device.Br < 0 || !finite(c.Device.Bw) || c.Device.Bw < 0 {
		return fmt.Errorf("device Br and Bw must be finite values >= 0, got %v, %v", c.Device.Br, c.Device.Bw)
	}
	if !finite(c.Database.CompressionRatio) || c.Database.CompressionRatio <= 0 {
		return fmt.Errorf("database compression_ratio must be a finite value > 0, got %v", c.Database.CompressionRatio)
	}
	if !finite(c.Database.WALFactor) || c.Database.WALFactor < 0 {
		return fmt.Errorf("database wal_factor must be a finite value >= 0, got %v", c.Database.WALFactor)
	}
	for level, spec := range c.LevelParams {
		if !seen[level] {
			return fmt.Errorf("level_params references unconfigured level %d", level)
		}
		for name, v := range map[string]*float64{"mu": spec.Mu, "k": spec.K, "eta": spec.Eta, "capacity_factor": spec.CapacityFactor} {
			if v != nil && (!finite(*v) || *v < 0) {
				return fmt.Errorf("level_params[%d].%s must be a finite value >= 0, got %v", level, name, *v)
			}
		}
	}
	return nil
}
