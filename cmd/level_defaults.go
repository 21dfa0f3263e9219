package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/putrate-sim/putrate-sim/sim"
)

// loadLevelDefaults parses a level defaults table on top of the built-in
// all-1.0 table. Uses strict field checking so typos fail.
func loadLevelDefaults(path string) (sim.LevelDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.LevelDefaults{}, fmt.Errorf("reading level defaults: %w", err)
	}
	d := sim.DefaultLevelDefaults()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&d); err != nil {
		return sim.LevelDefaults{}, fmt.Errorf("parsing level defaults %q: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return sim.LevelDefaults{}, fmt.Errorf("level defaults %q: %w", path, err)
	}
	return d, nil
}
