package commands

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// Config holds decoding defaults loaded from a yaml file. Flags given
// on the command line override config values; a zero config value
// falls back to the flag default.
//
// Example ctcd.yaml:
//
//	beam_width: 8
//	length_penalty: 0.5
//	blank: 0
//	workers: 4
//	vocab: symbols.txt
type Config struct {
	BeamWidth     int     `yaml:"beam_width"`
	LengthPenalty float64 `yaml:"length_penalty"`
	Blank         int     `yaml:"blank"`
	Workers       int     `yaml:"workers"`
	Vocab         string  `yaml:"vocab"`
}

// LoadConfig reads a yaml config file. An empty path yields an empty
// config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveInt picks the effective value for an int setting: a flag set
// on the command line wins, then a non-zero config value, then the
// flag default.
func resolveInt(cmd *cobra.Command, name string, flagVal, cfgVal int) int {
	if cmd.Flags().Changed(name) || cfgVal == 0 {
		return flagVal
	}
	return cfgVal
}

func resolveFloat(cmd *cobra.Command, name string, flagVal, cfgVal float64) float64 {
	if cmd.Flags().Changed(name) || cfgVal == 0 {
		return flagVal
	}
	return cfgVal
}

func resolveString(cmd *cobra.Command, name string, flagVal, cfgVal string) string {
	if cmd.Flags().Changed(name) || cfgVal == "" {
		return flagVal
	}
	return cfgVal
}
