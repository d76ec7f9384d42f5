// Package config provides PipelineConfig loading for the dcanbold CLI.
// Config is read from dcanbold.yaml in the working directory. A missing file
// returns sane defaults without error. CLI flags (bound via cobra) override
// config file values at the highest precedence by mutating the returned
// struct after loading.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values for PipelineConfig fields.
const (
	DefaultFDThreshold        = 0.3
	DefaultFilterOrder        = 2
	DefaultLowerBPF           = 0.009
	DefaultUpperBPF           = 0.080
	DefaultMotionFilterOption = 5
	DefaultMotionFilterOrder  = 4
	DefaultSkipSeconds        = 5
	DefaultContiguousFrames   = 9
)

// PipelineConfig holds every tunable parameter of the pipeline plus the two
// path-override maps merged into the resolved input/output specs last.
type PipelineConfig struct {
	FDThreshold        float64 `yaml:"fd_threshold"`
	FilterOrder        int     `yaml:"filter_order"`
	LowerBPF           float64 `yaml:"lower_bpf"`
	UpperBPF           float64 `yaml:"upper_bpf"`
	MotionFilterType   string  `yaml:"motion_filter_type"`
	MotionFilterOption int     `yaml:"motion_filter_option"`
	MotionFilterOrder  int     `yaml:"motion_filter_order"`
	BandStopMin        float64 `yaml:"band_stop_min"`
	BandStopMax        float64 `yaml:"band_stop_max"`
	SkipSeconds        int     `yaml:"skip_seconds"`
	ContiguousFrames   int     `yaml:"contiguous_frames"`
	BrainRadius        int     `yaml:"brain_radius"`

	// Path overrides keyed by logical input/output name; primarily for
	// injecting synthetic paths in tests and non-standard layouts.
	InputOverrides  map[string]string `yaml:"input_overrides"`
	OutputOverrides map[string]string `yaml:"output_overrides"`
}

// defaults returns a PipelineConfig populated with the documented defaults.
func defaults() PipelineConfig {
	return PipelineConfig{
		FDThreshold:        DefaultFDThreshold,
		FilterOrder:        DefaultFilterOrder,
		LowerBPF:           DefaultLowerBPF,
		UpperBPF:           DefaultUpperBPF,
		MotionFilterOption: DefaultMotionFilterOption,
		MotionFilterOrder:  DefaultMotionFilterOrder,
		SkipSeconds:        DefaultSkipSeconds,
		ContiguousFrames:   DefaultContiguousFrames,
	}
}

// partialConfig is used during YAML parsing to distinguish between a field
// being absent (nil pointer) and a field explicitly set to its zero value.
type partialConfig struct {
	FDThreshold        *float64          `yaml:"fd_threshold"`
	FilterOrder        *int              `yaml:"filter_order"`
	LowerBPF           *float64          `yaml:"lower_bpf"`
	UpperBPF           *float64          `yaml:"upper_bpf"`
	MotionFilterType   *string           `yaml:"motion_filter_type"`
	MotionFilterOption *int              `yaml:"motion_filter_option"`
	MotionFilterOrder  *int              `yaml:"motion_filter_order"`
	BandStopMin        *float64          `yaml:"band_stop_min"`
	BandStopMax        *float64          `yaml:"band_stop_max"`
	SkipSeconds        *int              `yaml:"skip_seconds"`
	ContiguousFrames   *int              `yaml:"contiguous_frames"`
	BrainRadius        *int              `yaml:"brain_radius"`
	InputOverrides     map[string]string `yaml:"input_overrides"`
	OutputOverrides    map[string]string `yaml:"output_overrides"`
}

// LoadConfig reads dcanbold.yaml at path and returns a PipelineConfig.
// If the file does not exist, defaults are returned without error.
// Fields absent from the file keep their default values; fields present
// override the corresponding default.
//
// CLI flag override pattern: cobra applies changed flags to the returned
// *PipelineConfig after this call, giving flags the highest precedence.
func LoadConfig(path string) (*PipelineConfig, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, err
	}

	var partial partialConfig
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return nil, err
	}

	if partial.FDThreshold != nil {
		cfg.FDThreshold = *partial.FDThreshold
	}
	if partial.FilterOrder != nil {
		cfg.FilterOrder = *partial.FilterOrder
	}
	if partial.LowerBPF != nil {
		cfg.LowerBPF = *partial.LowerBPF
	}
	if partial.UpperBPF != nil {
		cfg.UpperBPF = *partial.UpperBPF
	}
	if partial.MotionFilterType != nil {
		cfg.MotionFilterType = *partial.MotionFilterType
	}
	if partial.MotionFilterOption != nil {
		cfg.MotionFilterOption = *partial.MotionFilterOption
	}
	if partial.MotionFilterOrder != nil {
		cfg.MotionFilterOrder = *partial.MotionFilterOrder
	}
	if partial.BandStopMin != nil {
		cfg.BandStopMin = *partial.BandStopMin
	}
	if partial.BandStopMax != nil {
		cfg.BandStopMax = *partial.BandStopMax
	}
	if partial.SkipSeconds != nil {
		cfg.SkipSeconds = *partial.SkipSeconds
	}
	if partial.ContiguousFrames != nil {
		cfg.ContiguousFrames = *partial.ContiguousFrames
	}
	if partial.BrainRadius != nil {
		cfg.BrainRadius = *partial.BrainRadius
	}
	if partial.InputOverrides != nil {
		cfg.InputOverrides = partial.InputOverrides
	}
	if partial.OutputOverrides != nil {
		cfg.OutputOverrides = partial.OutputOverrides
	}

	return &cfg, nil
}
