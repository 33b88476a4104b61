// Package config loads the per-pass optimisation profile: the knobs
// that tune how aggressively internal/build and internal/unbranch
// optimise a procedure body, read from a YAML file the way
// eval_harness.LoadSpec reads a benchmark spec.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is one named optimisation profile: a bundle of pass-level
// toggles and thresholds applied uniformly across a module compile.
type Profile struct {
	Name string `yaml:"name"`

	// EnableCSE toggles the forward pass's recorded-calls common
	// subexpression elimination (spec §4.3.2).
	EnableCSE bool `yaml:"enable_cse"`

	// EnableConstantFolding toggles fold.go's arithmetic/comparison
	// folding over ArgInt operands.
	EnableConstantFolding bool `yaml:"enable_constant_folding"`

	// EnableForkFusion toggles fork.go's identical-branch merging.
	EnableForkFusion bool `yaml:"enable_fork_fusion"`

	// EnableLastCall toggles last-call/TCMC promotion (spec §4.4).
	EnableLastCall bool `yaml:"enable_last_call"`

	// ContinuationLiftThreshold is the statement count above which a
	// conditional's shared continuation is lifted into its own
	// top-level procedure rather than inlined (spec §4.2.2). A loop's
	// continuation is always lifted, whatever this value.
	ContinuationLiftThreshold int `yaml:"continuation_lift_threshold"`

	// MaxFixedPointIterations bounds the SCC driver's per-group
	// re-check loop (spec §5); zero means use the driver's built-in
	// default.
	MaxFixedPointIterations int `yaml:"max_fixed_point_iterations"`
}

// Default returns the profile applied when no config file is given:
// every optimisation on, a conservative lift threshold.
func Default() Profile {
	return Profile{
		Name:                      "default",
		EnableCSE:                 true,
		EnableConstantFolding:     true,
		EnableForkFusion:          true,
		EnableLastCall:            true,
		ContinuationLiftThreshold: 12,
		MaxFixedPointIterations:   8,
	}
}

// Load reads a Profile from a YAML file; fields the file leaves out keep
// their Default values.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read profile file: %w", err)
	}

	profile := Default()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("config: failed to parse YAML: %w", err)
	}

	if profile.Name == "" {
		return nil, fmt.Errorf("config: profile missing required field: name")
	}
	if profile.ContinuationLiftThreshold < 0 {
		return nil, fmt.Errorf("config: continuation_lift_threshold must be non-negative, got %d", profile.ContinuationLiftThreshold)
	}
	if profile.MaxFixedPointIterations < 0 {
		return nil, fmt.Errorf("config: max_fixed_point_iterations must be non-negative, got %d", profile.MaxFixedPointIterations)
	}

	return &profile, nil
}
