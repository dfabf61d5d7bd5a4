package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// preset is the on-disk shape of a YAML sensitivity preset, an extension
// SPEC_FULL.md adds beyond spec.md's flag-only surface: named presets let
// an operator pin a whole sensitivity profile (the report filters below,
// compositional-stats mode, matrix) to one file instead of repeating flags on
// every invocation. Only fields present in the file override the Options
// value already populated from flags/defaults.
type preset struct {
	MaxTargetSeqs      *int     `yaml:"max_target_seqs"`
	TopPercent         *float64 `yaml:"top_percent"`
	MinBitScore        *float64 `yaml:"min_score"`
	MaxEValue          *float64 `yaml:"evalue"`
	MinIdentity        *float64 `yaml:"min_identity"`
	QueryCover         *float64 `yaml:"query_cover"`
	SubjectCover       *float64 `yaml:"subject_cover"`
	MaxHSPsPerTarget   *int     `yaml:"max_hsps_per_target"`
	CompositionalStats *int     `yaml:"comp_based_stats"`
	MatrixName         *string  `yaml:"matrix"`
}

// applyPresetFile loads path as a YAML preset and overlays its set fields
// onto opt, in the teacher's style of layering a DefaultDBConf value with
// field-by-field overrides rather than replacing the struct wholesale.
func applyPresetFile(opt *Options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	var p preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return &ConfigError{Option: "preset", Reason: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	if p.MaxTargetSeqs != nil {
		opt.MaxTargetSeqs = *p.MaxTargetSeqs
	}
	if p.TopPercent != nil {
		opt.TopPercent = *p.TopPercent
	}
	if p.MinBitScore != nil {
		opt.MinBitScore = *p.MinBitScore
	}
	if p.MaxEValue != nil {
		opt.MaxEValue = *p.MaxEValue
	}
	if p.MinIdentity != nil {
		opt.MinIdentity = *p.MinIdentity
	}
	if p.QueryCover != nil {
		opt.QueryCover = *p.QueryCover
	}
	if p.SubjectCover != nil {
		opt.SubjectCover = *p.SubjectCover
	}
	if p.MaxHSPsPerTarget != nil {
		opt.MaxHSPsPerTarget = *p.MaxHSPsPerTarget
	}
	if p.CompositionalStats != nil {
		opt.CompositionalStats = *p.CompositionalStats
	}
	if p.MatrixName != nil {
		opt.MatrixName = *p.MatrixName
	}
	return nil
}
