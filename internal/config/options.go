// Package config implements the CLI surface spec.md §6.5 describes as an
// external collaborator: it turns command-line flags (and, as an
// extension, a named YAML sensitivity preset) into the Scoring context,
// PipelineParams, and output.Filters values the core's internal packages
// consume. Modeled on the teacher's cmd/cablastp-search/main.go idiom of
// a global var block bound to flag.*Var calls in init(), generalized here
// into an explicit FlagSet and an Options value so it can be parsed more
// than once (e.g. from tests) without touching package-level state.
package config

import (
	"flag"
	"fmt"
	"runtime"

	"github.com/diamond-core/diamond-core/internal/extend"
	"github.com/diamond-core/diamond-core/internal/output"
	"github.com/diamond-core/diamond-core/internal/scoring"
)

// Options is the parsed CLI surface relevant to the core (spec.md §6.5):
// "input database path, query file path, output path, output format code
// and optional field list, sensitivity mode, max-target-seqs, top-percent,
// min-bit-score, max-evalue, min-id, query-cover, subject-cover,
// max-hsps-per-target, compositional-stats code (0..4), frame-shift mode,
// threads."
type Options struct {
	DatabasePath string
	QueryPath    string
	OutputPath   string
	FormatCode   string

	Sensitivity string // "fast" | "default" | "sensitive" | "more-sensitive" | "very-sensitive"
	Preset      string // optional YAML preset file overriding the flag/default values it sets

	MaxTargetSeqs int
	TopPercent    float64
	MinBitScore   float64
	MaxEValue     float64
	MinIdentity   float64
	QueryCover    float64
	SubjectCover  float64
	MaxHSPsPerTarget int

	CompositionalStats int // 0..4, spec.md §4.1
	FrameShiftMode     bool
	MatrixName         string

	Threads int
	Quiet   bool

	ReferenceChunks int
}

// Default returns the built-in "default" sensitivity preset's Options,
// mirroring the teacher's pattern of a package-level DefaultDBConf value
// (cablastp's cmd/cablastp-compress/main.go) that flag parsing then
// overrides field by field.
func Default() Options {
	return Options{
		FormatCode:         "6",
		Sensitivity:        "default",
		MaxTargetSeqs:      25,
		TopPercent:         0,
		MaxEValue:          10,
		CompositionalStats: 1,
		MatrixName:         "BLOSUM62",
		Threads:            runtime.NumCPU(),
		ReferenceChunks:    1,
	}
}

// ParseFlags parses args (excluding the program name, as in flag.Parse's
// convention) against a fresh FlagSet seeded with Default()'s values,
// returning the resulting Options or a *ConfigError describing the first
// problem (spec.md §7: "unrecognized option ... reported to the user").
func ParseFlags(progName string, args []string) (Options, error) {
	opt := Default()
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)

	fs.StringVar(&opt.DatabasePath, "db", opt.DatabasePath, "reference database path")
	fs.StringVar(&opt.QueryPath, "query", opt.QueryPath, "query FASTA path")
	fs.StringVar(&opt.OutputPath, "out", opt.OutputPath, "output path ('-' for stdout)")
	fs.StringVar(&opt.FormatCode, "outfmt", opt.FormatCode, "output format code (6|paf|sam|0|5|json|100|intermediate)")
	fs.StringVar(&opt.Sensitivity, "sensitivity", opt.Sensitivity, "sensitivity mode (fast|default|sensitive|more-sensitive|very-sensitive)")
	fs.StringVar(&opt.Preset, "preset", opt.Preset, "path to a YAML sensitivity preset overriding flag/default values")
	fs.IntVar(&opt.MaxTargetSeqs, "max-target-seqs", opt.MaxTargetSeqs, "maximum targets reported per query (0 = unlimited)")
	fs.Float64Var(&opt.TopPercent, "top-percent", opt.TopPercent, "keep targets within top-percent of the best score (0 disables)")
	fs.Float64Var(&opt.MinBitScore, "min-score", opt.MinBitScore, "minimum bit score to report an HSP")
	fs.Float64Var(&opt.MaxEValue, "evalue", opt.MaxEValue, "maximum E-value to report an HSP")
	fs.Float64Var(&opt.MinIdentity, "id", opt.MinIdentity, "minimum percent identity to report an HSP")
	fs.Float64Var(&opt.QueryCover, "query-cover", opt.QueryCover, "minimum percent query coverage to report an HSP")
	fs.Float64Var(&opt.SubjectCover, "subject-cover", opt.SubjectCover, "minimum percent subject coverage to report an HSP")
	fs.IntVar(&opt.MaxHSPsPerTarget, "max-hsps", opt.MaxHSPsPerTarget, "maximum HSPs reported per target (0 = unlimited)")
	fs.IntVar(&opt.CompositionalStats, "comp-based-stats", opt.CompositionalStats, "compositional statistics mode (0..4)")
	fs.BoolVar(&opt.FrameShiftMode, "frameshift", opt.FrameShiftMode, "enable translated search frame-shift penalties")
	fs.StringVar(&opt.MatrixName, "matrix", opt.MatrixName, "substitution matrix name")
	fs.IntVar(&opt.Threads, "threads", opt.Threads, "worker thread count")
	fs.BoolVar(&opt.Quiet, "quiet", opt.Quiet, "suppress progress logging; errors still go to stderr")
	fs.IntVar(&opt.ReferenceChunks, "reference-chunks", opt.ReferenceChunks, "number of reference chunks to process blocked")

	if err := fs.Parse(args); err != nil {
		return Options{}, &ConfigError{Reason: err.Error()}
	}

	if opt.Preset != "" {
		if err := applyPresetFile(&opt, opt.Preset); err != nil {
			return Options{}, err
		}
	}

	if err := opt.Validate(); err != nil {
		return Options{}, err
	}
	return opt, nil
}

// Validate checks the inconsistent flag combinations spec.md §6.5/§7
// calls out (e.g. "DAA output with unsupported format features").
func (o Options) Validate() error {
	if o.DatabasePath == "" {
		return &ConfigError{Option: "db", Reason: "reference database path is required"}
	}
	if o.QueryPath == "" {
		return &ConfigError{Option: "query", Reason: "query path is required"}
	}
	format, err := output.ParseFormat(o.FormatCode)
	if err != nil {
		return &ConfigError{Option: "outfmt", Reason: err.Error()}
	}
	if o.CompositionalStats < 0 || o.CompositionalStats > 4 {
		return &ConfigError{Option: "comp-based-stats", Reason: "must be in 0..4"}
	}
	if o.ReferenceChunks < 1 {
		return &ConfigError{Option: "reference-chunks", Reason: "must be >= 1"}
	}
	if o.Threads < 1 {
		return &ConfigError{Option: "threads", Reason: "must be >= 1"}
	}
	if format == output.FormatPairwise && o.FrameShiftMode {
		// Pairwise text rendering assumes one contiguous frame per HSP;
		// translated frame-shift HSPs straddle frames and the renderer
		// has no marker for the jump, so the combination is rejected
		// rather than silently mis-rendered.
		return &ConfigError{Option: "outfmt", Reason: "pairwise format does not support frame-shifted HSPs"}
	}
	return nil
}

// Format resolves the parsed FormatCode, assumed already validated.
func (o Options) Format() output.Format {
	f, err := output.ParseFormat(o.FormatCode)
	if err != nil {
		// Validate is required before Format is called; a caller that
		// skips it has already violated the contract.
		panic(fmt.Sprintf("config: Format called on unvalidated Options: %v", err))
	}
	return f
}

// ScoringContext builds the scoring.Context the pipeline uses from the
// matrix name and the frame-shift flag (spec.md §6.2). CompositionalStats
// is validated but not applied: the returned context carries no
// compositional-statistics mode.
func (o Options) ScoringContext() (*scoring.StdContext, error) {
	matrix, err := scoring.Named(o.MatrixName)
	if err != nil {
		return nil, &ConfigError{Option: "matrix", Reason: err.Error()}
	}
	sc := scoring.NewStdContext(matrix)
	if o.FrameShiftMode {
		sc.FrameShift = 19 // translated-search default, distinct from the untranslated 15 (spec.md §4.1)
	}
	return sc, nil
}

// PipelineParams maps the ranking/culling flags onto extend.PipelineParams
// (spec.md §6.5 "these map to the fields of ... the pipeline").
func (o Options) PipelineParams() extend.PipelineParams {
	rank := extend.RankParams{
		Mode:          extend.RankTopN,
		MaxTargetSeqs: o.MaxTargetSeqs,
		RankFactor:    2,
		RankRatio:     0.1,
	}
	if o.TopPercent > 0 {
		rank.Mode = extend.RankTopPercent
		rank.TopPercent = o.TopPercent
	}
	return extend.PipelineParams{
		Rank: rank,
		Cull: extend.CullParams{
			MaxEValue:  o.MaxEValue,
			TopPercent: o.TopPercent,
		},
		Band:  32,
		XDrop: 20,
	}
}

// Filters maps the reporting-threshold flags onto output.Filters
// (spec.md §6.5).
func (o Options) Filters() output.Filters {
	return output.Filters{
		MinIdentity:      o.MinIdentity,
		MinQueryCover:    o.QueryCover,
		MinSubjectCover:  o.SubjectCover,
		MinBitScore:      o.MinBitScore,
		MaxEValue:        o.MaxEValue,
		MaxHSPsPerTarget: o.MaxHSPsPerTarget,
	}
}
