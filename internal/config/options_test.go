package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsAppliesDefaultsAndOverrides(t *testing.T) {
	opt, err := ParseFlags("diamond-core", []string{
		"-db", "ref.dmnd", "-query", "q.fasta", "-max-target-seqs", "5",
	})
	require.NoError(t, err)
	assert.Equal(t, "ref.dmnd", opt.DatabasePath)
	assert.Equal(t, 5, opt.MaxTargetSeqs)
	assert.Equal(t, "6", opt.FormatCode)
	assert.Equal(t, 10.0, opt.MaxEValue)
}

func TestParseFlagsRejectsMissingDatabase(t *testing.T) {
	_, err := ParseFlags("diamond-core", []string{"-query", "q.fasta"})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "db", cfgErr.Option)
}

func TestParseFlagsRejectsUnknownFormat(t *testing.T) {
	_, err := ParseFlags("diamond-core", []string{
		"-db", "ref.dmnd", "-query", "q.fasta", "-outfmt", "bogus",
	})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "outfmt", cfgErr.Option)
}

func TestParseFlagsRejectsOutOfRangeCompositionalStats(t *testing.T) {
	_, err := ParseFlags("diamond-core", []string{
		"-db", "ref.dmnd", "-query", "q.fasta", "-comp-based-stats", "9",
	})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "comp-based-stats", cfgErr.Option)
}

func TestPresetFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensitive.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_target_seqs: 100\nevalue: 0.001\n"), 0o644))

	opt, err := ParseFlags("diamond-core", []string{
		"-db", "ref.dmnd", "-query", "q.fasta", "-preset", path,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, opt.MaxTargetSeqs)
	assert.Equal(t, 0.001, opt.MaxEValue)
}

func TestPipelineParamsSwitchesRankModeOnTopPercent(t *testing.T) {
	opt := Default()
	opt.TopPercent = 50
	pp := opt.PipelineParams()
	assert.Equal(t, 50.0, pp.Rank.TopPercent)
}

func TestScoringContextAppliesFrameShiftMode(t *testing.T) {
	opt := Default()
	opt.FrameShiftMode = true
	sc, err := opt.ScoringContext()
	require.NoError(t, err)
	assert.EqualValues(t, 19, sc.FrameShiftCost())
}

func TestExitCodeForMapsErrorTaxonomy(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeFor(nil))
	assert.Equal(t, ExitConfigError, ExitCodeFor(&ConfigError{Reason: "x"}))
	assert.Equal(t, ExitIOError, ExitCodeFor(&IOError{Path: "x"}))
	assert.Equal(t, ExitInternalFail, ExitCodeFor(&InternalInvariantError{Invariant: "x"}))
}
