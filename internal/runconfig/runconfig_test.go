package runconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-replay/internal/pipeline"
)

func writeTempYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ParsesEveryKnob(t *testing.T) {
	path := writeTempYAML(t, `
odometry:
  max_iterations: 200
  inlier_threshold_mps: 0.5
  min_inliers: 8
classification:
  n_sigma: 2.5
association:
  bounding_box_scale: 1.3
  range_rate_sigma: 2.8
  velocity_variance: 0.08
  heading_rate_variance: 0.08
ring:
  segments: 36
  fallback_range_m: 80
`)

	tuning, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, tuning.Odometry.MaxIterations)
	assert.Equal(t, 0.5, tuning.Odometry.InlierThresholdMps)
	assert.Equal(t, 8, tuning.Odometry.MinInliers)
	assert.Equal(t, 2.5, tuning.Classification.NSigma)
	assert.Equal(t, 1.3, tuning.Association.BoundingBoxScale)
	assert.Equal(t, 36, tuning.Ring.Segments)
	assert.Equal(t, 80.0, tuning.Ring.FallbackRange)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyPipelineSettings_OnlyOverridesSetFields(t *testing.T) {
	base := pipeline.DefaultSettings()
	tuning := &Tuning{}
	tuning.Classification.NSigma = 4.0
	tuning.Ring.Segments = 12

	applied := tuning.ApplyPipelineSettings(base)
	assert.Equal(t, 4.0, applied.Stationary.NSigma)
	assert.Equal(t, 12, applied.RingSegments)
	// Untouched fields keep their base default.
	assert.Equal(t, base.Odometry.MaxIterations, applied.Odometry.MaxIterations)
	assert.Equal(t, base.Association.BoundingBoxScale, applied.Association.BoundingBoxScale)
	assert.Equal(t, base.RingFallbackRangeMeters, applied.RingFallbackRangeMeters)
}

func TestApplyPipelineSettings_NilTuningIsNoop(t *testing.T) {
	base := pipeline.DefaultSettings()
	var tuning *Tuning
	assert.Equal(t, base, tuning.ApplyPipelineSettings(base))
}
