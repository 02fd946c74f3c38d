package odometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-replay/internal/capture"
	"radar-replay/internal/detect"
	"radar-replay/internal/vehicleconfig"
)

func syntheticDetections(vLon, vLat float64, angles []float64) []*detect.EnhancedDetection {
	dets := make([]*detect.EnhancedDetection, len(angles))
	for i, angle := range angles {
		rangeRate := -(vLon*math.Cos(angle) + vLat*math.Sin(angle))
		dets[i] = &detect.EnhancedDetection{
			Flags:      capture.FlagValid,
			AzimuthRaw: -angle, // AngleRad negates and applies polarity=1, so raw = -angle
			RangeRate:  rangeRate,
		}
	}
	return dets
}

func TestEstimator_RecoversKnownVelocity(t *testing.T) {
	angles := []float64{0, 0.3, 0.6, -0.3, -0.6, 1.0, -1.0, 0.15, -0.15, 0.45}
	dets := syntheticDetections(5.0, -1.0, angles)

	e := New(DefaultSettings())
	cal := vehicleconfig.RadarCalibration{Polarity: 1}
	ok := e.ProcessDetections(cal, 12345, dets)
	require.True(t, ok)

	est := e.LatestEstimate()
	assert.InDelta(t, 5.0, est.VLon, 0.05)
	assert.InDelta(t, -1.0, est.VLat, 0.05)
	assert.True(t, est.Valid)
	assert.False(t, est.DiagnosticOnly)
	assert.Equal(t, uint64(12345), est.TimestampUs)
}

func TestEstimator_TooFewSamplesReturnsFalse(t *testing.T) {
	dets := syntheticDetections(1, 1, []float64{0})
	e := New(DefaultSettings())
	ok := e.ProcessDetections(vehicleconfig.RadarCalibration{Polarity: 1}, 0, dets)
	assert.False(t, ok)
}

func TestEstimator_BelowMinInliersMarksDiagnosticOnly(t *testing.T) {
	angles := []float64{0, 1.5}
	dets := syntheticDetections(5.0, 0, angles)
	// Inject a grossly inconsistent third sample so the consensus set never
	// reaches MinInliers=6 with only 3 total samples.
	dets = append(dets, &detect.EnhancedDetection{Flags: capture.FlagValid, AzimuthRaw: 0, RangeRate: 999})

	e := New(DefaultSettings())
	ok := e.ProcessDetections(vehicleconfig.RadarCalibration{Polarity: 1}, 0, dets)
	assert.False(t, ok)

	est := e.LatestEstimate()
	assert.True(t, est.DiagnosticOnly)
	// The diagnostic branch refits over every sample, but InlierCount must
	// still report the RANSAC winner's actual inlier count, not the total
	// sample count it refit over.
	assert.Less(t, est.InlierCount, len(dets))
}
