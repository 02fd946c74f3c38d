// Package classify scores each radar return against a stationary-scatterer
// Doppler model, producing a per-return stationary/moving probability
// without reference to track data (§4.4).
package classify

import (
	"math"

	"radar-replay/internal/detect"
	"radar-replay/internal/geom"
	"radar-replay/internal/motion"
	"radar-replay/internal/vehicleconfig"
)

// Settings tunes the stationary/moving decision boundary.
type Settings struct {
	// NSigma is the Mahalanobis-distance threshold below which a return is
	// classified stationary.
	NSigma float64
}

// DefaultSettings matches the upstream fusion module's tuning.
func DefaultSettings() Settings {
	return Settings{NSigma: 3.0}
}

// Classify scores every detection in dets against the stationary-scatterer
// model implied by state and cal, writing IsStationary, IsStatic, and
// StationaryProbability in place. It also resets the per-return
// association state (FusedTrackIndex, IsMoveable) so a caller can run
// association immediately afterward.
func Classify(dets []*detect.EnhancedDetection, cal vehicleconfig.RadarCalibration, state motion.VehicleMotionState, settings Settings) {
	sigmaRangeRate := cal.RangeRateAccuracy / 3.0
	rangeRateVar := squared(math.Max(0.01, sigmaRangeRate))

	for _, det := range dets {
		det.FusedTrackIndex = detect.NewFusedTrackIndex
		det.IsMoveable = 0

		detAngle := detect.AngleRad(det, cal)
		yawTerm := state.YawRate * (cal.ISO.Longitudinal*math.Sin(detAngle) - cal.ISO.Lateral*math.Cos(detAngle))
		compensatedRangeRate := det.RangeRate + yawTerm

		predictedRangeRate := -(state.VLon*math.Cos(detAngle) + state.VLat*math.Sin(detAngle))

		mDist := math.Abs(compensatedRangeRate-predictedRangeRate) / math.Sqrt(math.Max(rangeRateVar, 1e-4))

		if mDist <= settings.NSigma {
			det.IsStationary = 1
		} else {
			det.IsStationary = 0
		}
		det.StationaryProbability = geom.Clamp(stationaryProbabilityFromDistance(mDist), 0, 1)
		det.IsStatic = det.IsStationary
	}
}

func stationaryProbabilityFromDistance(mDist float64) float64 {
	return 1 - math.Erf(mDist/math.Sqrt(2))
}

func squared(v float64) float64 { return v * v }
