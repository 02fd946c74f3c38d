// Package detect turns raw per-return radar arrays into per-return
// EnhancedDetection records: bit-packed validity flags, one struct per
// return, still in the radar's own range/azimuth frame (§4.3).
package detect

import (
	"math"

	"radar-replay/internal/capture"
	"radar-replay/internal/geom"
	"radar-replay/internal/vehicleconfig"
)

// EnhancedDetection is one radar return, carried through classification and
// association. Index position within a slice returned by MapCorner/MapFront
// corresponds 1:1 to the source return's index.
type EnhancedDetection struct {
	Range              float64
	RangeRate          float64
	RangeRateRaw       float64
	AzimuthRaw         float64
	Azimuth            float64
	Amplitude          float64
	LongitudinalOffset float64
	LateralOffset      float64
	MotionStatus       int8
	Flags              uint8
	ElevationRaw       float64

	// Populated by internal/classify and internal/tracks.
	FusedTrackIndex       int8 // -1 when unassociated
	IsStationary          uint8
	IsMoveable            uint8
	IsStatic              uint8
	StationaryProbability float64
}

// Valid reports whether the detection's radar-valid bit is set.
func (d *EnhancedDetection) Valid() bool {
	return d.Flags&capture.FlagValid != 0
}

// SuperResolution reports the super-resolution bit.
func (d *EnhancedDetection) SuperResolution() bool {
	return d.Flags&capture.FlagSuperResolution != 0
}

// NewFusedTrackIndex is the sentinel value for "no associated track".
const NewFusedTrackIndex int8 = -1

// PackFlags bit-packs the five per-return status columns into one byte:
// bit0 valid, bit1 super-resolution, bit2 near-target, bit3 host-vehicle
// clutter, bit4 multi-bounce.
func PackFlags(valid, superRes, nearTarget, hostClutter, multiBounce uint8) uint8 {
	return valid |
		(superRes << 1) |
		(nearTarget << 2) |
		(hostClutter << 3) |
		(multiBounce << 4)
}

// AngleRad is the detection's azimuth expressed in the ISO frame: the raw
// sensor azimuth rotated by the sensor's polarity and boresight-relative
// mount orientation.
func AngleRad(det *EnhancedDetection, cal vehicleconfig.RadarCalibration) float64 {
	return (-det.AzimuthRaw * cal.Polarity) + cal.ISO.Orientation
}

// angleVCS is the same angle expressed against the VCS mount orientation,
// used only for the VCS-frame position fallback in PositionVCS.
func angleVCS(det *EnhancedDetection, cal vehicleconfig.RadarCalibration) float64 {
	return (-det.AzimuthRaw * cal.Polarity) + cal.VCS.Orientation
}

// PositionVCS resolves a detection's longitudinal/lateral position in VCS,
// preferring the offsets the sensor reported directly and falling back to
// range*trig in two stages: first against the reported azimuth, then
// against the raw azimuth rotated into VCS — matching the sensor's own
// fallback order when offsets are zeroed out.
func PositionVCS(det *EnhancedDetection, cal vehicleconfig.RadarCalibration) geom.Vec2 {
	lon := det.LongitudinalOffset
	lat := det.LateralOffset

	if lon == 0 && lat == 0 && det.Range > 0 {
		lon = det.Range * math.Cos(det.Azimuth)
		lat = det.Range * math.Sin(det.Azimuth)
	}

	if lon == 0 && lat == 0 && det.Range > 0 {
		detAngle := angleVCS(det, cal)
		lon = det.Range * math.Cos(detAngle)
		lat = det.Range * math.Sin(detAngle)
	}

	return geom.Vec2{X: lon + cal.VCS.Longitudinal, Y: lat + cal.VCS.Lateral}
}
