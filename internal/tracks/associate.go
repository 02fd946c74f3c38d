package tracks

import (
	"math"

	"radar-replay/internal/detect"
	"radar-replay/internal/geom"
	"radar-replay/internal/motion"
	"radar-replay/internal/vehicleconfig"
)

// AssociationSettings tunes the predicted-box sizing and the range-rate
// gate used to pick the best-matching track for a detection.
type AssociationSettings struct {
	BoundingBoxScale    float64
	RangeRateSigma      float64
	VelocityVariance    float64
	HeadingRateVariance float64
}

// DefaultAssociationSettings matches the upstream fusion module's tuning.
func DefaultAssociationSettings() AssociationSettings {
	return AssociationSettings{
		BoundingBoxScale:    1.1,
		RangeRateSigma:      3.0,
		VelocityVariance:    0.05,
		HeadingRateVariance: 0.05,
	}
}

// OrientedBox is a track's predicted footprint: a rectangle centered on
// center, rotated by heading, half-extents (halfLength, halfWidth) along
// its own longitudinal/lateral axes.
type OrientedBox struct {
	Center     geom.Vec2
	HalfLength float64
	HalfWidth  float64
	Heading    float64
}

// Contains reports whether point falls inside the box, in the box's own
// rotated frame.
func (b OrientedBox) Contains(point geom.Vec2) bool {
	delta := point.Sub(b.Center)
	cosH := math.Cos(-b.Heading)
	sinH := math.Sin(-b.Heading)
	localX := delta.X*cosH - delta.Y*sinH
	localY := delta.X*sinH + delta.Y*cosH
	return math.Abs(localX) <= b.HalfLength && math.Abs(localY) <= b.HalfWidth
}

// Corners returns the box's four corners in world order (rotated by
// heading around center), for callers that need the footprint polygon
// rather than the contains-test.
func (b OrientedBox) Corners() [4]geom.Vec2 {
	cosH := math.Cos(b.Heading)
	sinH := math.Sin(b.Heading)
	rotate := func(localX, localY float64) geom.Vec2 {
		return geom.Vec2{
			X: b.Center.X + localX*cosH - localY*sinH,
			Y: b.Center.Y + localX*sinH + localY*cosH,
		}
	}
	return [4]geom.Vec2{
		rotate(b.HalfLength, b.HalfWidth),
		rotate(b.HalfLength, -b.HalfWidth),
		rotate(-b.HalfLength, -b.HalfWidth),
		rotate(-b.HalfLength, b.HalfWidth),
	}
}

// Predict propagates every track forward by dtSeconds under constant
// acceleration and returns the resulting oriented bounding boxes, one per
// state, same order.
func Predict(states []State, dtSeconds float64, settings AssociationSettings) []OrientedBox {
	boxes := make([]OrientedBox, len(states))
	for i, s := range states {
		position := s.Position.Add(s.Velocity.Scale(dtSeconds)).Add(s.Acceleration.Scale(0.5 * dtSeconds * dtSeconds))
		heading := s.Heading + s.HeadingRate*dtSeconds
		halfLength := math.Max(s.Length, 0.1) * 0.5 * settings.BoundingBoxScale
		halfWidth := math.Max(s.Width, 0.1) * 0.5 * settings.BoundingBoxScale
		boxes[i] = OrientedBox{Center: position, HalfLength: halfLength, HalfWidth: halfWidth, Heading: heading}
	}
	return boxes
}

// Associate matches every valid-or-super-resolution detection in dets
// against the nearest (by range-rate Mahalanobis distance) predicted box
// that contains it, writing det.FusedTrackIndex/IsMoveable/IsStatic and
// accumulating states[i].MovingVotes for the winning track. The reported
// moveable flag is recomputed fresh from the track-fusion flag and the
// current sign of MovingVotes on every call; MovingVotes itself persists
// on the track and can decay back to zero or below across calls, so a
// track that stops looking like it's moving eventually stops being
// reported as moveable.
func Associate(dets []*detect.EnhancedDetection, states []State, boxes []OrientedBox,
	cal vehicleconfig.RadarCalibration, vehicleState motion.VehicleMotionState, settings AssociationSettings) {
	if len(states) == 0 {
		return
	}

	sigmaRangeRate := cal.RangeRateAccuracy / 3.0
	rangeRateVar := squared(math.Max(0.01, sigmaRangeRate))

	const validOrSuperResMask = 0x01 | 0x02

	for _, det := range dets {
		if det.Flags&validOrSuperResMask == 0 {
			continue
		}

		detPos := detect.PositionVCS(det, cal)
		detAngle := detect.AngleRad(det, cal)
		rangeRateModelX := -math.Cos(detAngle)
		rangeRateModelY := -math.Sin(detAngle)

		bestDistance := math.MaxFloat64
		bestIndex := -1

		for i, box := range boxes {
			if !box.Contains(detPos) {
				continue
			}

			track := states[i]
			relVelX := vehicleState.VLon - track.Velocity.X
			relVelY := vehicleState.VLat - track.Velocity.Y

			predictedRangeRate := relVelX*rangeRateModelX + relVelY*rangeRateModelY
			mDist := math.Abs(det.RangeRate-predictedRangeRate) / math.Sqrt(math.Max(rangeRateVar, 1e-4))

			if mDist <= settings.RangeRateSigma && mDist < bestDistance {
				bestDistance = mDist
				bestIndex = i
			}
		}

		if bestIndex < 0 {
			continue
		}

		track := &states[bestIndex]
		vote := -det.StationaryProbability
		if det.IsStationary == 0 {
			vote = 1 - det.StationaryProbability
		}
		track.MovingVotes = geom.Clamp(track.MovingVotes+vote, -100, 100)
		moveable := boolToFlag(track.IsMoveable || track.MovingVotes > 0)

		det.FusedTrackIndex = int8(bestIndex)
		det.IsMoveable = moveable
		det.IsStatic = boolToFlag(det.IsStationary != 0 && det.IsMoveable == 0)
	}
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func squared(v float64) float64 { return v * v }
