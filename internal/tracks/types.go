// Package tracks maintains the per-tick fused-track list, predicts each
// track forward under constant acceleration, and associates radar
// detections against the predicted oriented bounding boxes (§4.5).
package tracks

import (
	"math"

	"radar-replay/internal/capture"
	"radar-replay/internal/geom"
)

// minTrackExtent is the smallest length/width a fused track is ever given —
// degenerate zero-size boxes would swallow every nearby detection.
const minTrackExtent = 0.25

// EnhancedTrack is one fused track as read from a track-fusion frame,
// independent of any radar association.
type EnhancedTrack struct {
	VCSLongitudinalPosition     float64
	VCSLateralPosition         float64
	VCSLateralVelocity          float64
	VCSLongitudinalVelocity     float64
	VCSLateralAcceleration      float64
	VCSLongitudinalAcceleration float64
	VCSHeading                  float64
	VCSHeadingRate              float64
	Length                      float64
	Width                       float64
	Height                      float64
	ProbabilityOfDetection      float64
	ID                          int32
	ObjectClassification        uint16
	ObjectClassConfidence       uint8
	IsMoving                    bool
	IsStationary                bool
	IsMoveable                  bool
	IsVehicle                   bool
	Status                      capture.TrackStatus
}

// State is the subset of a fused track's kinematics the predictor and
// associator need, plus the moving-votes accumulator that the associator
// updates in place. A fresh State slice is built from every incoming
// track-fusion frame — moving votes do not persist across frames.
type State struct {
	Position     geom.Vec2
	Velocity     geom.Vec2
	Acceleration geom.Vec2
	Length       float64
	Width        float64
	Height       float64
	Heading      float64
	HeadingRate  float64
	IsStationary bool
	IsMoveable   bool
	MovingVotes  float64
}

// MapTrackFusion converts one raw track-fusion frame into its enhanced
// tracks and association states, skipping invalid slots. The two returned
// slices share index alignment.
func MapTrackFusion(raw *capture.TrackFusion) ([]EnhancedTrack, []State) {
	var enhanced []EnhancedTrack
	var states []State

	for i := 0; i < capture.TrackCount; i++ {
		status := raw.Status[i]
		if status == capture.TrackInvalid {
			continue
		}

		track := EnhancedTrack{
			VCSLongitudinalPosition:     raw.VCSLongitudinalPosition[i],
			VCSLateralPosition:         raw.VCSLateralPosition[i],
			VCSLateralVelocity:          raw.VCSLateralVelocity[i],
			VCSLongitudinalVelocity:     raw.VCSLongitudinalVelocity[i],
			VCSLateralAcceleration:      raw.VCSLateralAcceleration[i],
			VCSLongitudinalAcceleration: raw.VCSLongitudinalAcceleration[i],
			VCSHeading:                  raw.VCSHeading[i],
			VCSHeadingRate:              raw.VCSHeadingRate[i],
			Length:                      raw.Length[i],
			Width:                       raw.Width[i],
			Height:                      raw.Height[i],
			ProbabilityOfDetection:      raw.ProbabilityOfDetection[i],
			ID:                          raw.ID[i],
			ObjectClassification:        raw.ObjectClassification[i],
			ObjectClassConfidence:       raw.ObjectClassConfidence[i],
			IsMoving:                    raw.MovingFlag[i] != 0,
			IsStationary:                raw.StationaryFlag[i] != 0,
			IsMoveable:                  raw.MoveableFlag[i] != 0,
			IsVehicle:                   raw.VehicleFlag[i] != 0,
			Status:                      status,
		}
		track.Length = math.Max(track.Length, minTrackExtent)
		track.Width = math.Max(track.Width, minTrackExtent)
		if track.Height == 0 {
			track.Height = defaultHeightFor(capture.TrackObjectClass(track.ObjectClassification))
		}

		enhanced = append(enhanced, track)
		states = append(states, State{
			Position:     geom.Vec2{X: raw.VCSLongitudinalPosition[i], Y: raw.VCSLateralPosition[i]},
			Velocity:     geom.Vec2{X: raw.VCSLongitudinalVelocity[i], Y: raw.VCSLateralVelocity[i]},
			Acceleration: geom.Vec2{X: raw.VCSLongitudinalAcceleration[i], Y: raw.VCSLateralAcceleration[i]},
			Length:       track.Length,
			Width:        track.Width,
			Height:       track.Height,
			Heading:      track.VCSHeading,
			HeadingRate:  track.VCSHeadingRate,
			IsStationary: track.IsStationary,
			IsMoveable:   track.IsMoveable,
		})
	}

	return enhanced, states
}

func defaultHeightFor(class capture.TrackObjectClass) float64 {
	switch class {
	case capture.ClassCar, capture.ClassMotorcycle, capture.ClassBicycle:
		return 1.8
	case capture.ClassTruck:
		return 3.8
	default:
		return 0.05
	}
}
