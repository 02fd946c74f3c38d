package tracks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-replay/internal/capture"
	"radar-replay/internal/detect"
	"radar-replay/internal/geom"
	"radar-replay/internal/motion"
	"radar-replay/internal/vehicleconfig"
)

func TestMapTrackFusion_SkipsInvalidAndFillsDefaults(t *testing.T) {
	raw := &capture.TrackFusion{}
	raw.Status[0] = capture.TrackInvalid
	raw.Status[1] = capture.TrackUpdated
	raw.ObjectClassification[1] = uint16(capture.ClassCar)
	raw.Length[1] = 0.0
	raw.Width[1] = 0.0

	enhanced, states := MapTrackFusion(raw)
	require.Len(t, enhanced, 1)
	require.Len(t, states, 1)

	assert.Equal(t, minTrackExtent, enhanced[0].Length)
	assert.Equal(t, minTrackExtent, enhanced[0].Width)
	assert.Equal(t, 1.8, enhanced[0].Height)
}

func TestOrientedBox_ContainsAxisAligned(t *testing.T) {
	box := OrientedBox{Center: geom.Vec2{X: 10, Y: 0}, HalfLength: 2, HalfWidth: 1, Heading: 0}
	assert.True(t, box.Contains(geom.Vec2{X: 11, Y: 0.5}))
	assert.False(t, box.Contains(geom.Vec2{X: 14, Y: 0}))
}

func TestAssociate_AssignsNearestTrackAndAccumulatesVotes(t *testing.T) {
	states := []State{
		{Position: geom.Vec2{X: 10, Y: 0}, Length: 4, Width: 2},
	}
	boxes := Predict(states, 0, DefaultAssociationSettings())

	det := &detect.EnhancedDetection{
		Flags:                 capture.FlagValid,
		LongitudinalOffset:    10,
		LateralOffset:         0,
		RangeRate:             0,
		IsStationary:          0,
		StationaryProbability: 0.1,
	}
	dets := []*detect.EnhancedDetection{det}

	cal := vehicleconfig.RadarCalibration{Polarity: 1}
	Associate(dets, states, boxes, cal, motion.VehicleMotionState{}, DefaultAssociationSettings())

	assert.Equal(t, int8(0), det.FusedTrackIndex)
	assert.Greater(t, states[0].MovingVotes, 0.0)
}

func TestAssociate_MoveableFlagTracksVoteSignAcrossCalls(t *testing.T) {
	states := []State{
		{Position: geom.Vec2{X: 10, Y: 0}, Length: 4, Width: 2},
	}
	boxes := Predict(states, 0, DefaultAssociationSettings())
	cal := vehicleconfig.RadarCalibration{Polarity: 1}

	movingDet := &detect.EnhancedDetection{
		Flags:                 capture.FlagValid,
		LongitudinalOffset:    10,
		IsStationary:          0,
		StationaryProbability: 0.1,
	}
	Associate([]*detect.EnhancedDetection{movingDet}, states, boxes, cal, motion.VehicleMotionState{}, DefaultAssociationSettings())
	assert.Equal(t, uint8(1), movingDet.IsMoveable)
	assert.False(t, states[0].IsMoveable, "Associate must not persist IsMoveable onto the track")

	// A long run of stationary-looking detections should decay MovingVotes
	// back below zero and flip the reported flag off again, since the
	// flag is recomputed fresh from the current vote sign on every call.
	stationaryDet := &detect.EnhancedDetection{
		Flags:                 capture.FlagValid,
		LongitudinalOffset:    10,
		IsStationary:          1,
		StationaryProbability: 0.9,
	}
	for i := 0; i < 20; i++ {
		Associate([]*detect.EnhancedDetection{stationaryDet}, states, boxes, cal, motion.VehicleMotionState{}, DefaultAssociationSettings())
	}
	assert.LessOrEqual(t, states[0].MovingVotes, 0.0)
	assert.Equal(t, uint8(0), stationaryDet.IsMoveable)
}

func TestAssociate_NoTracksIsNoop(t *testing.T) {
	det := &detect.EnhancedDetection{Flags: capture.FlagValid}
	dets := []*detect.EnhancedDetection{det}
	Associate(dets, nil, nil, vehicleconfig.RadarCalibration{}, motion.VehicleMotionState{}, DefaultAssociationSettings())
	assert.Equal(t, int8(0), det.FusedTrackIndex)
}
