// Package capture parses the three raw radar capture streams (corner
// detections, front detections, and fused tracks) from the plain-text line
// format the recorder wrote them in.
package capture

import "radar-replay/internal/vehicleconfig"

const (
	// CornerReturnCount is the number of returns in one corner radar's scan.
	CornerReturnCount = 64
	// FrontReturnCount is the number of returns in one front radar scan,
	// covering both the short- and long-range halves.
	FrontReturnCount = 128
	// TrackCount is the number of fused-track slots in one track frame.
	TrackCount = 96
)

// DetectionFlag bits, packed into EnhancedDetection.Flags by the detection
// mapper (see internal/detect).
const (
	FlagValid              uint8 = 1 << 0
	FlagSuperResolution    uint8 = 1 << 1
	FlagNearTarget         uint8 = 1 << 2
	FlagHostVehicleClutter uint8 = 1 << 3
	FlagMultiBounce        uint8 = 1 << 4
)

// TrackStatus mirrors the fusion module's per-slot lifecycle state.
type TrackStatus uint8

const (
	TrackInvalid TrackStatus = iota
	TrackMerged
	TrackNew
	TrackNewCoasted
	TrackNewUpdated
	TrackUpdated
	TrackCoasted
)

// TrackObjectClass mirrors the fusion module's object classification code.
type TrackObjectClass uint16

const (
	ClassUnknown    TrackObjectClass = 0
	ClassCar        TrackObjectClass = 1
	ClassMotorcycle TrackObjectClass = 2
	ClassTruck      TrackObjectClass = 3
	ClassBicycle    TrackObjectClass = 9
	ClassPedestrian TrackObjectClass = 10
	ClassAnimal     TrackObjectClass = 12
)

// DetectionsHeader carries the per-scan metadata shared by every return in a
// corner or front detection frame.
type DetectionsHeader struct {
	TimestampUs      uint64
	HorizontalFOV    float64 // radians
	MaximumRange     float64 // metres
	AzimuthPolarity  float64
	BoresightAngle   float64 // radians
	SensorLongPos    float64 // metres
	SensorLatPos     float64 // metres
}

// CornerDetections is one corner radar's scan: fixed-size parallel arrays,
// one slot per return, index-aligned across all fields.
type CornerDetections struct {
	Sensor vehicleconfig.SensorRole
	Header DetectionsHeader

	Range              [CornerReturnCount]float64
	RangeRate          [CornerReturnCount]float64
	RangeRateRaw       [CornerReturnCount]float64
	AzimuthRaw         [CornerReturnCount]float64
	Azimuth            [CornerReturnCount]float64
	Amplitude          [CornerReturnCount]float64
	LongitudinalOffset [CornerReturnCount]float64
	LateralOffset      [CornerReturnCount]float64
	MotionStatus       [CornerReturnCount]int8
	RadarValidReturn   [CornerReturnCount]uint8
	SuperResolution    [CornerReturnCount]uint8
	NearTarget         [CornerReturnCount]uint8
	HostVehicleClutter [CornerReturnCount]uint8
	MultiBounce        [CornerReturnCount]uint8

	ElevationRaw []float64
}

// FrontDetections is one dual-range front radar scan: the first half of
// each array belongs to the short-range beam, the second half to the
// long-range beam (see internal/detect for the split).
type FrontDetections struct {
	Header DetectionsHeader

	Range              [FrontReturnCount]float64
	RangeRate          [FrontReturnCount]float64
	RangeRateRaw       [FrontReturnCount]float64
	AzimuthRaw         [FrontReturnCount]float64
	Azimuth            [FrontReturnCount]float64
	Amplitude          [FrontReturnCount]float64
	LongitudinalOffset [FrontReturnCount]float64
	LateralOffset      [FrontReturnCount]float64
	MotionStatus       [FrontReturnCount]int8
	RadarValidReturn   [FrontReturnCount]uint8
	SuperResolution    [FrontReturnCount]uint8
	NearTarget         [FrontReturnCount]uint8
	HostVehicleClutter [FrontReturnCount]uint8
	MultiBounce        [FrontReturnCount]uint8

	ElevationRaw []float64
}

// TrackFusion is one frame of up to TrackCount fused tracks.
type TrackFusion struct {
	TimestampUs     uint64
	VisionTimestamp uint64
	FusionTimestamp uint64
	FusionIndex     uint32
	ImageFrameIndex uint32

	VCSLongitudinalPosition     [TrackCount]float64
	VCSLateralPosition         [TrackCount]float64
	Length                      [TrackCount]float64
	Width                       [TrackCount]float64
	Height                      [TrackCount]float64
	ProbabilityOfDetection      [TrackCount]float64
	ID                          [TrackCount]int32
	ObjectClassification        [TrackCount]uint16
	ObjectClassConfidence       [TrackCount]uint8
	Status                      [TrackCount]TrackStatus
	VCSLateralVelocity          [TrackCount]float64
	VCSLongitudinalVelocity     [TrackCount]float64
	VCSLateralAcceleration      [TrackCount]float64
	VCSLongitudinalAcceleration [TrackCount]float64
	VCSHeading                  [TrackCount]float64
	VCSHeadingRate              [TrackCount]float64
	MovingFlag                  [TrackCount]uint8
	StationaryFlag              [TrackCount]uint8
	MoveableFlag                [TrackCount]uint8
	VehicleFlag                 [TrackCount]uint8
}
