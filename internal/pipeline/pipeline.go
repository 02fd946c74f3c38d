// Package pipeline orchestrates one merged capture tick end to end (§4.8):
// mapping raw returns, classifying and associating them against the
// current track list, feeding the Doppler odometry estimator when no
// external motion state has been supplied, and keeping the virtual sensor
// ring current.
package pipeline

import (
	"radar-replay/internal/capture"
	"radar-replay/internal/classify"
	"radar-replay/internal/detect"
	"radar-replay/internal/geom"
	"radar-replay/internal/motion"
	"radar-replay/internal/odometry"
	"radar-replay/internal/ring"
	"radar-replay/internal/tracks"
	"radar-replay/internal/vehicleconfig"
)

// defaultRingFallbackRangeMeters is the distance reported for a segment
// that saw nothing this tick, matching the live engine's map display range.
const defaultRingFallbackRangeMeters = 120.0

// Settings bundles the per-stage tuning knobs.
type Settings struct {
	Association tracks.AssociationSettings
	Stationary  classify.Settings
	Odometry    odometry.Settings

	RingSegments            int
	RingFallbackRangeMeters float64
}

// DefaultSettings matches the upstream fusion module's tuning across every
// stage.
func DefaultSettings() Settings {
	return Settings{
		Association:             tracks.DefaultAssociationSettings(),
		Stationary:              classify.DefaultSettings(),
		Odometry:                odometry.DefaultSettings(),
		RingSegments:            ring.DefaultSegmentCount,
		RingFallbackRangeMeters: defaultRingFallbackRangeMeters,
	}
}

// SensorUpdateState tracks one sensor's freshness: whether it has ever
// produced a record, its most recent strictly newer timestamp, and how many
// consecutive records since then were not strictly newer. The counter is
// diagnostic only: such records are still processed.
type SensorUpdateState struct {
	Initialized           bool
	TimestampUs           uint64
	NumConsecutiveInvalid uint32
}

// Pipeline holds all state that must survive across ticks: per-sensor
// freshness tracking, the current track list, the vehicle motion estimate,
// and the virtual sensor ring. Call Initialize before processing any
// capture record.
type Pipeline struct {
	settings   Settings
	parameters *vehicleconfig.VehicleParameters

	sensorStates map[vehicleconfig.SensorRole]*SensorUpdateState

	states            []tracks.State
	tracksTimestampUs uint64

	motionState            motion.VehicleMotionState
	hasExternalMotionState bool

	odometry     *odometry.Estimator
	lastOdometry motion.Estimate

	ring              *ring.Ring
	pendingRingPoints []geom.Vec2
}

// New creates a Pipeline with the given settings. Call Initialize before
// processing any capture record.
func New(settings Settings) *Pipeline {
	p := &Pipeline{
		settings:     settings,
		sensorStates: make(map[vehicleconfig.SensorRole]*SensorUpdateState),
		odometry:     odometry.New(settings.Odometry),
		ring:         ring.New(),
	}
	if settings.RingSegments > 0 {
		p.ring.SetSegmentCount(settings.RingSegments)
	}
	if p.settings.RingFallbackRangeMeters <= 0 {
		p.settings.RingFallbackRangeMeters = defaultRingFallbackRangeMeters
	}
	return p
}

// Initialize supplies the vehicle description every other stage needs:
// hardware delays, per-sensor calibration, and the contour the virtual
// sensor ring is built around. Must be called once before any Process*
// call does useful work.
func (p *Pipeline) Initialize(parameters *vehicleconfig.VehicleParameters) {
	p.parameters = parameters
	if parameters != nil {
		p.ring.SetVehicleContour(parameters.ContourISO)
	}
}

// UpdateVehicleState supplies an externally measured motion state (e.g.
// from wheel-speed/IMU fusion upstream), which takes over from the
// internal Doppler odometry estimator. Once called, the odometry feedback
// loop stays off for the rest of the Pipeline's life.
func (p *Pipeline) UpdateVehicleState(state motion.VehicleMotionState) {
	p.motionState = state
	p.hasExternalMotionState = true
}

// LatestOdometry returns the most recent Doppler-odometry solve, and
// whether it is usable (enough RANSAC inliers were found).
func (p *Pipeline) LatestOdometry() (motion.Estimate, bool) {
	return p.lastOdometry, p.lastOdometry.Valid
}

// SensorStatus returns a snapshot of every sensor's freshness-tracking
// state seen so far, keyed by role. The returned map is a copy: mutating
// it has no effect on the pipeline.
func (p *Pipeline) SensorStatus() map[vehicleconfig.SensorRole]SensorUpdateState {
	snapshot := make(map[vehicleconfig.SensorRole]SensorUpdateState, len(p.sensorStates))
	for role, state := range p.sensorStates {
		snapshot[role] = *state
	}
	return snapshot
}

func (p *Pipeline) updateSensorStatus(sensor vehicleconfig.SensorRole, timestampUs uint64) bool {
	state, ok := p.sensorStates[sensor]
	if !ok {
		state = &SensorUpdateState{}
		p.sensorStates[sensor] = state
	}

	if !state.Initialized {
		state.Initialized = true
		state.TimestampUs = timestampUs
		state.NumConsecutiveInvalid = 0
		return true
	}

	if timestampUs > state.TimestampUs {
		state.TimestampUs = timestampUs
		state.NumConsecutiveInvalid = 0
		return true
	}

	state.NumConsecutiveInvalid++
	return false
}

func secondsToMicroseconds(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds * 1e6)
}

func microsecondsToSeconds(us uint64) float64 {
	return float64(us) / 1e6
}

func observationTime(timestampUs, delayUs uint64) uint64 {
	if timestampUs > delayUs {
		return timestampUs - delayUs
	}
	return 0
}

func (p *Pipeline) predictionDt(observationTimeUs uint64) float64 {
	var deltaUs uint64
	if observationTimeUs > p.tracksTimestampUs {
		deltaUs = observationTimeUs - p.tracksTimestampUs
	}
	return microsecondsToSeconds(deltaUs)
}

func (p *Pipeline) absorbOdometry(cal vehicleconfig.RadarCalibration, observationTimeUs uint64, dets []*detect.EnhancedDetection) {
	if p.hasExternalMotionState {
		return
	}
	if !p.odometry.ProcessDetections(cal, observationTimeUs, dets) {
		return
	}
	est := p.odometry.LatestEstimate()
	p.lastOdometry = est
	p.motionState.VLon = est.VLon
	p.motionState.VLat = est.VLat
	p.motionState.YawRate = est.YawRate
}

// ProcessCornerDetections maps, classifies, and associates one corner
// radar's raw scan, feeding the Doppler odometry estimator from it when no
// external motion state is active. It returns the enhanced detections and
// whether the scan was fresh (first record or strictly newer timestamp) *and*
// the pipeline's current odometry estimate is valid.
func (p *Pipeline) ProcessCornerDetections(sensor vehicleconfig.SensorRole, timestampUs uint64, input *capture.CornerDetections) ([]*detect.EnhancedDetection, bool) {
	if p.parameters == nil {
		return nil, false
	}

	updateValid := p.updateSensorStatus(sensor, input.Header.TimestampUs)
	dets := detect.MapCorner(input)

	delayUs := secondsToMicroseconds(p.parameters.CornerHardwareDelay)
	obsTime := observationTime(timestampUs, delayUs)

	cal, _ := p.parameters.Calibration(sensor)
	classify.Classify(dets, cal, p.motionState, p.settings.Stationary)
	boxes := tracks.Predict(p.states, p.predictionDt(obsTime), p.settings.Association)
	tracks.Associate(dets, p.states, boxes, cal, p.motionState, p.settings.Association)

	p.absorbOdometry(cal, obsTime, dets)
	p.accumulateRingPoints(dets, cal)

	return dets, updateValid && p.lastOdometry.Valid
}

// ProcessFrontDetections maps, classifies, and associates one dual-range
// front radar's raw scan, splitting it into its short- and long-range
// halves. The short-range half feeds the odometry estimator, matching the
// upstream fusion module's choice of the higher-density beam.
func (p *Pipeline) ProcessFrontDetections(timestampUs uint64, input *capture.FrontDetections) (short, long []*detect.EnhancedDetection, valid bool) {
	if p.parameters == nil {
		return nil, nil, false
	}

	updateShort := p.updateSensorStatus(vehicleconfig.FrontShort, input.Header.TimestampUs)
	updateLong := p.updateSensorStatus(vehicleconfig.FrontLong, input.Header.TimestampUs)

	short, long = detect.MapFront(input)

	delayUs := secondsToMicroseconds(p.parameters.FrontCenterHardwareDelay)
	obsTime := observationTime(timestampUs, delayUs)

	calShort, _ := p.parameters.Calibration(vehicleconfig.FrontShort)
	calLong, _ := p.parameters.Calibration(vehicleconfig.FrontLong)

	classify.Classify(short, calShort, p.motionState, p.settings.Stationary)
	boxesShort := tracks.Predict(p.states, p.predictionDt(obsTime), p.settings.Association)
	tracks.Associate(short, p.states, boxesShort, calShort, p.motionState, p.settings.Association)

	classify.Classify(long, calLong, p.motionState, p.settings.Stationary)
	boxesLong := tracks.Predict(p.states, p.predictionDt(obsTime), p.settings.Association)
	tracks.Associate(long, p.states, boxesLong, calLong, p.motionState, p.settings.Association)

	p.absorbOdometry(calShort, obsTime, short)
	p.accumulateRingPoints(short, calShort)
	p.accumulateRingPoints(long, calLong)

	valid = updateShort && updateLong && p.lastOdometry.Valid
	return short, long, valid
}

// ProcessTrackFusion replaces the current track list with the tracks
// parsed from input. Moving-vote accumulators reset: they are intentionally
// not carried over from the previous frame's associations.
func (p *Pipeline) ProcessTrackFusion(timestampUs uint64, input *capture.TrackFusion) []tracks.EnhancedTrack {
	enhanced, states := tracks.MapTrackFusion(input)
	p.states = states
	p.tracksTimestampUs = timestampUs
	return enhanced
}

func (p *Pipeline) accumulateRingPoints(dets []*detect.EnhancedDetection, cal vehicleconfig.RadarCalibration) {
	for _, d := range dets {
		if !d.Valid() {
			continue
		}
		p.pendingRingPoints = append(p.pendingRingPoints, detect.PositionVCS(d, cal))
	}
}

// CommitTick feeds every detection position accumulated since the last
// call, plus the current tracks' footprints, into the virtual sensor ring
// and returns its updated ring points and segments. Call it once per
// merged capture tick, after every Process* call for that tick.
func (p *Pipeline) CommitTick() (ringPoints []geom.Vec2, segments []ring.Segment) {
	boxes := tracks.Predict(p.states, 0, p.settings.Association)
	footprints := make([]ring.Footprint, len(boxes))
	for i, box := range boxes {
		footprints[i] = ring.Footprint(box.Corners())
	}

	p.ring.Update(p.pendingRingPoints, footprints)
	p.pendingRingPoints = p.pendingRingPoints[:0]

	return p.ring.RingPoints(p.settings.RingFallbackRangeMeters), p.ring.Segments(p.settings.RingFallbackRangeMeters)
}
