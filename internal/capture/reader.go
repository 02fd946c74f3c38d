package capture

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"radar-replay/internal/telemetry"
	"radar-replay/internal/vehicleconfig"
)

// LineReader pulls one non-empty line at a time from an underlying text
// stream, matching the "skip blank lines, parse the next record" behaviour
// every capture stream shares.
type LineReader struct {
	scanner *bufio.Scanner
	eof     bool
}

// NewLineReader wraps r for line-oriented reading. Lines may be arbitrarily
// long, so the scanner's buffer is grown well past bufio's default.
func NewLineReader(r io.Reader) *LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &LineReader{scanner: scanner}
}

// next returns the next non-empty line, or ok=false once the stream is
// exhausted.
func (l *LineReader) next() (string, bool) {
	if l.eof {
		return "", false
	}
	for l.scanner.Scan() {
		line := l.scanner.Text()
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
	l.eof = true
	return "", false
}

// fieldScanner walks whitespace-separated numeric fields of a single line.
type fieldScanner struct {
	fields []string
	pos    int
}

func newFieldScanner(line string) *fieldScanner {
	return &fieldScanner{fields: strings.Fields(line)}
}

func (f *fieldScanner) next() (float64, bool) {
	if f.pos >= len(f.fields) {
		return 0, false
	}
	v, err := strconv.ParseFloat(f.fields[f.pos], 64)
	f.pos++
	if err != nil {
		return 0, false
	}
	return v, true
}

func (f *fieldScanner) skip(n int) bool {
	for i := 0; i < n; i++ {
		if _, ok := f.next(); !ok {
			return false
		}
	}
	return true
}

// CornerReader parses one corner-radar capture file: each line is a header
// (radar index, two timestamps, FOV, range, azimuth polarity, boresight,
// mount position) followed by CornerReturnCount 14-tuples, an optional
// (lookType, scanType, lookIndex) triple, and up to CornerReturnCount
// elevation values.
type CornerReader struct {
	lines           *LineReader
	LastTimestampUs uint64
}

func NewCornerReader(r io.Reader) *CornerReader {
	return &CornerReader{lines: NewLineReader(r)}
}

// ReadNext returns the next parsed frame and its output timestamp, skipping
// over any malformed lines.
func (c *CornerReader) ReadNext() (uint64, *CornerDetections, bool) {
	for {
		line, ok := c.lines.next()
		if !ok {
			return 0, nil, false
		}
		ts, data, ok := parseCornerLine(line)
		if !ok {
			telemetry.L().Warn("capture: skipping malformed corner detections line")
			continue
		}
		c.LastTimestampUs = ts
		return ts, data, true
	}
}

func parseCornerLine(line string) (uint64, *CornerDetections, bool) {
	fs := newFieldScanner(line)

	radarIndexRaw, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	timestampOutRaw, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	timestampInRaw, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	horizontalFov, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	maximumRange, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	azimuthPolarity, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	boresight, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	lonPos, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	latPos, ok := fs.next()
	if !ok {
		return 0, nil, false
	}

	data := &CornerDetections{
		Sensor: vehicleconfig.SensorRole(int(radarIndexRaw)),
		Header: DetectionsHeader{
			TimestampUs:     uint64(timestampInRaw),
			HorizontalFOV:   horizontalFov,
			MaximumRange:    maximumRange,
			AzimuthPolarity: azimuthPolarity,
			BoresightAngle:  boresight,
			SensorLongPos:   lonPos,
			SensorLatPos:    latPos,
		},
	}

	for i := 0; i < CornerReturnCount; i++ {
		v, ok := fs.next()
		if !ok {
			return 0, nil, false
		}
		data.Range[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.RangeRate[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.RangeRateRaw[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.AzimuthRaw[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Azimuth[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Amplitude[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.LongitudinalOffset[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.LateralOffset[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.MotionStatus[i] = int8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.RadarValidReturn[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.SuperResolution[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.NearTarget[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.HostVehicleClutter[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.MultiBounce[i] = uint8(v)
	}

	// lookType, scanType, lookIndex: present in the format but unused
	// downstream.
	fs.skip(3)

	data.ElevationRaw = make([]float64, CornerReturnCount)
	for i := 0; i < CornerReturnCount; i++ {
		v, ok := fs.next()
		if !ok {
			break
		}
		data.ElevationRaw[i] = v
	}

	return uint64(timestampOutRaw), data, true
}

// FrontReader parses one dual-range front-radar capture file, identical in
// layout to CornerReader but with FrontReturnCount returns; the leading
// radar-index field is read but ignored.
type FrontReader struct {
	lines           *LineReader
	LastTimestampUs uint64
}

func NewFrontReader(r io.Reader) *FrontReader {
	return &FrontReader{lines: NewLineReader(r)}
}

func (fr *FrontReader) ReadNext() (uint64, *FrontDetections, bool) {
	for {
		line, ok := fr.lines.next()
		if !ok {
			return 0, nil, false
		}
		ts, data, ok := parseFrontLine(line)
		if !ok {
			telemetry.L().Warn("capture: skipping malformed front detections line")
			continue
		}
		fr.LastTimestampUs = ts
		return ts, data, true
	}
}

func parseFrontLine(line string) (uint64, *FrontDetections, bool) {
	fs := newFieldScanner(line)

	if _, ok := fs.next(); !ok { // radarIndexRaw, unused for front frames
		return 0, nil, false
	}
	timestampOutRaw, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	timestampInRaw, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	horizontalFov, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	maximumRange, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	azimuthPolarity, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	boresight, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	lonPos, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	latPos, ok := fs.next()
	if !ok {
		return 0, nil, false
	}

	data := &FrontDetections{
		Header: DetectionsHeader{
			TimestampUs:     uint64(timestampInRaw),
			HorizontalFOV:   horizontalFov,
			MaximumRange:    maximumRange,
			AzimuthPolarity: azimuthPolarity,
			BoresightAngle:  boresight,
			SensorLongPos:   lonPos,
			SensorLatPos:    latPos,
		},
	}

	for i := 0; i < FrontReturnCount; i++ {
		v, ok := fs.next()
		if !ok {
			return 0, nil, false
		}
		data.Range[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.RangeRate[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.RangeRateRaw[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.AzimuthRaw[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Azimuth[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Amplitude[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.LongitudinalOffset[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.LateralOffset[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.MotionStatus[i] = int8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.RadarValidReturn[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.SuperResolution[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.NearTarget[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.HostVehicleClutter[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.MultiBounce[i] = uint8(v)
	}

	fs.skip(3) // lookType, scanType, lookIndex

	data.ElevationRaw = make([]float64, FrontReturnCount)
	for i := 0; i < FrontReturnCount; i++ {
		v, ok := fs.next()
		if !ok {
			break
		}
		data.ElevationRaw[i] = v
	}

	return uint64(timestampOutRaw), data, true
}

// TrackReader parses one track-fusion capture file: each line is a header
// (timestamp, vision timestamp, fusion timestamp, fusion index, image frame
// index) followed by TrackCount per-slot field groups, each wider than the
// fields this package keeps — the unused columns are skipped positionally.
type TrackReader struct {
	lines           *LineReader
	LastTimestampUs uint64
}

func NewTrackReader(r io.Reader) *TrackReader {
	return &TrackReader{lines: NewLineReader(r)}
}

func (tr *TrackReader) ReadNext() (uint64, *TrackFusion, bool) {
	for {
		line, ok := tr.lines.next()
		if !ok {
			return 0, nil, false
		}
		ts, data, ok := parseTrackLine(line)
		if !ok {
			telemetry.L().Warn("capture: skipping malformed track fusion line")
			continue
		}
		tr.LastTimestampUs = ts
		return ts, data, true
	}
}

func parseTrackLine(line string) (uint64, *TrackFusion, bool) {
	fs := newFieldScanner(line)

	currentTime, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	visionTimestamp, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	fusionTimestamp, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	fusionIndex, ok := fs.next()
	if !ok {
		return 0, nil, false
	}
	imageFrameIndex, ok := fs.next()
	if !ok {
		return 0, nil, false
	}

	ts := uint64(currentTime)
	data := &TrackFusion{
		TimestampUs:     ts,
		VisionTimestamp: uint64(visionTimestamp),
		FusionTimestamp: uint64(fusionTimestamp),
		FusionIndex:     uint32(fusionIndex),
		ImageFrameIndex: uint32(imageFrameIndex),
	}

	for i := 0; i < TrackCount; i++ {
		v, ok := fs.next()
		if !ok {
			return 0, nil, false
		}
		data.VCSLongitudinalPosition[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSLateralPosition[i] = v

		if !fs.skip(2) {
			return 0, nil, false
		}

		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Length[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Width[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Height[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.ProbabilityOfDetection[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.ID[i] = int32(v)

		if !fs.skip(8) {
			return 0, nil, false
		}

		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.MovingFlag[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.StationaryFlag[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.MoveableFlag[i] = uint8(v)

		if !fs.skip(5) {
			return 0, nil, false
		}

		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VehicleFlag[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.Status[i] = TrackStatus(uint8(v))
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.ObjectClassification[i] = uint16(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.ObjectClassConfidence[i] = uint8(v)
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSLateralVelocity[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSLongitudinalVelocity[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSLateralAcceleration[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSLongitudinalAcceleration[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSHeading[i] = v
		if v, ok = fs.next(); !ok {
			return 0, nil, false
		}
		data.VCSHeadingRate[i] = v
	}

	return ts, data, true
}

// StreamKind identifies which of the three capture formats a file path
// belongs to, inferred from its name the same way the upstream recorder
// labels output files.
type StreamKind int

const (
	StreamCorner StreamKind = iota
	StreamFront
	StreamTracks
)

func (k StreamKind) String() string {
	switch k {
	case StreamCorner:
		return "corner"
	case StreamFront:
		return "front"
	case StreamTracks:
		return "tracks"
	default:
		return "unknown"
	}
}

// ClassifyStream infers a capture file's StreamKind from its name.
func ClassifyStream(fileName string) StreamKind {
	lower := strings.ToLower(fileName)
	switch {
	case strings.Contains(lower, "track"):
		return StreamTracks
	case strings.Contains(lower, "front"):
		return StreamFront
	default:
		return StreamCorner
	}
}
