package capture

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-replay/internal/vehicleconfig"
)

func buildCornerLine(radarIndex int, tsOut, tsIn uint64) string {
	var b strings.Builder
	fmtF := func(v float64) {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte(' ')
	}
	fmtF(float64(radarIndex))
	fmtF(float64(tsOut))
	fmtF(float64(tsIn))
	fmtF(1.2)  // horizontalFov
	fmtF(80.0) // maximumRange
	fmtF(1.0)  // azimuthPolarity
	fmtF(0.0)  // boresight
	fmtF(3.6)  // lonPos
	fmtF(0.9)  // latPos

	for i := 0; i < CornerReturnCount; i++ {
		fmtF(float64(i))      // range
		fmtF(0.1)              // rangeRate
		fmtF(0.1)              // rangeRateRaw
		fmtF(0.01)             // azimuthRaw
		fmtF(0.02)             // azimuth
		fmtF(10.0)             // amplitude
		fmtF(1.0)              // lonOffset
		fmtF(2.0)              // latOffset
		fmtF(-1)               // motionStatus
		fmtF(1)                // radarValid
		fmtF(0)                // superRes
		fmtF(0)                // nearTarget
		fmtF(0)                // hostVehicleClutter
		fmtF(0)                // multibounce
	}
	fmtF(0) // lookType
	fmtF(0) // scanType
	fmtF(0) // lookIndex

	for i := 0; i < CornerReturnCount; i++ {
		fmtF(0.05)
	}

	return strings.TrimSpace(b.String())
}

func TestCornerReader_ParsesFullLine(t *testing.T) {
	line := buildCornerLine(0, 1000, 999)
	reader := NewCornerReader(strings.NewReader(line))

	ts, data, ok := reader.ReadNext()
	require.True(t, ok)
	assert.Equal(t, uint64(1000), ts)
	assert.Equal(t, uint64(999), data.Header.TimestampUs)
	assert.Equal(t, float64(63), data.Range[63])
	assert.Equal(t, uint8(1), data.RadarValidReturn[0])
	require.Len(t, data.ElevationRaw, CornerReturnCount)
	assert.InDelta(t, 0.05, data.ElevationRaw[10], 1e-9)

	_, _, ok = reader.ReadNext()
	assert.False(t, ok)
}

func TestCornerReader_SkipsBlankAndMalformedLines(t *testing.T) {
	good := buildCornerLine(1, 2000, 1999)
	input := "\n\n   \nnot a number\n" + good + "\n"
	reader := NewCornerReader(strings.NewReader(input))

	ts, data, ok := reader.ReadNext()
	require.True(t, ok)
	assert.Equal(t, uint64(2000), ts)
	assert.Equal(t, vehicleconfig.FrontRight, data.Sensor)
}

func TestTrackReader_SkipsFixedOffsets(t *testing.T) {
	var b strings.Builder
	fmtF := func(v float64) {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte(' ')
	}
	fmtF(5000) // currentTime
	fmtF(4999) // visionTimestamp
	fmtF(4998) // fusionTimestamp
	fmtF(1)    // fusionIndex
	fmtF(2)    // imageFrameIndex

	for i := 0; i < TrackCount; i++ {
		fmtF(10.0) // vcsLon
		fmtF(1.0)  // vcsLat
		fmtF(0)    // skip
		fmtF(0)    // skip
		fmtF(4.5)  // length
		fmtF(1.8)  // width
		fmtF(1.5)  // height
		fmtF(0.9)  // probabilityOfDetection
		fmtF(42)   // id
		for s := 0; s < 8; s++ {
			fmtF(0) // skip x8
		}
		fmtF(1) // movingFlag
		fmtF(0) // stationaryFlag
		fmtF(1) // moveableFlag
		for s := 0; s < 5; s++ {
			fmtF(0) // skip x5
		}
		fmtF(0) // vehicleFlag
		fmtF(5) // status (Updated)
		fmtF(1) // objectClassification (Car)
		fmtF(3) // objectClassConfidence
		fmtF(0.2) // vcsLatVel
		fmtF(5.0) // vcsLonVel
		fmtF(0)   // vcsLatAccel
		fmtF(0)   // vcsLonAccel
		fmtF(0.1) // vcsHeading
		fmtF(0)   // vcsHeadingRate
	}

	line := strings.TrimSpace(b.String())
	reader := NewTrackReader(strings.NewReader(line))

	ts, data, ok := reader.ReadNext()
	require.True(t, ok)
	assert.Equal(t, uint64(5000), ts)
	assert.Equal(t, int32(42), data.ID[0])
	assert.Equal(t, TrackUpdated, data.Status[0])
	assert.Equal(t, ClassCar, TrackObjectClass(data.ObjectClassification[0]))
	assert.Equal(t, uint8(1), data.MovingFlag[TrackCount-1])
}
