package merger

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-replay/internal/capture"
)

func cornerLine(radarIndex int, tsOut uint64) string {
	var b strings.Builder
	f := func(v float64) {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte(' ')
	}
	f(float64(radarIndex))
	f(float64(tsOut))
	f(float64(tsOut))
	f(1.2)
	f(80)
	f(1)
	f(0)
	f(3.6)
	f(0.9)
	for i := 0; i < capture.CornerReturnCount; i++ {
		for j := 0; j < 14; j++ {
			f(0)
		}
	}
	f(0)
	f(0)
	f(0)
	for i := 0; i < capture.CornerReturnCount; i++ {
		f(0)
	}
	return strings.TrimSpace(b.String())
}

func TestMerger_EmitsEarliestAndTies(t *testing.T) {
	m := New()
	m.AddCorner("corner:front_left", strings.NewReader(
		cornerLine(0, 100)+"\n"+cornerLine(0, 300)+"\n"))
	m.AddCorner("corner:front_right", strings.NewReader(
		cornerLine(1, 100)+"\n"+cornerLine(1, 200)+"\n"))

	frame, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(100), frame.TimestampUs)
	assert.Len(t, frame.Corner, 2)
	assert.ElementsMatch(t, []string{"corner:front_left", "corner:front_right"}, frame.Sources)

	frame, ok = m.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(200), frame.TimestampUs)
	assert.Len(t, frame.Corner, 1)

	frame, ok = m.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(300), frame.TimestampUs)
	assert.Len(t, frame.Corner, 1)

	_, ok = m.Next()
	assert.False(t, ok)
	assert.True(t, m.Exhausted())
}

func TestMerger_NoStreams(t *testing.T) {
	m := New()
	_, ok := m.Next()
	assert.False(t, ok)
	assert.True(t, m.Exhausted())
}
