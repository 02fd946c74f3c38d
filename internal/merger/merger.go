// Package merger combines any number of corner-radar, front-radar, and
// track-fusion capture streams into a single time-ordered sequence of
// frames, emitting every stream that shares the earliest pending timestamp
// on each step (§4.2).
package merger

import (
	"io"

	"radar-replay/internal/capture"
	"radar-replay/internal/telemetry"
	"radar-replay/internal/vehicleconfig"
)

type kind int

const (
	kindCorner kind = iota
	kindFront
	kindTrack
)

// stream tracks one capture file's read cursor: at most one parsed record
// pending at a time, mirroring the upstream player's per-stream state.
type stream struct {
	kind  kind
	label string

	corner *capture.CornerReader
	front  *capture.FrontReader
	track  *capture.TrackReader

	hasPending      bool
	exhausted       bool
	timestampUs     uint64
	lastTimestampUs uint64

	pendingCorner *capture.CornerDetections
	pendingFront  *capture.FrontDetections
	pendingTrack  *capture.TrackFusion
}

// fill attempts to parse the stream's next record if nothing is currently
// pending. It returns true if a record is pending afterward.
func (s *stream) fill() bool {
	if s.hasPending || s.exhausted {
		return s.hasPending
	}

	var ts uint64
	var ok bool
	switch s.kind {
	case kindCorner:
		ts, s.pendingCorner, ok = s.corner.ReadNext()
	case kindFront:
		ts, s.pendingFront, ok = s.front.ReadNext()
	case kindTrack:
		ts, s.pendingTrack, ok = s.track.ReadNext()
	}

	if !ok {
		s.exhausted = true
		return false
	}

	if s.lastTimestampUs > 0 && ts < s.lastTimestampUs {
		telemetry.L().Warn("merger: non-monotonic timestamp on stream %q (%d after %d)",
			s.label, ts, s.lastTimestampUs)
	}
	s.lastTimestampUs = ts
	s.timestampUs = ts
	s.hasPending = true
	return true
}

// CornerFrame pairs a parsed corner-radar record with the mount role it
// came from.
type CornerFrame struct {
	Sensor vehicleconfig.SensorRole
	Data   *capture.CornerDetections
}

// Frame is one merged tick: every stream whose pending record shares the
// earliest timestamp this step, gathered together.
type Frame struct {
	TimestampUs uint64
	Corner      []CornerFrame
	Front       *capture.FrontDetections
	Tracks      *capture.TrackFusion
	Sources     []string
}

// Merger pulls from every registered stream and emits merged Frames in
// timestamp order. It holds at most one pending record per stream, so its
// own memory footprint never grows with capture length (§5).
type Merger struct {
	streams []*stream
}

// New creates an empty Merger. Add streams with AddCorner/AddFront/AddTrack
// before calling Next.
func New() *Merger {
	return &Merger{}
}

// AddCorner registers a corner-radar capture stream. The sensor mount role
// for each record comes from the line itself, not from label.
func (m *Merger) AddCorner(label string, r io.Reader) {
	m.streams = append(m.streams, &stream{
		kind:   kindCorner,
		label:  label,
		corner: capture.NewCornerReader(r),
	})
}

// AddFront registers the dual-range front-radar capture stream.
func (m *Merger) AddFront(label string, r io.Reader) {
	m.streams = append(m.streams, &stream{
		kind:  kindFront,
		label: label,
		front: capture.NewFrontReader(r),
	})
}

// AddTrack registers the fused-track capture stream.
func (m *Merger) AddTrack(label string, r io.Reader) {
	m.streams = append(m.streams, &stream{
		kind:  kindTrack,
		label: label,
		track: capture.NewTrackReader(r),
	})
}

// Next returns the next merged Frame, or ok=false once every stream is
// exhausted.
func (m *Merger) Next() (*Frame, bool) {
	for _, s := range m.streams {
		s.fill()
	}

	earliest, any := uint64(0), false
	for _, s := range m.streams {
		if !s.hasPending {
			continue
		}
		if !any || s.timestampUs < earliest {
			earliest = s.timestampUs
			any = true
		}
	}
	if !any {
		return nil, false
	}

	frame := &Frame{TimestampUs: earliest}
	for _, s := range m.streams {
		if !s.hasPending || s.timestampUs != earliest {
			continue
		}

		switch s.kind {
		case kindCorner:
			frame.Corner = append(frame.Corner, CornerFrame{
				Sensor: s.pendingCorner.Sensor,
				Data:   s.pendingCorner,
			})
		case kindFront:
			frame.Front = s.pendingFront
		case kindTrack:
			frame.Tracks = s.pendingTrack
		}
		frame.Sources = append(frame.Sources, s.label)
		s.hasPending = false
	}

	return frame, true
}

// Exhausted reports whether every registered stream has been fully
// consumed.
func (m *Merger) Exhausted() bool {
	for _, s := range m.streams {
		if !s.exhausted || s.hasPending {
			return false
		}
	}
	return true
}
