// Package ring builds the virtual sensor ring (§4.7): a fixed number of
// angular segments swept around the vehicle contour's centroid, each
// reporting the nearest detection or track footprint that intersects it
// beyond the vehicle's own body.
package ring

import (
	"math"

	"radar-replay/internal/geom"
)

// DefaultSegmentCount matches the upstream mapping module's angular
// resolution.
const DefaultSegmentCount = 72

const epsilon = 1e-5

// Footprint is a track's four-corner oriented bounding box, in the same
// frame as the vehicle contour and detections passed to Update.
type Footprint [4]geom.Vec2

// Segment is one angular slice's extent: a ray from startDist to the
// nearest intersecting point (or the fallback range), both measured from
// the ring's center along direction.
type Segment struct {
	Start geom.Vec2
	End   geom.Vec2
}

// Ring tracks, for each of its angular segments, how far out the vehicle
// contour itself extends (the start distance) and how far out the nearest
// detection or track footprint reaches this update (the end distance).
// The zero value is not ready to use; call SetSegmentCount or rely on the
// default from New.
type Ring struct {
	contour      []geom.Vec2
	center       geom.Vec2
	segmentCount int
	directions   []geom.Vec2
	startDist    []float64
	endDist      []float64
	ready        bool
}

// New creates a Ring with the default segment count.
func New() *Ring {
	r := &Ring{}
	r.SetSegmentCount(DefaultSegmentCount)
	return r
}

// SetSegmentCount changes the number of angular segments, clamped to a
// minimum of 3, and rebuilds the segment directions. It returns false if
// count (after clamping) matches the current configuration and segments
// already exist, in which case nothing changed.
func (r *Ring) SetSegmentCount(count int) bool {
	clamped := count
	if clamped < 3 {
		clamped = 3
	}
	if clamped == r.segmentCount && len(r.directions) != 0 {
		return false
	}

	r.segmentCount = clamped
	r.directions = make([]geom.Vec2, r.segmentCount)
	r.startDist = make([]float64, r.segmentCount)
	r.endDist = make([]float64, r.segmentCount)
	for i := range r.endDist {
		r.endDist[i] = math.Inf(1)
	}

	r.rebuildSegments()

	if len(r.contour) >= 3 {
		r.SetVehicleContour(r.contour)
	} else {
		r.ready = false
	}
	return true
}

// SegmentCount reports the current number of angular segments.
func (r *Ring) SegmentCount() int { return r.segmentCount }

// SetVehicleContour recenters the ring on contour's centroid and recomputes
// each segment's start distance (how far the vehicle body itself extends
// along that direction). contour must have at least 3 points; a shorter
// slice is ignored.
func (r *Ring) SetVehicleContour(contour []geom.Vec2) {
	contour = dropDuplicateClosingVertex(contour)
	if len(contour) < 3 {
		return
	}

	r.contour = contour

	var center geom.Vec2
	for _, p := range contour {
		center = center.Add(p)
	}
	center = center.Scale(1.0 / float64(len(contour)))
	r.center = center

	for i := range r.directions {
		distance := r.contourRayDistance(r.center, r.directions[i])
		r.startDist[i] = math.Max(0, distance)
	}

	r.ready = true
}

// Update resets every segment's end distance and then narrows it to the
// nearest detection point or track footprint edge that intersects the
// segment's ray beyond the vehicle body. Call it once per processed frame.
func (r *Ring) Update(detections []geom.Vec2, footprints []Footprint) {
	r.resetSegments()

	if !r.ready {
		return
	}

	for _, point := range detections {
		delta := point.Sub(r.center)
		distance := delta.Length()
		if !isFinite(distance) || distance <= epsilon {
			continue
		}

		idx := r.segmentIndex(math.Atan2(delta.Y, delta.X))
		if distance <= r.startDist[idx]+epsilon {
			continue
		}
		if distance < r.endDist[idx] {
			r.endDist[idx] = distance
		}
	}

	for _, footprint := range footprints {
		for i := range r.directions {
			distance := r.polygonRayDistance(r.center, r.directions[i], footprint)
			if !isFinite(distance) || distance <= epsilon {
				continue
			}
			if distance <= r.startDist[i]+epsilon {
				continue
			}
			if distance < r.endDist[i] {
				r.endDist[i] = distance
			}
		}
	}
}

// Reset clears every segment's accumulated end distance without touching
// the vehicle contour or start distances.
func (r *Ring) Reset() {
	r.resetSegments()
}

// RingPoints returns one point per segment, each the furthest-extent
// point along that segment's ray: the nearest detected obstacle, or
// fallbackRange if nothing was seen. Returns nil if the ring has no
// contour set yet or fallbackRange is non-positive.
func (r *Ring) RingPoints(fallbackRange float64) []geom.Vec2 {
	if !r.ready || fallbackRange <= 0 {
		return nil
	}

	points := make([]geom.Vec2, r.segmentCount)
	for i := range r.directions {
		length := math.Min(r.endDist[i], fallbackRange)
		length = math.Max(length, r.startDist[i])
		points[i] = r.center.Add(r.directions[i].Scale(length))
	}
	return points
}

// Segments returns one Segment per angular slice, running from the
// vehicle body's edge out to the furthest-extent point (capped at
// fallbackRange). Returns nil under the same conditions as RingPoints.
func (r *Ring) Segments(fallbackRange float64) []Segment {
	if !r.ready || fallbackRange <= 0 {
		return nil
	}

	segments := make([]Segment, r.segmentCount)
	for i := range r.directions {
		length := math.Min(r.endDist[i], fallbackRange)
		length = math.Max(length, r.startDist[i])
		start := r.center.Add(r.directions[i].Scale(r.startDist[i]))
		end := r.center.Add(r.directions[i].Scale(length))
		segments[i] = Segment{Start: start, End: end}
	}
	return segments
}

func (r *Ring) rebuildSegments() {
	if r.segmentCount == 0 {
		return
	}

	delta := 2 * math.Pi / float64(r.segmentCount)
	for i := range r.directions {
		angle := (float64(i) + 0.5) * delta
		r.directions[i] = geom.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
		r.startDist[i] = 0
	}
}

func (r *Ring) resetSegments() {
	for i := range r.endDist {
		r.endDist[i] = math.Inf(1)
	}
}

func (r *Ring) segmentIndex(angle float64) int {
	if r.segmentCount == 0 {
		return 0
	}
	normalized := geom.WrapTwoPi(angle)
	scale := normalized / (2 * math.Pi)
	idx := int(scale * float64(r.segmentCount))
	if idx >= r.segmentCount {
		idx = r.segmentCount - 1
	}
	return idx
}

// raySegmentIntersection tests the ray from origin along direction against
// the segment a-b, returning the ray parameter t at the intersection (so
// the hit point is origin + direction*t) when the ray crosses the segment
// going forward.
func raySegmentIntersection(origin, direction, a, b geom.Vec2) (t float64, ok bool) {
	edge := b.Sub(a)
	denom := geom.Cross(direction, edge)
	if math.Abs(denom) < epsilon {
		return 0, false
	}

	delta := a.Sub(origin)
	t = geom.Cross(delta, edge) / denom
	u := geom.Cross(delta, direction) / denom
	if t >= 0 && u >= 0 && u <= 1 {
		return t, true
	}
	return 0, false
}

func (r *Ring) contourRayDistance(origin, direction geom.Vec2) float64 {
	if len(r.contour) < 3 {
		return 0
	}

	best := math.Inf(1)
	count := len(r.contour)
	for i := 0; i < count; i++ {
		a := r.contour[i]
		b := r.contour[(i+1)%count]
		if t, ok := raySegmentIntersection(origin, direction, a, b); ok {
			best = math.Min(best, t)
		}
	}

	if !isFinite(best) {
		return 0
	}
	return best
}

func (r *Ring) polygonRayDistance(origin, direction geom.Vec2, polygon Footprint) float64 {
	best := math.Inf(1)
	for i := range polygon {
		a := polygon[i]
		b := polygon[(i+1)%len(polygon)]
		if t, ok := raySegmentIntersection(origin, direction, a, b); ok {
			best = math.Min(best, t)
		}
	}
	return best
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// dropDuplicateClosingVertex removes a trailing point that coincides with
// the first within 1e-9, so the polygon built from contour has no
// duplicate closing vertex before its edges are walked.
func dropDuplicateClosingVertex(contour []geom.Vec2) []geom.Vec2 {
	if len(contour) < 2 {
		return contour
	}
	first, last := contour[0], contour[len(contour)-1]
	if math.Abs(first.X-last.X) < 1e-9 && math.Abs(first.Y-last.Y) < 1e-9 {
		return contour[:len(contour)-1]
	}
	return contour
}
