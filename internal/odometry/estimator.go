// Package odometry estimates the host vehicle's longitudinal/lateral
// velocity from a single radar scan's Doppler returns via RANSAC plus a
// least-squares refit on the inlier set (§4.6).
package odometry

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"radar-replay/internal/detect"
	"radar-replay/internal/motion"
	"radar-replay/internal/vehicleconfig"
)

// Settings tunes the RANSAC search and the inlier acceptance threshold.
type Settings struct {
	MaxIterations      int
	InlierThresholdMps float64
	MinInliers         int
}

// DefaultSettings matches the upstream fusion module's tuning.
func DefaultSettings() Settings {
	return Settings{MaxIterations: 120, InlierThresholdMps: 0.35, MinInliers: 6}
}

// sample is one Doppler return's direction cosines and measured range rate.
type sample struct {
	cosAngle  float64
	sinAngle  float64
	rangeRate float64
}

func predictedRangeRate(s sample, vLon, vLat float64) float64 {
	return -(vLon*s.cosAngle + vLat*s.sinAngle)
}

// solvePair solves the 2x2 linear system implied by two Doppler samples
// for (vLon, vLat). ok is false when the pair is too close to singular
// (near-parallel look angles) to trust.
func solvePair(a, b sample) (vLon, vLat float64, ok bool) {
	a11, a12 := -a.cosAngle, -a.sinAngle
	a21, a22 := -b.cosAngle, -b.sinAngle
	det := a11*a22 - a12*a21
	if math.Abs(det) < 1e-4 {
		return 0, 0, false
	}
	vLon = (a.rangeRate*a22 - a12*b.rangeRate) / det
	vLat = (a11*b.rangeRate - a.rangeRate*a21) / det
	return vLon, vLat, true
}

// Estimator runs the RANSAC-plus-refit solve and remembers its last result.
// Create one with New: the zero value has no RNG. The RNG is seeded
// deterministically so runs are reproducible given the same input sequence.
type Estimator struct {
	settings Settings
	rng      *rand.Rand
	last     motion.Estimate
}

// New creates an Estimator with the given settings and a seed-42 RNG,
// matching the upstream fusion module's fixed RANSAC seed.
func New(settings Settings) *Estimator {
	return &Estimator{
		settings: settings,
		rng:      rand.New(rand.NewSource(42)),
	}
}

// Reset clears the last estimate.
func (e *Estimator) Reset() {
	e.last = motion.Estimate{}
}

// ProcessDetections runs one RANSAC-plus-refit solve over dets' valid or
// super-resolution returns and updates the estimator's last estimate. It
// returns whether that estimate is usable (enough inliers were found).
func (e *Estimator) ProcessDetections(cal vehicleconfig.RadarCalibration, timestampUs uint64, dets []*detect.EnhancedDetection) bool {
	samples := collectSamples(cal, dets)
	if len(samples) < 2 {
		return false
	}

	threshold := math.Max(0.05, e.settings.InlierThresholdMps)
	iterations := e.settings.MaxIterations
	if iterations < 1 {
		iterations = 1
	}

	var bestVLon, bestVLat float64
	var bestInliers int

	for iter := 0; iter < iterations; iter++ {
		i := e.rng.Intn(len(samples))
		j := e.rng.Intn(len(samples))
		if len(samples) > 1 {
			for j == i {
				j = e.rng.Intn(len(samples))
			}
		}

		vLon, vLat, ok := solvePair(samples[i], samples[j])
		if !ok {
			continue
		}

		inliers := 0
		for _, s := range samples {
			residual := math.Abs(predictedRangeRate(s, vLon, vLat) - s.rangeRate)
			if residual <= threshold {
				inliers++
			}
		}

		if inliers > bestInliers {
			bestInliers = inliers
			bestVLon = vLon
			bestVLat = vLat
		}
	}

	useInliers := bestInliers >= e.settings.MinInliers
	var fitSamples []sample
	if useInliers {
		for _, s := range samples {
			residual := math.Abs(predictedRangeRate(s, bestVLon, bestVLat) - s.rangeRate)
			if residual <= threshold {
				fitSamples = append(fitSamples, s)
			}
		}
	} else {
		fitSamples = samples
	}

	if len(fitSamples) < 2 {
		return false
	}

	vLon, vLat := refit(fitSamples)

	inlierCount := len(fitSamples)
	if !useInliers {
		inlierCount = bestInliers
	}

	e.last = motion.Estimate{
		TimestampUs:    timestampUs,
		VLon:           vLon,
		VLat:           vLat,
		YawRate:        0,
		InlierCount:    inlierCount,
		Valid:          useInliers,
		DiagnosticOnly: !useInliers,
	}
	if useInliers {
		e.last.Covariance[0] = 1.0 / float64(len(fitSamples))
	} else {
		e.last.Covariance[0] = 1.0
	}
	e.last.Covariance[4] = e.last.Covariance[0]
	e.last.Covariance[8] = 1.0

	return e.last.Valid
}

// LatestEstimate returns the most recent solve's result.
func (e *Estimator) LatestEstimate() motion.Estimate {
	return e.last
}

func collectSamples(cal vehicleconfig.RadarCalibration, dets []*detect.EnhancedDetection) []sample {
	const validOrSuperResMask = 0x01 | 0x02

	var samples []sample
	for _, det := range dets {
		if det.Flags&validOrSuperResMask == 0 {
			continue
		}
		if math.IsNaN(det.RangeRate) || math.IsInf(det.RangeRate, 0) {
			continue
		}

		angle := detect.AngleRad(det, cal)
		samples = append(samples, sample{
			cosAngle:  math.Cos(angle),
			sinAngle:  math.Sin(angle),
			rangeRate: det.RangeRate,
		})
	}
	return samples
}

// refit performs an ordinary least-squares solve of
// rangeRate = -(vLon*cosAngle + vLat*sinAngle) over every sample, via QR
// decomposition.
func refit(samples []sample) (vLon, vLat float64) {
	n := len(samples)
	a := mat.NewDense(n, 2, nil)
	b := mat.NewDense(n, 1, nil)
	for i, s := range samples {
		a.Set(i, 0, -s.cosAngle)
		a.Set(i, 1, -s.sinAngle)
		b.Set(i, 0, s.rangeRate)
	}

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return 0, 0
	}
	return x.At(0, 0), x.At(1, 0)
}
