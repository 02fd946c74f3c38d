package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"radar-replay/internal/capture"
	"radar-replay/internal/merger"
	"radar-replay/internal/pipeline"
	"radar-replay/internal/runconfig"
	"radar-replay/internal/telemetry"
	"radar-replay/internal/vehicleconfig"
)

func main() {
	// ── CLI flags ────────────────────────────────────────────────────
	vehiclePath := flag.String("vehicle", "", "path to the vehicle INI configuration (required)")
	tuningPath := flag.String("tuning", "", "optional YAML file overriding RANSAC/classifier/association/ring defaults")
	logFile := flag.String("log", "", "optional log file path (stdout is always included)")

	defaults := pipeline.DefaultSettings()
	ransacIterations := flag.Int("ransac-iterations", defaults.Odometry.MaxIterations, "odometry RANSAC iteration budget")
	inlierThreshold := flag.Float64("inlier-threshold", defaults.Odometry.InlierThresholdMps, "odometry RANSAC inlier threshold, m/s (floored at 0.05)")
	minInliers := flag.Int("min-inliers", defaults.Odometry.MinInliers, "odometry minimum inlier count for a valid estimate")
	nSigma := flag.Float64("n-sigma", defaults.Stationary.NSigma, "classifier stationary/moving decision boundary, sigma")
	boundingBoxScale := flag.Float64("bounding-box-scale", defaults.Association.BoundingBoxScale, "track predicted-box scale factor")
	rangeRateSigma := flag.Float64("range-rate-sigma", defaults.Association.RangeRateSigma, "associator range-rate gating threshold, sigma")
	ringSegments := flag.Int("ring-segments", defaults.RingSegments, "virtual sensor ring angular segment count")
	fallbackRange := flag.Float64("fallback-range", defaults.RingFallbackRangeMeters, "virtual sensor ring fallback range, metres")
	flag.Parse()

	logger := telemetry.Init(telemetry.INFO, *logFile)
	defer logger.Close()

	telemetry.L().Info("radar-replay starting — GOMAXPROCS=%d PID=%d", runtime.GOMAXPROCS(0), os.Getpid())

	if *vehiclePath == "" {
		telemetry.L().Fatal("missing required -vehicle flag")
	}

	captureFiles := flag.Args()
	if len(captureFiles) == 0 {
		telemetry.L().Fatal("no capture files given (pass one or more positional file paths)")
	}

	params, err := vehicleconfig.Load(*vehiclePath)
	if err != nil {
		telemetry.L().Error("load vehicle config: %v", err)
		os.Exit(1)
	}

	settings := defaults
	settings.Odometry.MaxIterations = *ransacIterations
	settings.Odometry.InlierThresholdMps = *inlierThreshold
	settings.Odometry.MinInliers = *minInliers
	settings.Stationary.NSigma = *nSigma
	settings.Association.BoundingBoxScale = *boundingBoxScale
	settings.Association.RangeRateSigma = *rangeRateSigma
	settings.RingSegments = *ringSegments
	settings.RingFallbackRangeMeters = *fallbackRange

	if *tuningPath != "" {
		tuning, err := runconfig.Load(*tuningPath)
		if err != nil {
			telemetry.L().Error("load tuning config: %v", err)
			os.Exit(1)
		}
		settings = tuning.ApplyPipelineSettings(settings)
	}

	m := merger.New()
	opened := 0
	for _, path := range captureFiles {
		f, err := os.Open(path)
		if err != nil {
			telemetry.L().Warn("open capture file %s: %v", path, err)
			continue
		}

		switch capture.ClassifyStream(path) {
		case capture.StreamTracks:
			m.AddTrack(path, f)
		case capture.StreamFront:
			m.AddFront(path, f)
		default:
			m.AddCorner(path, f)
		}
		opened++
	}
	if opened == 0 {
		telemetry.L().Fatal("none of the given capture files could be opened")
	}

	p := pipeline.New(settings)
	p.Initialize(params)

	frameCount := 0
	for {
		frame, ok := m.Next()
		if !ok {
			break
		}
		frameCount++

		for _, cornerFrame := range frame.Corner {
			p.ProcessCornerDetections(cornerFrame.Sensor, frame.TimestampUs, cornerFrame.Data)
		}
		if frame.Front != nil {
			p.ProcessFrontDetections(frame.TimestampUs, frame.Front)
		}
		if frame.Tracks != nil {
			p.ProcessTrackFusion(frame.TimestampUs, frame.Tracks)
		}
		p.CommitTick()

		if frameCount%500 == 0 {
			if est, valid := p.LatestOdometry(); valid {
				telemetry.L().Debug("frame %d: t=%dus vLon=%.2f vLat=%.2f inliers=%d",
					frameCount, frame.TimestampUs, est.VLon, est.VLat, est.InlierCount)
			}
		}
	}

	telemetry.L().Info("processed %d merged frames from %d capture files", frameCount, opened)
	fmt.Printf("radar-replay: processed %d frames from %d capture files\n", frameCount, opened)
}
