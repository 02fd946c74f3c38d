package detect

import "radar-replay/internal/capture"

// MapCorner converts one corner radar's raw scan into CornerReturnCount
// EnhancedDetections, preserving index alignment with the source arrays.
func MapCorner(raw *capture.CornerDetections) []*EnhancedDetection {
	out := make([]*EnhancedDetection, capture.CornerReturnCount)
	for i := range out {
		out[i] = &EnhancedDetection{
			Range:              raw.Range[i],
			RangeRate:          raw.RangeRate[i],
			RangeRateRaw:       raw.RangeRateRaw[i],
			AzimuthRaw:         raw.AzimuthRaw[i],
			Azimuth:            raw.Azimuth[i],
			Amplitude:          raw.Amplitude[i],
			LongitudinalOffset: raw.LongitudinalOffset[i],
			LateralOffset:      raw.LateralOffset[i],
			MotionStatus:       raw.MotionStatus[i],
			Flags: PackFlags(raw.RadarValidReturn[i], raw.SuperResolution[i],
				raw.NearTarget[i], raw.HostVehicleClutter[i], raw.MultiBounce[i]),
			FusedTrackIndex: NewFusedTrackIndex,
		}
		if i < len(raw.ElevationRaw) {
			out[i].ElevationRaw = raw.ElevationRaw[i]
		}
	}
	return out
}

// MapFront converts one dual-range front radar's raw scan into two halves:
// the first CornerReturnCount returns (short-range beam) and the remaining
// returns (long-range beam), each index-aligned with its half of the
// source arrays.
func MapFront(raw *capture.FrontDetections) (short, long []*EnhancedDetection) {
	short = make([]*EnhancedDetection, capture.CornerReturnCount)
	long = make([]*EnhancedDetection, capture.FrontReturnCount-capture.CornerReturnCount)

	for i := 0; i < capture.FrontReturnCount; i++ {
		det := &EnhancedDetection{
			Range:              raw.Range[i],
			RangeRate:          raw.RangeRate[i],
			RangeRateRaw:       raw.RangeRateRaw[i],
			AzimuthRaw:         raw.AzimuthRaw[i],
			Azimuth:            raw.Azimuth[i],
			Amplitude:          raw.Amplitude[i],
			LongitudinalOffset: raw.LongitudinalOffset[i],
			LateralOffset:      raw.LateralOffset[i],
			MotionStatus:       raw.MotionStatus[i],
			Flags: PackFlags(raw.RadarValidReturn[i], raw.SuperResolution[i],
				raw.NearTarget[i], raw.HostVehicleClutter[i], raw.MultiBounce[i]),
			FusedTrackIndex: NewFusedTrackIndex,
		}
		if i < len(raw.ElevationRaw) {
			det.ElevationRaw = raw.ElevationRaw[i]
		}

		if i < capture.CornerReturnCount {
			short[i] = det
		} else {
			long[i-capture.CornerReturnCount] = det
		}
	}

	return short, long
}
