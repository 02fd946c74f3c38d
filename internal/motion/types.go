// Package motion holds the small, shared vehicle-motion types that the
// classifier, associator, odometry estimator, and pipeline orchestrator all
// read or write.
package motion

// VehicleMotionState is the current best estimate of the host vehicle's
// planar motion, expressed in VCS: longitudinal/lateral velocity plus yaw
// rate. It is either fed in externally or derived from odometry (§4.6).
type VehicleMotionState struct {
	VLon            float64 // m/s
	VLat            float64 // m/s
	YawRate         float64 // rad/s
	VLonVariance    float64
	VLatVariance    float64
	YawRateVariance float64
}

// DefaultVehicleMotionState matches the zero-motion prior the estimator
// starts from before any odometry has run.
func DefaultVehicleMotionState() VehicleMotionState {
	return VehicleMotionState{
		VLonVariance:    0.1,
		VLatVariance:    0.1,
		YawRateVariance: 0.1,
	}
}

// Estimate is one Doppler-odometry solve's output (§4.6). Covariance is a
// row-major 3x3 matrix over (vLon, vLat, yawRate). DiagnosticOnly marks an
// estimate produced by the all-samples refit fallback when too few inliers
// were found — it can be logged but should not feed back into
// VehicleMotionState.
type Estimate struct {
	TimestampUs    uint64
	VLon           float64
	VLat           float64
	YawRate        float64
	Covariance     [9]float64
	InlierCount    int
	Valid          bool
	DiagnosticOnly bool
}
