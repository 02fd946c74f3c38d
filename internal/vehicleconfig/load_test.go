package vehicleconfig

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validINI = `
[Geometry]
distRearAxle = 3.5

[Radar Common]
cornerHardwareTimeDelay = 0.01
frontCenterHardwareTimeDelay = 0.02

[Contour]
contourPt0 = 1.0,2.0
contourPt1 = -1.0,2.0
contourPt2 = -1.0,-2.0

[SRR FWD LEFT]
polarityVCS = 1
rangeRateAccuracy = 0.1
azimuthAccuracy = 2.0
orientationVCS = 45.0
lonPosVCS = 3.6
latPosVCS = 0.9
heightAboveGround = 0.5
horizontalFieldOfView = 150.0

[SRR FWD RIGHT]
lonPosVCS = 3.6
latPosVCS = -0.9
orientationVCS = -45.0

[SRR REAR LEFT]
lonPosVCS = 0.0
latPosVCS = 0.9
orientationVCS = 135.0

[SRR REAR RIGHT]
lonPosVCS = 0.0
latPosVCS = -0.9
orientationVCS = -135.0

[MRR FRONT]
lonPosVCS = 3.7
latPosVCS = 0.0
orientationVCS = 0.0
horizontalFieldOfView = 40.0
`

func writeTempINI(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vehicle.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeTempINI(t, validINI)

	params, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3.5, params.DistRearAxleToFrontBumper)
	assert.Equal(t, 0.01, params.CornerHardwareDelay)
	assert.Equal(t, 0.02, params.FrontCenterHardwareDelay)

	require.Len(t, params.ContourISO, 3)
	assert.Equal(t, 2.0, params.ContourISO[0].X)
	assert.Equal(t, 1.0, params.ContourISO[0].Y)

	fl, ok := params.Calibration(FrontLeft)
	require.True(t, ok)
	assert.InDelta(t, math.Pi/4, fl.VCS.Orientation, 1e-9)
	assert.InDelta(t, -math.Pi/4, fl.ISO.Orientation, 1e-9)
	assert.InDelta(t, 3.6+3.5, fl.ISO.Longitudinal, 1e-9)
	assert.InDelta(t, -0.9, fl.ISO.Lateral, 1e-9)
}

func TestLoad_FrontLongInheritsFrontShort(t *testing.T) {
	path := writeTempINI(t, validINI)

	params, err := Load(path)
	require.NoError(t, err)

	short, _ := params.Calibration(FrontShort)
	long, _ := params.Calibration(FrontLong)
	assert.Equal(t, short, long)
}

func TestLoad_FrontLongIndependentSection(t *testing.T) {
	body := validINI + `
[MRR FRONT LONG]
lonPosVCS = 3.8
latPosVCS = 0.0
orientationVCS = 0.0
horizontalFieldOfView = 10.0
`
	path := writeTempINI(t, body)

	params, err := Load(path)
	require.NoError(t, err)

	short, _ := params.Calibration(FrontShort)
	long, _ := params.Calibration(FrontLong)
	assert.NotEqual(t, short, long)
	assert.InDelta(t, 3.8+3.5, long.ISO.Longitudinal, 1e-9)
}

func TestLoad_MissingRequiredSection(t *testing.T) {
	body := `
[Geometry]
distRearAxle = 3.5
`
	path := writeTempINI(t, body)

	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Radar Common", cfgErr.Section)
}

func TestLoad_MissingDistRearAxle(t *testing.T) {
	body := `
[Radar Common]
cornerHardwareTimeDelay = 0.01
`
	path := writeTempINI(t, body)

	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Geometry", cfgErr.Section)
}

func TestLoad_ISOPoseRederivationRoundTrip(t *testing.T) {
	path := writeTempINI(t, validINI)

	params, err := Load(path)
	require.NoError(t, err)

	for role := FrontLeft; role < sensorRoleCount; role++ {
		cal, ok := params.Calibration(role)
		require.True(t, ok)

		rederived := cal
		rederived.deriveISO(params.DistRearAxleToFrontBumper)

		if diff := cmp.Diff(cal.ISO, rederived.ISO); diff != "" {
			t.Errorf("%s: ISO pose does not round-trip through deriveISO:\n%s", role, diff)
		}
	}
}

func TestLoad_VehicleSectionFallback(t *testing.T) {
	body := `
[Vehicle]
distRearAxle = 2.8

[Radar Common]
cornerHardwareTimeDelay = 0.0
frontCenterHardwareTimeDelay = 0.0

[Contour]

[SRR FWD LEFT]
[SRR FWD RIGHT]
[SRR REAR LEFT]
[SRR REAR RIGHT]
[MRR FRONT]
`
	path := writeTempINI(t, body)

	params, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.8, params.DistRearAxleToFrontBumper)
}
