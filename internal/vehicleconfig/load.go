package vehicleconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"radar-replay/internal/geom"
	"radar-replay/internal/telemetry"
)

// ConfigError reports a fatal vehicle-configuration problem: the file could
// not be read or parsed as INI, a required section is missing, or
// distRearAxle is missing. A numeric value that does not parse is not an
// error: the key keeps its previous value. Callers can errors.As into it to
// recover the offending section.
type ConfigError struct {
	Path    string
	Section string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("vehicleconfig: %s: section %q: %s", e.Path, e.Section, e.Reason)
	}
	return fmt.Sprintf("vehicleconfig: %s: %s", e.Path, e.Reason)
}

const maxContourPoints = 64

var radarSections = map[SensorRole]string{
	FrontLeft:  "SRR FWD LEFT",
	FrontRight: "SRR FWD RIGHT",
	RearLeft:   "SRR REAR LEFT",
	RearRight:  "SRR REAR RIGHT",
	FrontShort: "MRR FRONT",
	FrontLong:  "MRR FRONT LONG",
}

// Load parses path (§4.1) into a VehicleParameters.
//
// The contour section stores each point as "longitudinal,lateral" but this
// loader preserves the source format's own swap into {lateral,
// longitudinal} order — downstream geometry expects that storage order, not
// a straightforward (lon, lat) pair; see DESIGN.md for why this isn't
// "fixed" here.
func Load(path string) (*VehicleParameters, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("parse: %v", err)}
	}

	params := &VehicleParameters{}

	params.DistRearAxleToFrontBumper, err = readDistRearAxle(cfg, path)
	if err != nil {
		return nil, err
	}

	commonSection, err := section(cfg, path, "Radar Common")
	if err != nil {
		return nil, err
	}
	params.CornerHardwareDelay = readFloat(commonSection, "cornerHardwareTimeDelay", 0)
	params.FrontCenterHardwareDelay = readFloat(commonSection, "frontCenterHardwareTimeDelay", 0)

	params.ContourISO, err = readContour(cfg, path)
	if err != nil {
		return nil, err
	}

	shortSection, err := section(cfg, path, radarSections[FrontShort])
	if err != nil {
		return nil, err
	}
	shortCal := readRadarCalibration(shortSection, params.DistRearAxleToFrontBumper, RadarCalibration{Polarity: 1})
	params.Calibrations[FrontShort] = shortCal

	if longSection, err := cfg.GetSection(radarSections[FrontLong]); err == nil && sectionHasKeys(longSection) {
		params.Calibrations[FrontLong] = readRadarCalibration(longSection, params.DistRearAxleToFrontBumper, RadarCalibration{Polarity: 1})
	} else {
		telemetry.L().Debug("vehicleconfig: %s absent, FrontLong inherits FrontShort (MRR FRONT)", radarSections[FrontLong])
		params.Calibrations[FrontLong] = shortCal
	}

	for _, role := range []SensorRole{FrontLeft, FrontRight, RearLeft, RearRight} {
		sec, err := section(cfg, path, radarSections[role])
		if err != nil {
			return nil, err
		}
		params.Calibrations[role] = readRadarCalibration(sec, params.DistRearAxleToFrontBumper, RadarCalibration{Polarity: 1})
	}

	return params, nil
}

func sectionHasKeys(sec *ini.Section) bool {
	return len(sec.Keys()) > 0
}

func section(cfg *ini.File, path, name string) (*ini.Section, error) {
	sec, err := cfg.GetSection(name)
	if err != nil {
		return nil, &ConfigError{Path: path, Section: name, Reason: "required section missing"}
	}
	return sec, nil
}

func readDistRearAxle(cfg *ini.File, path string) (float64, error) {
	var current float64

	if sec, err := cfg.GetSection("Geometry"); err == nil {
		current = readFloat(sec, "distRearAxle", current)
	}
	if current <= 0 {
		if sec, err := cfg.GetSection("Vehicle"); err == nil {
			current = readFloat(sec, "distRearAxle", current)
		}
	}
	if current <= 0 {
		return 0, &ConfigError{Path: path, Section: "Geometry", Reason: "distRearAxle missing from [Geometry] and [Vehicle] fallback"}
	}
	return current, nil
}

func readContour(cfg *ini.File, path string) ([]geom.Vec2, error) {
	sec, err := section(cfg, path, "Contour")
	if err != nil {
		return nil, err
	}

	var contour []geom.Vec2
	for i := 0; i < maxContourPoints; i++ {
		key := fmt.Sprintf("contourPt%d", i)
		k, err := sec.GetKey(key)
		if err != nil {
			continue
		}
		lon, lat, ok := parsePair(k.String())
		if !ok || !isFinite(lon) || !isFinite(lat) {
			continue
		}
		contour = append(contour, geom.Vec2{X: lat, Y: lon})
	}
	return contour, nil
}

func parsePair(value string) (a, b float64, ok bool) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return a, b, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func readRadarCalibration(sec *ini.Section, distRearAxle float64, base RadarCalibration) RadarCalibration {
	cal := base

	cal.Polarity = readFloat(sec, "polarityVCS", cal.Polarity)
	cal.RangeRateAccuracy = readFloat(sec, "rangeRateAccuracy", cal.RangeRateAccuracy)

	azimuthAccuracyDeg := readFloat(sec, "azimuthAccuracy", radToDeg(cal.AzimuthAccuracy))
	cal.AzimuthAccuracy = degToRad(azimuthAccuracyDeg)

	orientationDeg := readFloat(sec, "orientationVCS", radToDeg(cal.VCS.Orientation))
	cal.VCS.Orientation = degToRad(orientationDeg)

	cal.VCS.Longitudinal = readFloat(sec, "lonPosVCS", cal.VCS.Longitudinal)
	cal.VCS.Lateral = readFloat(sec, "latPosVCS", cal.VCS.Lateral)
	cal.VCS.Height = readFloat(sec, "heightAboveGround", cal.VCS.Height)

	fovDeg := readFloat(sec, "horizontalFieldOfView", radToDeg(cal.HorizontalFOV))
	cal.HorizontalFOV = degToRad(fovDeg)

	cal.deriveISO(distRearAxle)
	return cal
}

func readFloat(sec *ini.Section, key string, current float64) float64 {
	k, err := sec.GetKey(key)
	if err != nil {
		return current
	}
	v, err := k.Float64()
	if err != nil {
		return current
	}
	return v
}

func radToDeg(r float64) float64 { return r * 180 / math.Pi }
func degToRad(d float64) float64 { return d * math.Pi / 180 }
