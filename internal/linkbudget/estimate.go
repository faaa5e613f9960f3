package linkbudget

import (
	"math"

	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

// fsplReferenceDB is FSPL at the 1-meter reference distance without the
// frequency term: 20*log10(0.001 km) + 32.44.
const fsplReferenceDB = -60.0 + 32.44

// EstimateRSSI returns the analytic received signal strength in dBm
// between a transmitter and a receiver over a straight line, using the
// log-distance model extended from free-space loss at a 1 m reference,
// plus a fixed penalty for every obstacle the line crosses.
//
// Deterministic given its inputs, no side effects, never fails: devices
// closer than 1 m return 0 dBm to avoid the logarithm singularity.
func EstimateRSSI(tx, rx *scene.Device, obstacles []*scene.Obstacle, env Environment) float64 {
	distM := tx.Position.Distance(rx.Position) * 1000.0
	if distM < 1.0 {
		return 0.0
	}

	freqMHz := CarrierFreqMHz(tx)
	n := env.PathLossExponent()

	fspl1m := fsplReferenceDB + 20.0*math.Log10(freqMHz)
	pathLoss := fspl1m + 10.0*n*math.Log10(distM)

	margin := tx.Params.TxPowerDBm + tx.Params.AntennaGainDBi + HeightGainDB(tx.Params.ElevationM)

	var obstacleLoss float64
	for _, o := range obstacles {
		if SegmentCrossesObstacle(tx, rx, o) {
			obstacleLoss += ObstacleAttenuationDB(o)
		}
	}

	return margin - pathLoss - obstacleLoss
}

// LinkMarginDB returns the estimated RSSI minus the receiver sensitivity
// for the given link. Positive means the link closes.
func LinkMarginDB(tx, rx *scene.Device, obstacles []*scene.Obstacle, env Environment) float64 {
	return EstimateRSSI(tx, rx, obstacles, env) - SensitivityDBm(rx)
}

// HeightGainDB is the crude elevation gain term: 6*log10(h) above a 1 m
// reference, zero at or below it.
func HeightGainDB(elevationM float64) float64 {
	if elevationM <= 1.0 {
		return 0.0
	}
	return 6.0 * math.Log10(elevationM)
}

// SegmentCrossesObstacle reports whether the straight line between the
// two devices is intersected by the obstacle's bounding rectangle.
func SegmentCrossesObstacle(tx, rx *scene.Device, o *scene.Obstacle) bool {
	return geometry.SegmentIntersectsRect(tx.Position, rx.Position, o.Bounds)
}
