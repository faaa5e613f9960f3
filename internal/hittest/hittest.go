// Package hittest answers "what is under this point" and "what is the
// nearest snap point" for the current scene.
//
// Device and handle hit-tests use fixed screen-pixel sizes converted to
// kilometers with the current scale, so clickable size is independent of
// zoom level.
package hittest

import (
	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

const (
	// SnapThresholdPx is the measurement snap radius in screen pixels.
	SnapThresholdPx = 15.0
	// DeviceHitRadiusPx is the drag-grab radius around a device marker.
	DeviceHitRadiusPx = 12.0
	// HandleSizePx is the side of the resize-handle square drawn at an
	// obstacle's bottom-right corner.
	HandleSizePx = 10.0
)

// NearestDevice returns the closest device strictly under thresholdKm of
// the point, by linear scan, or nil.
func NearestDevice(devices []*scene.Device, pt geometry.Point2D, thresholdKm float64) *scene.Device {
	var best *scene.Device
	bestDist := thresholdKm
	for _, d := range devices {
		if dist := d.Position.Distance(pt); dist < bestDist {
			best = d
			bestDist = dist
		}
	}
	return best
}

// NearestObstacleSnapPoint considers the 4 corners and 4 edge midpoints
// of every obstacle and returns the closest candidate strictly under
// thresholdKm, or ok=false.
func NearestObstacleSnapPoint(obstacles []*scene.Obstacle, pt geometry.Point2D, thresholdKm float64) (geometry.Point2D, bool) {
	var best geometry.Point2D
	bestDist := thresholdKm
	found := false
	for _, o := range obstacles {
		corners := o.Bounds.Corners()
		mids := o.Bounds.EdgeMidpoints()
		for i := 0; i < 4; i++ {
			for _, cand := range [2]geometry.Point2D{corners[i], mids[i]} {
				if dist := cand.Distance(pt); dist < bestDist {
					best = cand
					bestDist = dist
					found = true
				}
			}
		}
	}
	return best, found
}

// ResolveSnap picks the measurement point for a raw cursor position:
// the closer of the device snap and the obstacle snap when either is
// within the pixel threshold at the current scale, else the raw point.
func ResolveSnap(devices []*scene.Device, obstacles []*scene.Obstacle, pt geometry.Point2D, pxPerKm float64) geometry.Point2D {
	thresholdKm := SnapThresholdPx / pxPerKm

	var deviceDist float64
	device := NearestDevice(devices, pt, thresholdKm)
	if device != nil {
		deviceDist = device.Position.Distance(pt)
	}

	obstaclePt, haveObstacle := NearestObstacleSnapPoint(obstacles, pt, thresholdKm)

	switch {
	case device != nil && haveObstacle:
		if deviceDist <= obstaclePt.Distance(pt) {
			return device.Position
		}
		return obstaclePt
	case device != nil:
		return device.Position
	case haveObstacle:
		return obstaclePt
	default:
		return pt
	}
}

// DeviceAt returns the device within a fixed screen-pixel radius of the
// point, or nil.
func DeviceAt(devices []*scene.Device, pt geometry.Point2D, pxPerKm float64) *scene.Device {
	return NearestDevice(devices, pt, DeviceHitRadiusPx/pxPerKm)
}

// ObstacleAt returns the topmost obstacle whose bounds contain the point,
// or nil. Obstacles are tested most-recently-added first.
func ObstacleAt(obstacles []*scene.Obstacle, pt geometry.Point2D) *scene.Obstacle {
	for i := len(obstacles) - 1; i >= 0; i-- {
		if obstacles[i].Bounds.Contains(pt) {
			return obstacles[i]
		}
	}
	return nil
}

// HandleAt returns the topmost obstacle whose bottom-right resize handle
// contains the point, or nil. The handle is a fixed-pixel square centered
// on the corner.
func HandleAt(obstacles []*scene.Obstacle, pt geometry.Point2D, pxPerKm float64) *scene.Obstacle {
	half := HandleSizePx / 2 / pxPerKm
	for i := len(obstacles) - 1; i >= 0; i-- {
		br := obstacles[i].Bounds.BottomRight()
		handle := geometry.NewRect(br.X-half, br.Y-half, 2*half, 2*half)
		if handle.Contains(pt) {
			return obstacles[i]
		}
	}
	return nil
}
