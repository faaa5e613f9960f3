package hittest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

func newScene(t *testing.T) *scene.Store {
	t.Helper()
	return scene.NewStore(scene.GridConfig{WidthKm: 5, HeightKm: 5, ResolutionM: 50})
}

func TestNearestDeviceStrictThreshold(t *testing.T) {
	s := newScene(t)
	d := s.AddDevice(scene.HaLowAP, geometry.Point2D{X: 1, Y: 1}, scene.RFParams{})

	got := NearestDevice(s.Devices(), geometry.Point2D{X: 1.05, Y: 1}, 0.1)
	require.NotNil(t, got)
	assert.Equal(t, d.ID, got.ID)

	// Exactly at threshold is a miss (strictly under).
	assert.Nil(t, NearestDevice(s.Devices(), geometry.Point2D{X: 1.1, Y: 1}, 0.1))
}

func TestNearestDevicePicksClosest(t *testing.T) {
	s := newScene(t)
	s.AddDevice(scene.HaLowAP, geometry.Point2D{X: 1, Y: 1}, scene.RFParams{})
	near := s.AddDevice(scene.HaLowEndpoint, geometry.Point2D{X: 1.2, Y: 1}, scene.RFParams{})

	got := NearestDevice(s.Devices(), geometry.Point2D{X: 1.15, Y: 1}, 1)
	require.NotNil(t, got)
	assert.Equal(t, near.ID, got.ID)
}

func TestObstacleSnapCandidates(t *testing.T) {
	s := newScene(t)
	s.CommitObstacle(scene.ObstacleHouse, geometry.NewRect(1, 1, 1, 2), "")

	// Near the top-right corner.
	pt, ok := NearestObstacleSnapPoint(s.Obstacles(), geometry.Point2D{X: 2.01, Y: 0.98}, 0.1)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 2, Y: 1}, pt)

	// Near the left edge midpoint.
	pt, ok = NearestObstacleSnapPoint(s.Obstacles(), geometry.Point2D{X: 0.97, Y: 2.02}, 0.1)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 1, Y: 2}, pt)

	// Too far from every candidate.
	_, ok = NearestObstacleSnapPoint(s.Obstacles(), geometry.Point2D{X: 4, Y: 4}, 0.1)
	assert.False(t, ok)
}

func TestResolveSnapPrefersCloserCandidate(t *testing.T) {
	s := newScene(t)
	// Device at 0.01 km from cursor, obstacle corner at 0.02 km.
	d := s.AddDevice(scene.LoRaWANGateway, geometry.Point2D{X: 1.01, Y: 1}, scene.RFParams{})
	s.CommitObstacle(scene.ObstacleWall, geometry.NewRect(1.02, 1, 0.5, 0.5), "")

	pxPerKm := 100.0 // threshold = 0.15 km, both candidates in range
	got := ResolveSnap(s.Devices(), s.Obstacles(), geometry.Point2D{X: 1, Y: 1}, pxPerKm)
	assert.Equal(t, d.Position, got)
}

func TestResolveSnapFallsBackToRawPoint(t *testing.T) {
	s := newScene(t)
	s.AddDevice(scene.LoRaWANGateway, geometry.Point2D{X: 4, Y: 4}, scene.RFParams{})

	raw := geometry.Point2D{X: 1, Y: 1}
	got := ResolveSnap(s.Devices(), s.Obstacles(), raw, 100.0)
	assert.Equal(t, raw, got)
}

func TestSnapThresholdScalesWithZoom(t *testing.T) {
	s := newScene(t)
	d := s.AddDevice(scene.NBIoTBase, geometry.Point2D{X: 1.1, Y: 1}, scene.RFParams{})

	raw := geometry.Point2D{X: 1, Y: 1}

	// Zoomed out: 15 px covers 0.15 km, the device snaps.
	assert.Equal(t, d.Position, ResolveSnap(s.Devices(), nil, raw, 100.0))

	// Zoomed in: 15 px covers only 0.015 km, the raw point wins.
	assert.Equal(t, raw, ResolveSnap(s.Devices(), nil, raw, 1000.0))
}

func TestObstacleAtTopmostWins(t *testing.T) {
	s := newScene(t)
	s.CommitObstacle(scene.ObstacleHouse, geometry.NewRect(1, 1, 2, 2), "")
	top, _ := s.CommitObstacle(scene.ObstacleForest, geometry.NewRect(1.5, 1.5, 2, 2), "")

	got := ObstacleAt(s.Obstacles(), geometry.Point2D{X: 2, Y: 2})
	require.NotNil(t, got)
	assert.Equal(t, top.ID, got.ID)

	assert.Nil(t, ObstacleAt(s.Obstacles(), geometry.Point2D{X: 4.5, Y: 4.5}))
}

func TestHandleAt(t *testing.T) {
	s := newScene(t)
	o, _ := s.CommitObstacle(scene.ObstacleWater, geometry.NewRect(1, 1, 1, 1), "")

	pxPerKm := 100.0 // handle half-side = 0.05 km
	got := HandleAt(s.Obstacles(), geometry.Point2D{X: 2.03, Y: 2.03}, pxPerKm)
	require.NotNil(t, got)
	assert.Equal(t, o.ID, got.ID)

	assert.Nil(t, HandleAt(s.Obstacles(), geometry.Point2D{X: 2.2, Y: 2.2}, pxPerKm))
}

func TestHitPriorityHandleOverDeviceOverObstacle(t *testing.T) {
	s := newScene(t)
	o, _ := s.CommitObstacle(scene.ObstacleHouse, geometry.NewRect(1, 1, 1, 1), "")
	d := s.AddDevice(scene.HaLowAP, geometry.Point2D{X: 1.98, Y: 1.98}, scene.RFParams{})

	pt := geometry.Point2D{X: 2.0, Y: 2.0}
	pxPerKm := 100.0

	// All three are reachable from this point; the interaction layer
	// consults them in handle, device, obstacle order.
	assert.NotNil(t, HandleAt(s.Obstacles(), pt, pxPerKm))
	assert.NotNil(t, DeviceAt(s.Devices(), pt, pxPerKm))
	assert.NotNil(t, ObstacleAt(s.Obstacles(), pt))

	assert.Equal(t, o.ID, HandleAt(s.Obstacles(), pt, pxPerKm).ID)
	assert.Equal(t, d.ID, DeviceAt(s.Devices(), pt, pxPerKm).ID)
}
