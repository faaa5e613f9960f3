package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpwan-planner/pkg/geometry"
)

func testGrid() GridConfig {
	return GridConfig{WidthKm: 5, HeightKm: 5, ResolutionM: 50}
}

func TestAddDeviceClampsPosition(t *testing.T) {
	s := NewStore(testGrid())

	d := s.AddDevice(LoRaWANGateway, geometry.Point2D{X: -1, Y: 9}, RFParams{})
	assert.Equal(t, geometry.Point2D{X: 0, Y: 5}, d.Position)

	s.MoveDevice(d.ID, geometry.Point2D{X: 6, Y: -2})
	assert.Equal(t, geometry.Point2D{X: 5, Y: 0}, s.DeviceByID(d.ID).Position)
}

func TestDeviceLabelsPerTypeCounters(t *testing.T) {
	s := NewStore(testGrid())

	a := s.AddDevice(HaLowAP, geometry.Point2D{X: 1, Y: 1}, RFParams{})
	b := s.AddDevice(LoRaWANGateway, geometry.Point2D{X: 2, Y: 2}, RFParams{})
	c := s.AddDevice(HaLowAP, geometry.Point2D{X: 3, Y: 3}, RFParams{})

	assert.Equal(t, "HaLow AP 1", a.Label)
	assert.Equal(t, "LoRa GW 1", b.Label)
	assert.Equal(t, "HaLow AP 2", c.Label)

	// Counters are never renumbered: removing the first AP does not
	// free its label or id.
	require.True(t, s.RemoveDevice(a.ID))
	d := s.AddDevice(HaLowAP, geometry.Point2D{X: 4, Y: 4}, RFParams{})
	assert.Equal(t, "HaLow AP 3", d.Label)
	assert.Greater(t, d.ID, c.ID)
}

func TestClearResetsCountersButNotIDs(t *testing.T) {
	s := NewStore(testGrid())

	a := s.AddDevice(HaLowAP, geometry.Point2D{X: 1, Y: 1}, RFParams{})
	_, ok := s.CommitObstacle(ObstacleHouse, geometry.NewRect(1, 1, 1, 1), "")
	require.True(t, ok)

	s.Clear()
	assert.Empty(t, s.Devices())
	assert.Empty(t, s.Obstacles())

	// Label counters restart, entity ids stay monotonic.
	b := s.AddDevice(HaLowAP, geometry.Point2D{X: 2, Y: 2}, RFParams{})
	assert.Equal(t, "HaLow AP 1", b.Label)
	assert.Greater(t, b.ID, a.ID)
}

func TestParamsCapturedByValue(t *testing.T) {
	s := NewStore(testGrid())

	params := RFParams{TxPowerDBm: 30, Channel: 2}
	d := s.AddDevice(HaLowAP, geometry.Point2D{X: 1, Y: 1}, params)

	// Mutating the caller's copy afterwards must not affect the device.
	params.TxPowerDBm = 10
	assert.Equal(t, 30.0, d.Params.TxPowerDBm)
}

func TestCommitObstacleThreshold(t *testing.T) {
	s := NewStore(testGrid())

	_, ok := s.CommitObstacle(ObstacleHouse, geometry.NewRect(1, 1, 0.02, 0.5), "")
	assert.False(t, ok, "width below threshold must discard")
	assert.Empty(t, s.Obstacles())

	o, ok := s.CommitObstacle(ObstacleHouse, geometry.NewRect(1, 1, 0.5, 0.5), "")
	require.True(t, ok)
	assert.Len(t, s.Obstacles(), 1)
	assert.Equal(t, geometry.NewRect(1, 1, 0.5, 0.5), o.Bounds)
	assert.Equal(t, "house", o.Material)
}

func TestWallMaterialPreserved(t *testing.T) {
	s := NewStore(testGrid())

	o, ok := s.CommitObstacle(ObstacleWall, geometry.NewRect(0, 0, 1, 1), "cement")
	require.True(t, ok)
	assert.Equal(t, "cement", o.Material)
}

func TestResizeObstacleClampsMinimum(t *testing.T) {
	s := NewStore(testGrid())
	o, _ := s.CommitObstacle(ObstacleForest, geometry.NewRect(1, 1, 1, 1), "")

	s.ResizeObstacle(o.ID, 0.001, 2)
	got := s.ObstacleByID(o.ID)
	assert.Equal(t, MinResizeKm, got.Bounds.Width)
	assert.Equal(t, 2.0, got.Bounds.Height)
}

func TestMoveObstacleStaysInBounds(t *testing.T) {
	s := NewStore(testGrid())
	o, _ := s.CommitObstacle(ObstacleWater, geometry.NewRect(1, 1, 2, 1), "")

	s.MoveObstacle(o.ID, geometry.Point2D{X: 4.5, Y: -3})
	got := s.ObstacleByID(o.ID)
	assert.Equal(t, 3.0, got.Bounds.X, "rect right edge clamps to grid edge")
	assert.Equal(t, 0.0, got.Bounds.Y)
}

func TestSetGridReclampsEntities(t *testing.T) {
	s := NewStore(testGrid())
	d := s.AddDevice(NBIoTBase, geometry.Point2D{X: 4.8, Y: 4.8}, RFParams{})
	o, _ := s.CommitObstacle(ObstacleHouse, geometry.NewRect(4, 4, 1, 1), "")

	s.SetGrid(GridConfig{WidthKm: 2, HeightKm: 2, ResolutionM: 50})

	assert.Equal(t, geometry.Point2D{X: 2, Y: 2}, s.DeviceByID(d.ID).Position)
	got := s.ObstacleByID(o.ID)
	assert.LessOrEqual(t, got.Bounds.X+got.Bounds.Width, 2.0)
	assert.LessOrEqual(t, got.Bounds.Y+got.Bounds.Height, 2.0)
}

func TestEventsEmitted(t *testing.T) {
	s := NewStore(testGrid())

	var deviceEvents, obstacleEvents int
	s.On(EventDevicesChanged, func(interface{}) { deviceEvents++ })
	s.On(EventObstaclesChanged, func(interface{}) { obstacleEvents++ })

	d := s.AddDevice(HaLowEndpoint, geometry.Point2D{X: 1, Y: 1}, RFParams{})
	s.MoveDevice(d.ID, geometry.Point2D{X: 2, Y: 2})
	s.RemoveDevice(d.ID)
	assert.Equal(t, 3, deviceEvents)

	// Discarded obstacles emit nothing.
	s.CommitObstacle(ObstacleWall, geometry.NewRect(0, 0, 0.01, 0.01), "")
	assert.Equal(t, 0, obstacleEvents)

	s.CommitObstacle(ObstacleWall, geometry.NewRect(0, 0, 1, 1), "")
	assert.Equal(t, 1, obstacleEvents)
}

func TestDominantTechnology(t *testing.T) {
	s := NewStore(testGrid())
	assert.Equal(t, TechNone, DominantTechnology(s.Devices(), nil))

	s.AddDevice(HaLowAP, geometry.Point2D{X: 1, Y: 1}, RFParams{})
	s.AddDevice(HaLowEndpoint, geometry.Point2D{X: 2, Y: 2}, RFParams{})
	assert.Equal(t, TechHaLow, DominantTechnology(s.Devices(), nil))

	// Power meters carry no technology and never break dominance.
	s.AddDevice(PowerMeter, geometry.Point2D{X: 3, Y: 3}, RFParams{})
	assert.Equal(t, TechHaLow, DominantTechnology(s.Devices(), nil))

	lora := s.AddDevice(LoRaWANGateway, geometry.Point2D{X: 4, Y: 4}, RFParams{})
	assert.Equal(t, TechNone, DominantTechnology(s.Devices(), nil))

	// Filtering the LoRa gateway out restores a single-technology scene.
	hidden := lora.Type
	assert.Equal(t, TechHaLow, DominantTechnology(s.Devices(), func(dt DeviceType) bool {
		return dt != hidden
	}))
}
