package scene

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lpwan-planner/pkg/geometry"
)

const (
	// MinCommitKm is the smallest width/height a drawn obstacle may have
	// and still be committed on mouse-up. Smaller shapes are discarded.
	MinCommitKm = 0.03

	// MinResizeKm is the floor both dimensions clamp to during an
	// interactive resize.
	MinResizeKm = 0.05
)

// EventType identifies scene change notifications.
type EventType int

const (
	EventDevicesChanged EventType = iota
	EventObstaclesChanged
	EventGridChanged
)

// EventListener is called when a scene event occurs.
type EventListener func(data interface{})

// Store holds the authoritative lists of placed devices and obstacles,
// allocates ids and labels, and enforces the in-bounds invariant by
// clamping every mutation.
type Store struct {
	mu sync.RWMutex

	grid      GridConfig
	devices   []*Device
	obstacles []*Obstacle

	nextID       int
	typeCounters map[DeviceType]int

	listeners map[EventType][]EventListener
	logger    zerolog.Logger
}

// NewStore creates a scene store with the given grid configuration.
func NewStore(grid GridConfig) *Store {
	return &Store{
		grid:         grid,
		typeCounters: make(map[DeviceType]int),
		listeners:    make(map[EventType][]EventListener),
		logger:       log.With().Str("component", "scene").Logger(),
	}
}

// On registers an event listener for the specified event type.
func (s *Store) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Store) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Grid returns the current grid configuration.
func (s *Store) Grid() GridConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

// SetGrid replaces the grid configuration and re-clamps every entity into
// the new extent.
func (s *Store) SetGrid(grid GridConfig) {
	s.mu.Lock()
	s.grid = grid
	for _, d := range s.devices {
		d.Position = d.Position.Clamp(grid.WidthKm, grid.HeightKm)
	}
	for _, o := range s.obstacles {
		s.clampObstacleLocked(o)
	}
	s.mu.Unlock()

	s.Emit(EventGridChanged, grid)
}

// Clear removes every device and obstacle and resets the label counters.
func (s *Store) Clear() {
	s.mu.Lock()
	s.devices = nil
	s.obstacles = nil
	s.typeCounters = make(map[DeviceType]int)
	s.mu.Unlock()

	s.logger.Info().Msg("scene cleared")
	s.Emit(EventDevicesChanged, nil)
	s.Emit(EventObstaclesChanged, nil)
}

// Devices returns a snapshot of the placed devices in insertion order.
func (s *Store) Devices() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Obstacles returns a snapshot of the obstacles in insertion order.
func (s *Store) Obstacles() []*Obstacle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Obstacle, len(s.obstacles))
	copy(out, s.obstacles)
	return out
}

// AddDevice places a new device, clamping the position into the grid and
// capturing params by value. The per-type label counter is assigned at
// creation time and never renumbered.
func (s *Store) AddDevice(t DeviceType, pos geometry.Point2D, params RFParams) *Device {
	s.mu.Lock()
	s.nextID++
	s.typeCounters[t]++
	d := &Device{
		ID:       s.nextID,
		Type:     t,
		Position: pos.Clamp(s.grid.WidthKm, s.grid.HeightKm),
		Label:    deviceLabel(t, s.typeCounters[t]),
		Params:   params,
	}
	s.devices = append(s.devices, d)
	s.mu.Unlock()

	s.logger.Debug().Int("id", d.ID).Str("type", t.String()).Msg("device placed")
	s.Emit(EventDevicesChanged, d)
	return d
}

// MoveDevice updates a device position, clamped into the grid.
func (s *Store) MoveDevice(id int, pos geometry.Point2D) {
	s.mu.Lock()
	var moved *Device
	for _, d := range s.devices {
		if d.ID == id {
			d.Position = pos.Clamp(s.grid.WidthKm, s.grid.HeightKm)
			moved = d
			break
		}
	}
	s.mu.Unlock()

	if moved != nil {
		s.Emit(EventDevicesChanged, moved)
	}
}

// RemoveDevice deletes a device by id. Ids are never reused.
func (s *Store) RemoveDevice(id int) bool {
	s.mu.Lock()
	removed := false
	for i, d := range s.devices {
		if d.ID == id {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.logger.Debug().Int("id", id).Msg("device removed")
		s.Emit(EventDevicesChanged, nil)
	}
	return removed
}

// DeviceByID returns the device with the given id, or nil.
func (s *Store) DeviceByID(id int) *Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// CommitObstacle adds a drawn obstacle if both dimensions reach the
// commit threshold. Sub-threshold shapes are silently discarded and
// (nil, false) is returned; this is a no-op, not an error.
func (s *Store) CommitObstacle(t ObstacleType, bounds geometry.Rect, material string) (*Obstacle, bool) {
	if bounds.Width < MinCommitKm || bounds.Height < MinCommitKm {
		return nil, false
	}
	if material == "" {
		material = t.String()
	}

	s.mu.Lock()
	s.nextID++
	o := &Obstacle{
		ID:       s.nextID,
		Type:     t,
		Material: material,
		Bounds:   bounds,
	}
	s.clampObstacleLocked(o)
	s.obstacles = append(s.obstacles, o)
	s.mu.Unlock()

	s.logger.Debug().Int("id", o.ID).Str("type", t.String()).Msg("obstacle committed")
	s.Emit(EventObstaclesChanged, o)
	return o, true
}

// MoveObstacle repositions an obstacle's top-left corner, keeping the
// whole rectangle inside the grid.
func (s *Store) MoveObstacle(id int, topLeft geometry.Point2D) {
	s.mu.Lock()
	var moved *Obstacle
	for _, o := range s.obstacles {
		if o.ID == id {
			o.Bounds.X = topLeft.X
			o.Bounds.Y = topLeft.Y
			s.clampObstacleLocked(o)
			moved = o
			break
		}
	}
	s.mu.Unlock()

	if moved != nil {
		s.Emit(EventObstaclesChanged, moved)
	}
}

// ResizeObstacle sets an obstacle's dimensions, clamping both to the
// interactive minimum and keeping the rectangle inside the grid.
func (s *Store) ResizeObstacle(id int, widthKm, heightKm float64) {
	s.mu.Lock()
	var resized *Obstacle
	for _, o := range s.obstacles {
		if o.ID == id {
			o.Bounds.Width = max(widthKm, MinResizeKm)
			o.Bounds.Height = max(heightKm, MinResizeKm)
			s.clampObstacleLocked(o)
			resized = o
			break
		}
	}
	s.mu.Unlock()

	if resized != nil {
		s.Emit(EventObstaclesChanged, resized)
	}
}

// RemoveObstacle deletes an obstacle by id.
func (s *Store) RemoveObstacle(id int) bool {
	s.mu.Lock()
	removed := false
	for i, o := range s.obstacles {
		if o.ID == id {
			s.obstacles = append(s.obstacles[:i], s.obstacles[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.logger.Debug().Int("id", id).Msg("obstacle removed")
		s.Emit(EventObstaclesChanged, nil)
	}
	return removed
}

// ObstacleByID returns the obstacle with the given id, or nil.
func (s *Store) ObstacleByID(id int) *Obstacle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.obstacles {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// DominantTechnology returns the single technology present among the
// given device types, or TechNone when the scene is empty or mixed.
func DominantTechnology(devices []*Device, visible func(DeviceType) bool) Technology {
	dominant := TechNone
	for _, d := range devices {
		if visible != nil && !visible(d.Type) {
			continue
		}
		tech := d.Type.Technology()
		if tech == TechNone {
			continue
		}
		if dominant == TechNone {
			dominant = tech
		} else if dominant != tech {
			return TechNone
		}
	}
	return dominant
}

// clampObstacleLocked keeps an obstacle rectangle inside the grid. The
// size is capped to the extent first so the position clamp can always
// succeed.
func (s *Store) clampObstacleLocked(o *Obstacle) {
	if o.Bounds.Width > s.grid.WidthKm {
		o.Bounds.Width = s.grid.WidthKm
	}
	if o.Bounds.Height > s.grid.HeightKm {
		o.Bounds.Height = s.grid.HeightKm
	}
	tl := geometry.Point2D{X: o.Bounds.X, Y: o.Bounds.Y}.
		Clamp(s.grid.WidthKm-o.Bounds.Width, s.grid.HeightKm-o.Bounds.Height)
	o.Bounds.X = tl.X
	o.Bounds.Y = tl.Y
}
