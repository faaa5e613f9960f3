package interact

import "lpwan-planner/pkg/geometry"

// EventKind identifies a pointer or keyboard input event.
type EventKind int

const (
	EventPointerDown EventKind = iota
	EventPointerMove
	EventPointerUp
	EventRightClick
	EventWheel
	EventEscape
)

// Event is one input event consumed by the state machine. Positions are
// logical screen pixels as reported by the toolkit.
type Event struct {
	Kind    EventKind
	Screen  geometry.Point2D
	WheelDY float64
}

// Enqueue appends an input event to the machine's queue.
func (m *Machine) Enqueue(ev Event) {
	m.queue = append(m.queue, ev)
}

// Drain processes every queued event in order.
func (m *Machine) Drain() {
	for len(m.queue) > 0 {
		ev := m.queue[0]
		m.queue = m.queue[1:]
		m.handle(ev)
	}
}

func (m *Machine) handle(ev Event) {
	switch ev.Kind {
	case EventPointerDown:
		m.pointerDown(ev.Screen)
	case EventPointerMove:
		m.pointerMove(ev.Screen)
	case EventPointerUp:
		m.pointerUp(ev.Screen)
	case EventRightClick:
		m.rightClick(ev.Screen)
	case EventWheel:
		m.wheel(ev.WheelDY)
	case EventEscape:
		m.escape()
	}
}
