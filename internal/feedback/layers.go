package feedback

import "sync"

// Direction of a layer transition.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

func (d Direction) String() string {
	if d == DirectionUp {
		return "up"
	}
	return "down"
}

// LayerTracker holds the previous and current layer and decides whether an
// observation is a transition. The very first observation initializes the
// tracker and is never a transition, so startup and reconnect do not
// produce a spurious cue.
//
// Layer values are plain integers compared numerically; no range
// validation or wraparound handling is performed.
type LayerTracker struct {
	mu          sync.Mutex
	previous    int
	current     int
	initialized bool
}

func NewLayerTracker() *LayerTracker {
	return &LayerTracker{previous: -1, current: -1}
}

// Observe shifts the current layer into the previous slot and stores the
// new value, atomically. It reports the transition direction, with ok false
// for the first observation and for no-op transitions.
func (t *LayerTracker) Observe(layer int) (Direction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previous = t.current
	t.current = layer
	if !t.initialized {
		t.initialized = true
		return 0, false
	}
	if t.previous == t.current {
		return 0, false
	}
	if t.current > t.previous {
		return DirectionUp, true
	}
	return DirectionDown, true
}

// Layers returns the previous and current layer values.
func (t *LayerTracker) Layers() (previous, current int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.previous, t.current
}
