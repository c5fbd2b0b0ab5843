package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerTrackerFirstObservationIsNotATransition(t *testing.T) {
	tracker := NewLayerTracker()
	_, ok := tracker.Observe(3)
	assert.False(t, ok, "first observation must not report a transition")

	previous, current := tracker.Layers()
	assert.Equal(t, -1, previous)
	assert.Equal(t, 3, current)
}

func TestLayerTrackerTransitions(t *testing.T) {
	tests := []struct {
		name    string
		layers  []int
		wantDir []Direction
		wantOk  []bool
	}{
		{
			name:    "up",
			layers:  []int{3, 5},
			wantDir: []Direction{0, DirectionUp},
			wantOk:  []bool{false, true},
		},
		{
			name:    "down",
			layers:  []int{5, 2},
			wantDir: []Direction{0, DirectionDown},
			wantOk:  []bool{false, true},
		},
		{
			name:    "no-op transition",
			layers:  []int{5, 5},
			wantDir: []Direction{0, 0},
			wantOk:  []bool{false, false},
		},
		{
			name:    "sequence",
			layers:  []int{0, 1, 1, 4, 2, 2, 0},
			wantDir: []Direction{0, DirectionUp, 0, DirectionUp, DirectionDown, 0, DirectionDown},
			wantOk:  []bool{false, true, false, true, true, false, true},
		},
		{
			name:    "negative layers compare numerically",
			layers:  []int{-5, -2, -9},
			wantDir: []Direction{0, DirectionUp, DirectionDown},
			wantOk:  []bool{false, true, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewLayerTracker()
			for i, layer := range tt.layers {
				dir, ok := tracker.Observe(layer)
				assert.Equal(t, tt.wantOk[i], ok, "observation %d", i)
				if tt.wantOk[i] {
					assert.Equal(t, tt.wantDir[i], dir, "observation %d", i)
				}
			}
		})
	}
}
