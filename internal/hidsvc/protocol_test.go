package hidsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(tag, payload byte) []byte {
	b := make([]byte, FrameSize)
	b[0] = tag
	b[1] = payload
	return b
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    Event
		wantErr error
	}{
		{
			name:  "layer change",
			input: frame(1, 3),
			want:  Event{Kind: KindLayerChange, Payload: 3, RawTag: 1},
		},
		{
			name:  "caps word state",
			input: frame(2, 1),
			want:  Event{Kind: KindCapsWordState, Payload: 1, RawTag: 2},
		},
		{
			name:  "layer query reply",
			input: frame(99, 7),
			want:  Event{Kind: KindLayerQueryReply, Payload: 7, RawTag: 99},
		},
		{
			name:  "unknown tag preserved",
			input: frame(42, 9),
			want:  Event{Kind: KindUnknown, Payload: 9, RawTag: 42},
		},
		{
			name:    "empty",
			input:   nil,
			wantErr: ErrInvalidFrame,
		},
		{
			name:    "short frame",
			input:   make([]byte, 31),
			wantErr: ErrInvalidFrame,
		},
		{
			name:    "long frame",
			input:   make([]byte, 33),
			wantErr: ErrInvalidFrame,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeFrame(tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestEncodeLayerQuery(t *testing.T) {
	b := EncodeLayerQuery()
	require.Len(t, b, FrameSize)
	assert.EqualValues(t, 99, b[0])
	for i := 1; i < FrameSize; i++ {
		assert.Zero(t, b[i], "byte %d must be zero", i)
	}
}
