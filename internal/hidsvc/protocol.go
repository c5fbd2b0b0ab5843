package hidsvc

import (
	"errors"
	"fmt"
)

// FrameSize is the fixed length of every report exchanged with the keyboard,
// in both directions.
const FrameSize = 32

// Raw report tags used by the firmware.
const (
	tagLayerChange     = 1
	tagCapsWordState   = 2
	tagLayerQueryReply = 99
)

// EventKind enumerates the report kinds the firmware emits.
type EventKind uint8

const (
	KindUnknown EventKind = iota
	KindLayerChange
	KindCapsWordState
	KindLayerQueryReply
)

func (k EventKind) String() string {
	switch k {
	case KindLayerChange:
		return "layer-change"
	case KindCapsWordState:
		return "caps-word-state"
	case KindLayerQueryReply:
		return "layer-query-reply"
	default:
		return "unknown"
	}
}

// Event is one decoded inbound report. RawTag preserves the wire tag for
// logging unknown reports.
type Event struct {
	Kind    EventKind
	Payload uint8
	RawTag  uint8
}

// ErrInvalidFrame is returned for reports whose length is not FrameSize.
var ErrInvalidFrame = errors.New("invalid frame length")

// DecodeFrame interprets a raw report. Byte 0 is the event tag, byte 1 the
// payload; the remaining bytes are reserved. An unrecognized tag is not a
// protocol error and decodes as KindUnknown.
func DecodeFrame(b []byte) (Event, error) {
	if len(b) != FrameSize {
		return Event{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidFrame, len(b), FrameSize)
	}
	ev := Event{Payload: b[1], RawTag: b[0]}
	switch b[0] {
	case tagLayerChange:
		ev.Kind = KindLayerChange
	case tagCapsWordState:
		ev.Kind = KindCapsWordState
	case tagLayerQueryReply:
		ev.Kind = KindLayerQueryReply
	default:
		ev.Kind = KindUnknown
	}
	return ev, nil
}

// EncodeLayerQuery builds the outbound report asking the firmware for the
// currently active layer: tag 99 followed by zeros.
func EncodeLayerQuery() []byte {
	b := make([]byte, FrameSize)
	b[0] = tagLayerQueryReply
	return b
}
