// Package feedback consumes decoded keyboard events and maps them to audio
// cues: layer transitions and caps-word state changes.
package feedback

import (
	"context"

	"github.com/terriblefail/accesswatch/internal/hidsvc"
	"github.com/terriblefail/accesswatch/internal/soundsvc"
	"go.uber.org/zap"
)

// Sounder fires a named audio cue without blocking the caller.
type Sounder interface {
	Fire(ctx context.Context, cue soundsvc.Cue)
}

// Handler subscribes to the HID event bus and drives the layer tracker and
// the sound dispatcher. Events are handled in publish order.
type Handler struct {
	log     *zap.Logger
	events  *hidsvc.EventBus
	tracker *LayerTracker
	sounds  Sounder
	ready   chan struct{}
}

func NewHandler(log *zap.Logger, events *hidsvc.EventBus, sounds Sounder) *Handler {
	return &Handler{
		log:     log,
		events:  events,
		tracker: NewLayerTracker(),
		sounds:  sounds,
		ready:   make(chan struct{}),
	}
}

func (h *Handler) Ready() <-chan struct{} {
	return h.ready
}

func (h *Handler) Start(ctx context.Context) error {
	ch := h.events.Subscribe(ctx)
	close(h.ready)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			h.Handle(ctx, msg.Message)
		}
	}
}

// Handle processes one decoded event.
func (h *Handler) Handle(ctx context.Context, ev hidsvc.Event) {
	switch ev.Kind {
	case hidsvc.KindLayerChange, hidsvc.KindLayerQueryReply:
		h.observeLayer(ctx, int(ev.Payload))
	case hidsvc.KindCapsWordState:
		h.capsWord(ctx, ev.Payload)
	case hidsvc.KindUnknown:
		h.log.Warn("Unhandled event kind",
			zap.Uint8("tag", ev.RawTag),
			zap.Uint8("payload", ev.Payload))
	}
}

func (h *Handler) observeLayer(ctx context.Context, layer int) {
	dir, ok := h.tracker.Observe(layer)
	previous, current := h.tracker.Layers()
	h.log.Info("Layer changed",
		zap.Int("from", previous),
		zap.Int("to", current))
	if !ok {
		return
	}
	if dir == DirectionUp {
		h.sounds.Fire(ctx, soundsvc.CueLayerUp)
	} else {
		h.sounds.Fire(ctx, soundsvc.CueLayerDown)
	}
}

func (h *Handler) capsWord(ctx context.Context, state uint8) {
	switch state {
	case 1:
		h.log.Info("Caps word on")
		h.sounds.Fire(ctx, soundsvc.CueCapsWordOn)
	case 0:
		h.log.Info("Caps word off")
		h.sounds.Fire(ctx, soundsvc.CueCapsWordOff)
	default:
		h.log.Warn("Unexpected caps word payload", zap.Uint8("payload", state))
	}
}
